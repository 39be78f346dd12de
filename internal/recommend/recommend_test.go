package recommend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	requests := make([]recordedRequest, 0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func TestFetchSendsQueryAndDecodesRecommendations(t *testing.T) {
	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations":[{"assessment_name":"Java Developer Test","url":"https://example.com/java"}]}`))
	})

	client := New(srv.URL, 0, zap.NewNop())

	resp, err := client.Fetch(context.Background(), "Java developer with strong communication skills")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Len() != 1 {
		t.Fatalf("expected 1 recommendation, got %d", resp.Len())
	}

	rec := resp.Recommendations[0]
	if rec.AssessmentName != "Java Developer Test" || rec.URL != "https://example.com/java" {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}

	recorded := requests()
	if len(recorded) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(recorded))
	}

	got := recorded[0]
	if got.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", got.method)
	}
	if got.path != RecommendPath {
		t.Fatalf("expected path %s, got %s", RecommendPath, got.path)
	}
	if got.contentType != "application/json" {
		t.Fatalf("unexpected content type: %q", got.contentType)
	}
	if string(got.body) != `{"query":"Java developer with strong communication skills"}` {
		t.Fatalf("unexpected body: %s", got.body)
	}
}

func TestFetchJoinsBasePath(t *testing.T) {
	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"recommendations":[]}`))
	})

	client := New(srv.URL+"/api/", 0, nil)

	if _, err := client.Fetch(context.Background(), "go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := requests()[0].path; got != "/api/recommend" {
		t.Fatalf("expected /api/recommend, got %s", got)
	}
}

func TestFetchResponseShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		expect []Recommendation
	}{
		{
			name:   "missing recommendations field",
			body:   `{"status":"ok"}`,
			expect: []Recommendation{},
		},
		{
			name:   "null recommendations",
			body:   `{"recommendations":null}`,
			expect: []Recommendation{},
		},
		{
			name: "extra fields and lenient scalars",
			body: `{"recommendations":[{"assessment_name":"OPQ","url":"https://example.com/opq","duration":"25","test_type":"Personality & Behavior","unknown":1}]}`,
			expect: []Recommendation{{
				AssessmentName: "OPQ",
				URL:            "https://example.com/opq",
				Duration:       25,
				TestType:       []string{"Personality & Behavior"},
			}},
		},
		{
			name: "native api shape",
			body: `{"recommended_assessments":[{"name":"Verify G+","url":"https://example.com/verify","duration":36,"remote_support":"Yes","adaptive_support":"No","test_type":["Cognitive"]}]}`,
			expect: []Recommendation{{
				AssessmentName:  "Verify G+",
				URL:             "https://example.com/verify",
				Duration:        36,
				RemoteSupport:   "Yes",
				AdaptiveSupport: "No",
				TestType:        []string{"Cognitive"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := parseResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if resp.Recommendations == nil {
				t.Fatalf("expected non-nil recommendations")
			}

			if len(resp.Recommendations) != len(tt.expect) {
				t.Fatalf("expected %d recommendations, got %d", len(tt.expect), len(resp.Recommendations))
			}

			for i := range tt.expect {
				want, _ := json.Marshal(tt.expect[i])
				got, _ := json.Marshal(resp.Recommendations[i])
				if !bytes.Equal(want, got) {
					t.Fatalf("recommendation %d: expected %s, got %s", i, want, got)
				}
			}
		})
	}
}

func TestFetchFailuresWrapSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "bad query", http.StatusUnprocessableEntity)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"recommendations":`))
			},
		},
		{
			name: "recommendations is not a list of records",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"recommendations":[42]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t, tt.handler)
			client := New(srv.URL, 0, zap.NewNop())

			resp, err := client.Fetch(context.Background(), "query")
			if err == nil {
				t.Fatalf("expected error, got response %+v", resp)
			}
			if !errors.Is(err, ErrRequestFailed) {
				t.Fatalf("expected ErrRequestFailed, got %v", err)
			}
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	client := New(addr, time.Second, zap.NewNop())

	_, err := client.Fetch(context.Background(), "query")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestFetchInvalidBaseURL(t *testing.T) {
	client := New("not a url", 0, zap.NewNop())

	_, err := client.Fetch(context.Background(), "query")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestFetchDecodesGzip(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip accept-encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"recommendations":[{"assessment_name":"Go","url":"https://example.com/go"}]}`))
		_ = gz.Close()
	})

	client := New(srv.URL, 0, zap.NewNop())

	resp, err := client.Fetch(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Len() != 1 || resp.Recommendations[0].AssessmentName != "Go" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

type observation struct {
	path   string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveRequest(path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{path: path, status: status})
}

func TestHealthReportsStatus(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != HealthPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	observer := &recordingObserver{}
	client := New(srv.URL, 0, zap.NewNop())
	client.Observer = observer

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}

	healthy.Store(false)
	if err := client.Health(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}

	if len(observer.obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observer.obs))
	}
	if observer.obs[0] != (observation{path: HealthPath, status: http.StatusOK}) {
		t.Fatalf("unexpected first observation: %+v", observer.obs[0])
	}
	if observer.obs[1].status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected second observation: %+v", observer.obs[1])
	}
}

func TestDumpToTmpFile(t *testing.T) {
	resp := &Response{Recommendations: []Recommendation{{AssessmentName: "Java", URL: "https://example.com/java"}}}

	name, err := resp.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(name)

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding dump: %v", err)
	}
	if decoded.Len() != 1 || decoded.Names()[0] != "Java" {
		t.Fatalf("unexpected dump contents: %s", data)
	}
}
