package metrics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/recommend"
)

type scriptedFetcher struct {
	errs []error
}

func (f *scriptedFetcher) Fetch(context.Context, string) (*recommend.Response, error) {
	err := f.errs[0]
	f.errs = f.errs[1:]
	if err != nil {
		return nil, err
	}
	return &recommend.Response{}, nil
}

func TestStateObserverCountsOutcomes(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := query.New(&scriptedFetcher{errs: []error{nil, errors.New("boom"), nil}}, zap.NewNop())
	s.Subscribe(c.StateObserver())

	s.Submit(context.Background(), "java")
	s.Submit(context.Background(), "java")
	s.Submit(context.Background(), "")
	s.Submit(context.Background(), "java")

	if got := testutil.ToFloat64(c.submissions.WithLabelValues("succeeded")); got != 2 {
		t.Fatalf("expected 2 succeeded, got %v", got)
	}
	if got := testutil.ToFloat64(c.submissions.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(c.submissions.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("expected 1 invalid, got %v", got)
	}
	if got := testutil.ToFloat64(c.inFlight); got != 0 {
		t.Fatalf("expected no submissions in flight, got %v", got)
	}
}

func TestObserveRequest(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.ObserveRequest(recommend.RecommendPath, http.StatusOK, 20*time.Millisecond)
	c.ObserveRequest(recommend.RecommendPath, 0, time.Second)

	if got := testutil.ToFloat64(c.requests.WithLabelValues(recommend.RecommendPath, "200")); got != 1 {
		t.Fatalf("expected one 200, got %v", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues(recommend.RecommendPath, "0")); got != 1 {
		t.Fatalf("expected one transport failure, got %v", got)
	}
	if got := testutil.CollectAndCount(c.requestDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
