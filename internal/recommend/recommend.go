package recommend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "spigell/assessment-finder"

	RecommendPath = "/recommend"
	HealthPath    = "/health"
)

// ErrRequestFailed is the single failure signal exposed to callers of Fetch.
// Any transport error, non-success status or undecodable body wraps it.
var ErrRequestFailed = errors.New("recommendation request failed")

// RequestObserver receives the outcome of every outbound call.
type RequestObserver interface {
	ObserveRequest(path string, status int, elapsed time.Duration)
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
	Observer   RequestObserver
}

// New returns a client for the recommendation API rooted at baseURL.
// A zero timeout leaves the request bounded only by the caller's context.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		logger:  logger,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: defaultUserAgent,
	}
}

// Fetch posts the query to the recommend endpoint and returns the decoded response.
func (c *Client) Fetch(ctx context.Context, query string) (*Response, error) {
	return c.recommend(ctx, query)
}

// Health probes the API health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.health(ctx)
}

func (c *Client) endpoint(path string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}

	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base url must be absolute")
	}

	return u.JoinPath(path).String(), nil
}
