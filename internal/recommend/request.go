package recommend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	contentType    = "application/json"
	acceptEncoding = "gzip"
)

type recommendRequest struct {
	Query string `json:"query"`
}

func (c *Client) recommend(ctx context.Context, query string) (*Response, error) {
	apiURL, err := c.endpoint(RecommendPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	payload, err := json.Marshal(recommendRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	data, err := c.do(req, RecommendPath)
	if err != nil {
		return nil, err
	}

	response, err := parseResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("got response from recommendation api", zap.Int("recommendations", response.Len()))

	return response, nil
}

func (c *Client) health(ctx context.Context) error {
	apiURL, err := c.endpoint(HealthPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	_, err = c.do(req, HealthPath)
	return err
}

// do sends the request and returns the decompressed body of a 2xx response.
func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(path, 0, elapsed)
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	c.observe(path, resp.StatusCode, elapsed)

	c.logger.Debug("got response",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: bad status: %s", ErrRequestFailed, resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	return data, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("User-Agent", c.UserAgent)

	return req
}

func (c *Client) observe(path string, status int, elapsed time.Duration) {
	if c.Observer == nil {
		return
	}
	c.Observer.ObserveRequest(path, status, elapsed)
}
