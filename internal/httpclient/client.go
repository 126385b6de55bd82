package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// Client is a thin wrapper around the retrying http client used for all
// outbound calls: status list fetches, DID resolution and webhook delivery.
type Client struct {
	base *http.Client
}

// DefaultClientWithRetry returns an http client that retries idempotent
// requests with exponential backoff and propagates the request id.
func DefaultClientWithRetry(timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	client := rc.StandardClient()
	client.Transport = requestIDTransport{next: client.Transport}
	return &Client{base: client}
}

type requestIDTransport struct {
	next http.RoundTripper
}

func (t requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if reqID := middleware.GetReqID(req.Context()); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}
	return t.next.RoundTrip(req)
}

// Get performs a GET request and returns the response body, reading at most
// maxBytes. A maxBytes of 0 means no limit. Non-2xx responses are an error.
func (c *Client) Get(ctx context.Context, url string, maxBytes int64, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(ctx, req, maxBytes)
}

// Post performs a POST request with the given body and returns the response
// body. Non-2xx responses are an error.
func (c *Client) Post(ctx context.Context, url string, contentType string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(ctx, req, 0)
}

func (c *Client) do(ctx context.Context, req *http.Request, maxBytes int64) ([]byte, error) {
	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "error closing response body", "err", err)
		}
	}()

	var reader io.Reader = resp.Body
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("response from %s exceeds the %d byte limit", req.URL.Host, maxBytes)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return body, nil
}
