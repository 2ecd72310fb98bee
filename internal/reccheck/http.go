package reccheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// StatusOK is the only status a check accepts.
const StatusOK = 200

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 32 << 20

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
	runID   string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL, runID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		runID:   runID,
	}
}

// Get performs a GET request and returns status and body.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.runID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// getJSON fetches path and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	status, body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if status != StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, status, truncate(body, 200))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) festivals(ctx context.Context) ([]Festival, error) {
	var out []Festival
	if err := c.getJSON(ctx, "/festivals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) recommend(ctx context.Context, contentID string, topN int) (Recommendation, error) {
	var rec Recommendation
	q := url.Values{"top_n": []string{strconv.Itoa(topN)}}
	err := c.getJSON(ctx, "/recommendations/"+url.PathEscape(contentID), q, &rec)
	return rec, err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
