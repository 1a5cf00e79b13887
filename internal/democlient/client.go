package democlient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/review360/internal/domain/rubric"
	"github.com/okian/review360/internal/domain/types"
)

// Client talks to the review API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// do sends a JSON request and decodes a JSON response into out. Non-2xx
// responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		}
		return apiErr
	}

	switch v := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*v = data
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
		return nil
	}
}

// Health checks the metrics endpoint.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Rubric fetches the rating help in lang.
func (c *Client) Rubric(ctx context.Context, lang string) (rubric.Rubric, error) {
	path := "/rubric"
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var rb rubric.Rubric
	err := c.do(ctx, http.MethodGet, path, nil, &rb)
	return rb, err
}

// CreateSession opens a session with the server's default layout.
func (c *Client) CreateSession(ctx context.Context) (types.Session, error) {
	var sess types.Session
	err := c.do(ctx, http.MethodPost, "/sessions", nil, &sess)
	return sess, err
}

// SubmitMatrix replaces the session draft with scores and submits it.
func (c *Client) SubmitMatrix(ctx context.Context, id string, scores [][]float64) (types.Session, error) {
	var sess types.Session
	body := map[string]any{"scores": scores}
	err := c.do(ctx, http.MethodPut, "/sessions/"+url.PathEscape(id)+"/matrix", body, &sess)
	return sess, err
}

// Results fetches the aggregation of a submitted session.
func (c *Client) Results(ctx context.Context, id string) (types.Result, error) {
	var res types.Result
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/results", nil, &res)
	return res, err
}

// Chart fetches a PNG chart of a submitted session.
func (c *Client) Chart(ctx context.Context, id, kind string) ([]byte, error) {
	var png []byte
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/charts/"+url.PathEscape(kind), nil, &png)
	return png, err
}

// DeleteSession discards a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}
