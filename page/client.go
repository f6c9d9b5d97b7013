package page

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a thin internal REST client the page handlers use to compose
// read endpoints. It forwards the caller's bearer token unchanged so page
// requests carry the same authority as the browser session behind them.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a page client targeting the given API base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type apiEnvelope struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Msg     string                 `json:"msg"`
	Data    map[string]interface{} `json:"data"`
}

// Get fetches a read endpoint and unwraps the response envelope. token may
// be empty for open endpoints.
func (c *Client) Get(ctx context.Context, path, token string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("api call failed: %s", envelope.Msg)
	}
	return envelope.Data, nil
}
