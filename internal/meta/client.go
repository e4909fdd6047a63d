// Package meta talks to the external attribution service: URL tokenization,
// watermark resolution, meme search, and view tracking. Every call degrades
// to a no-op when no remote base URL is configured, so the rendering
// pipeline works stand-alone.
package meta

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config for the attribution client. APIKey authorizes watermark overrides;
// DefaultWatermark is applied when a request carries no valid override.
type Config struct {
	BaseURL          string
	APIKey           string
	DefaultWatermark string
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// remote reports whether a remote attribution service is configured.
func (c *Client) remote() bool { return c.cfg.BaseURL != "" }

// Tokenize asks the attribution service to embed or refresh the tracking
// token in the URL. The boolean reports whether the URL changed, which the
// caller turns into a 302.
func (c *Client) Tokenize(ctx context.Context, rawURL string) (string, bool, error) {
	if !c.remote() {
		return rawURL, false, nil
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/tokenize", map[string]string{"url": rawURL}, &out); err != nil {
		return rawURL, false, err
	}
	if out.URL == "" || out.URL == rawURL {
		return rawURL, false, nil
	}
	return out.URL, true, nil
}

// Watermark resolves the watermark for a request. The boolean reports that
// a supplied override was consumed or rejected and must be stripped from
// the URL via redirect.
func (c *Client) Watermark(ctx context.Context, query url.Values) (string, bool, error) {
	requested := query.Get("watermark")
	if requested == "" {
		return c.cfg.DefaultWatermark, false, nil
	}

	// The default watermark as an explicit override is redundant; strip it.
	if requested == c.cfg.DefaultWatermark {
		return c.cfg.DefaultWatermark, true, nil
	}

	if !c.authorized(query.Get("token")) {
		return c.cfg.DefaultWatermark, true, nil
	}

	if requested == "none" {
		return "", false, nil
	}
	return requested, false, nil
}

func (c *Client) authorized(token string) bool {
	if c.cfg.APIKey == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.cfg.APIKey)) == 1
}

// SearchResult is one hit from the meme search service.
type SearchResult struct {
	ImageURL   string  `json:"image_url"`
	Confidence float64 `json:"confidence"`
}

// Search queries the attribution service for memes matching a phrase.
func (c *Client) Search(ctx context.Context, query string, safe bool, mode string) ([]SearchResult, error) {
	if !c.remote() {
		return nil, nil
	}

	u, err := url.Parse(c.cfg.BaseURL + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("safe", fmt.Sprintf("%t", safe))
	if mode != "" {
		q.Set("mode", mode)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("search http %d", res.StatusCode)
	}

	var out []SearchResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendEvent delivers one tracking event to the attribution service. Called
// by the tracker worker, never from the request path.
func (c *Client) SendEvent(ctx context.Context, ev Event) error {
	if !c.remote() {
		return nil
	}
	return c.post(ctx, "/track", ev, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-KEY", c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("attribution http %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
