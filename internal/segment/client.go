package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thawmark/internal/config"
	"thawmark/internal/prompt"
	"thawmark/internal/raster"
	"thawmark/internal/services"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultMaxRetries   = 3
	defaultRetryBackoff = 2 * time.Second
)

// Client talks to a remote point-prompt segmentation backend over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	sleep        func(context.Context, time.Duration) error
}

// Option customizes the segmentation client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetries overrides the retry budget and backoff.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// NewClient constructs a segmentation backend client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "segment", "new client", "engine base url required", nil)
	}
	client := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewClientFromConfig builds a client from the engine configuration section.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "segment", "new client", "config required", nil)
	}
	timeout := time.Duration(cfg.Engine.TimeoutSeconds) * time.Second
	return NewClient(
		cfg.Engine.BaseURL,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRetries(cfg.Engine.MaxRetries, time.Duration(cfg.Engine.RetryBackoffSeconds)*time.Second),
	)
}

type inferRequest struct {
	UID    string       `json:"uid"`
	Tile   string       `json:"tile"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Points []inferPoint `json:"points"`
}

type inferPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label int     `json:"label"`
}

type inferResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mask   string `json:"mask"` // base64 row-major bytes, nonzero = foreground
	Error  string `json:"error,omitempty"`
}

// Infer sends the tile reference and the full ordered prompt sequence to the
// backend and decodes the returned mask. Backend and transport failures are
// retried with backoff up to the configured budget, then surfaced with the
// engine-unavailable sentinel so callers treat them as retryable.
func (c *Client) Infer(ctx context.Context, tile *raster.Tile, points []prompt.Point) (*raster.Mask, error) {
	if tile == nil {
		return nil, services.Wrap(services.ErrValidation, "segment", "infer", "tile required", nil)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/infer")
	if err != nil {
		return nil, fmt.Errorf("segment infer: build url: %w", err)
	}

	request := inferRequest{
		UID:    tile.UID,
		Tile:   tile.Ref,
		Width:  tile.Width,
		Height: tile.Height,
		Points: make([]inferPoint, 0, len(points)),
	}
	for _, p := range points {
		request.Points = append(request.Points, inferPoint{X: p.X, Y: p.Y, Label: int(p.Label)})
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("segment infer: encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retryBackoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		mask, retryable, err := c.inferOnce(ctx, endpoint, encoded)
		if err == nil {
			return mask, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, services.Wrap(services.ErrEngineUnavailable, "segment", "infer",
		fmt.Sprintf("backend failed after %d attempts", c.maxRetries), lastErr)
}

func (c *Client) inferOnce(ctx context.Context, endpoint string, body []byte) (*raster.Mask, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("segment infer: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, false, services.Wrap(services.ErrValidation, "segment", "infer",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var decoded inferResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, true, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, true, errors.New(strings.TrimSpace(decoded.Error))
	}

	data, err := base64.StdEncoding.DecodeString(decoded.Mask)
	if err != nil {
		return nil, false, services.Wrap(services.ErrValidation, "segment", "infer", "mask payload not base64", err)
	}
	for i, b := range data {
		if b != 0 {
			data[i] = 1
		}
	}
	mask, err := raster.MaskFromBytes(decoded.Width, decoded.Height, data)
	if err != nil {
		return nil, false, services.Wrap(services.ErrValidation, "segment", "infer", "mask shape mismatch", err)
	}
	return mask, false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
