package tiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thawmark/internal/raster"
	"thawmark/internal/services"
)

// HTTPProvider fetches tile metadata from a tile service. The service owns the
// raster bytes; sessions only need dimensions, the georeference, and a stable
// reference the segmentation backend resolves on its side.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPOption customizes an HTTP tile provider.
type HTTPOption func(*HTTPProvider)

// WithTileHTTPClient replaces the underlying HTTP client, primarily for tests.
func WithTileHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewHTTPProvider builds a provider against the tile service base URL.
func NewHTTPProvider(baseURL string, opts ...HTTPOption) (*HTTPProvider, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tiles", "init",
			"tile service base URL is required", nil)
	}
	provider := &HTTPProvider{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider, nil
}

type tileResponse struct {
	UID       string  `json:"uid"`
	Ref       string  `json:"ref"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	OriginX   float64 `json:"origin_x"`
	OriginY   float64 `json:"origin_y"`
	PixelW    float64 `json:"pixel_width"`
	PixelH    float64 `json:"pixel_height"`
	ErrorText string  `json:"error,omitempty"`
}

// FetchTile requests tile metadata for a UID.
func (p *HTTPProvider) FetchTile(ctx context.Context, uid string) (*raster.Tile, error) {
	endpoint := p.baseURL + "/tiles/" + url.PathEscape(uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			"build tile request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tiles", "fetch",
			fmt.Sprintf("tile service request for %s", uid), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "tiles", "fetch",
			fmt.Sprintf("no tile for %s", uid), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrTransient, "tiles", "fetch",
			fmt.Sprintf("tile service returned %d for %s", resp.StatusCode, uid), nil)
	}

	var body tileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			"decode tile response", err)
	}
	if body.ErrorText != "" {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			fmt.Sprintf("tile service: %s", body.ErrorText), nil)
	}
	if body.Width <= 0 || body.Height <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			fmt.Sprintf("tile service returned %dx%d raster for %s", body.Width, body.Height, uid), nil)
	}

	return &raster.Tile{
		UID:    uid,
		Ref:    body.Ref,
		Width:  body.Width,
		Height: body.Height,
		Transform: raster.Transform{
			OriginX:     body.OriginX,
			OriginY:     body.OriginY,
			PixelWidth:  body.PixelW,
			PixelHeight: body.PixelH,
		},
	}, nil
}
