package tiles

import (
	"context"
	"fmt"

	"thawmark/internal/config"
	"thawmark/internal/raster"
	"thawmark/internal/services"
)

// Provider resolves the imagery tile covering one feature. Implementations
// must be safe for concurrent use.
type Provider interface {
	FetchTile(ctx context.Context, uid string) (*raster.Tile, error)
}

// NewProvider builds the configured tile provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Tiles.Provider {
	case "dir":
		return NewDirProvider(cfg.Paths.TileDir)
	case "http":
		return NewHTTPProvider(cfg.Tiles.BaseURL)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "tiles", "init",
			fmt.Sprintf("unknown tile provider %q", cfg.Tiles.Provider), nil)
	}
}
