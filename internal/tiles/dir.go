package tiles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"thawmark/internal/raster"
	"thawmark/internal/services"
)

// rasterExtensions in resolution order. GeoTIFF quads are the primary export
// format; PNG covers quicklook tiles.
var rasterExtensions = []string{".tif", ".tiff", ".png"}

// DirProvider serves tiles from a local directory laid out as one raster per
// UID with a world-file sidecar for the georeference.
type DirProvider struct {
	root string
}

// NewDirProvider validates that the tile directory exists.
func NewDirProvider(root string) (*DirProvider, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tiles", "init",
			fmt.Sprintf("tile directory %s", root), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "tiles", "init",
			fmt.Sprintf("%s is not a directory", root), nil)
	}
	return &DirProvider{root: root}, nil
}

// FetchTile resolves <root>/<uid>.<ext> plus its world file into a tile.
func (p *DirProvider) FetchTile(ctx context.Context, uid string) (*raster.Tile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := p.resolve(uid)
	if err != nil {
		return nil, err
	}

	width, height, err := raster.DecodeBounds(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			fmt.Sprintf("tile for %s", uid), err)
	}

	transform, err := raster.ReadWorldFile(raster.WorldFilePath(path))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tiles", "fetch",
			fmt.Sprintf("georeference for %s", uid), err)
	}

	return &raster.Tile{
		UID:       uid,
		Ref:       path,
		Width:     width,
		Height:    height,
		Transform: transform,
	}, nil
}

func (p *DirProvider) resolve(uid string) (string, error) {
	for _, ext := range rasterExtensions {
		path := filepath.Join(p.root, uid+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "tiles", "fetch",
		fmt.Sprintf("no raster for %s under %s", uid, p.root), nil)
}
