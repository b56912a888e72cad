package raster

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
)

// DecodeBounds reads the pixel dimensions of a tile raster without keeping the
// decoded image. TIFF and PNG are supported; basemap exports arrive as GeoTIFF
// quads with a world-file sidecar for the transform.
func DecodeBounds(path string) (width, height int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open tile raster: %w", err)
	}
	defer file.Close()

	cfg, err := decodeConfig(file, filepath.Ext(path))
	if err != nil {
		return 0, 0, fmt.Errorf("decode tile raster %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}

func decodeConfig(r io.Reader, ext string) (image.Config, error) {
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		return tiff.DecodeConfig(r)
	case ".png":
		return png.DecodeConfig(r)
	default:
		return image.Config{}, fmt.Errorf("unsupported raster format %q", ext)
	}
}

// ReadWorldFile parses a six-line ESRI world file into a Transform. Rotation
// terms must be zero; rotated rasters are not supported.
func ReadWorldFile(path string) (Transform, error) {
	file, err := os.Open(path)
	if err != nil {
		return Transform{}, fmt.Errorf("open world file: %w", err)
	}
	defer file.Close()

	var values []float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Transform{}, fmt.Errorf("world file %s: parse %q: %w", filepath.Base(path), line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return Transform{}, fmt.Errorf("read world file: %w", err)
	}
	if len(values) != 6 {
		return Transform{}, fmt.Errorf("world file %s: expected 6 values, got %d", filepath.Base(path), len(values))
	}
	if values[1] != 0 || values[2] != 0 {
		return Transform{}, fmt.Errorf("world file %s: rotation terms unsupported", filepath.Base(path))
	}
	return Transform{
		PixelWidth:  values[0],
		PixelHeight: values[3],
		OriginX:     values[4],
		OriginY:     values[5],
	}, nil
}

// WorldFilePath returns the conventional sidecar path for a raster
// (last letter of the extension replaced, "w" appended: .tif -> .tfw).
func WorldFilePath(rasterPath string) string {
	ext := filepath.Ext(rasterPath)
	if len(ext) < 3 {
		return rasterPath + "w"
	}
	base := strings.TrimSuffix(rasterPath, ext)
	// ".tif" -> ".tfw", ".png" -> ".pgw"
	short := string(ext[1]) + string(ext[len(ext)-1]) + "w"
	return base + "." + short
}
