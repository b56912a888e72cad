package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	OutputDir     string `toml:"output_dir"`
	InventoryPath string `toml:"inventory_path"`
	TileDir       string `toml:"tile_dir"`
	APIBind       string `toml:"api_bind"`
	APIToken      string `toml:"api_token"`
}

// Manifest contains claim coordination settings.
type Manifest struct {
	// StaleClaimTimeout is the number of minutes an in-progress claim may go
	// without a commit before other labelers can reclaim the UID.
	StaleClaimTimeout int `toml:"stale_claim_timeout"`
	SweepInterval     int `toml:"sweep_interval"`
}

// Extractor contains mask-to-polygon conversion thresholds.
type Extractor struct {
	// SimplifyTolerance is the Douglas-Peucker tolerance in tile geographic units.
	SimplifyTolerance float64 `toml:"simplify_tolerance"`
	// MinAreaPixels suppresses traced regions smaller than this pixel count.
	MinAreaPixels int `toml:"min_area_pixels"`
}

// Engine contains configuration for the segmentation inference backend.
type Engine struct {
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	MaxRetries          int    `toml:"max_retries"`
	RetryBackoffSeconds int    `toml:"retry_backoff_seconds"`
}

// Tiles contains configuration for imagery tile access.
type Tiles struct {
	// Provider selects the tile source: "dir" reads per-UID rasters from
	// paths.tile_dir, "http" fetches from tiles.base_url.
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for thawmark.
//
// Configuration sections by subsystem:
//   - Paths: data/log/output directories, inventory and tile locations, API bind
//   - Manifest: stale-claim timeout and daemon sweep interval
//   - Extractor: polygon simplification and noise-suppression thresholds
//   - Engine: segmentation backend endpoint, timeout, and retry policy
//   - Tiles: imagery tile provider selection
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Manifest  Manifest  `toml:"manifest"`
	Extractor Extractor `toml:"extractor"`
	Engine    Engine    `toml:"engine"`
	Tiles     Tiles     `toml:"tiles"`
	Logging   Logging   `toml:"logging"`

	// LabelerID identifies this operator in manifest claims. Generated when
	// empty; normally set per user in the config file.
	LabelerID string `toml:"labeler_id"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/thawmark/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/thawmark/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("thawmark.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for store and sink operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManifestDBPath returns the location of the manifest SQLite database.
func (c *Config) ManifestDBPath() string {
	return filepath.Join(c.Paths.DataDir, "manifest.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to the given path.
// It refuses to overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
