package testsupport

import (
	"path/filepath"
	"testing"

	"thawmark/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// WithStaleClaimTimeout overrides the stale-claim timeout in minutes.
func WithStaleClaimTimeout(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Manifest.StaleClaimTimeout = minutes
	}
}

// WithLabelerID sets the operator identity used in claims.
func WithLabelerID(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LabelerID = id
	}
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "labels")
	cfg.Paths.TileDir = filepath.Join(base, "tiles")
	cfg.LabelerID = "test-labeler"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
