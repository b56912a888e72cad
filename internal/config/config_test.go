package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"thawmark/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "thawmark")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7743" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Manifest.StaleClaimTimeout != 120 {
		t.Fatalf("unexpected stale claim timeout: %d", cfg.Manifest.StaleClaimTimeout)
	}
	if cfg.Extractor.MinAreaPixels != 16 {
		t.Fatalf("unexpected min area: %d", cfg.Extractor.MinAreaPixels)
	}
	if cfg.Tiles.Provider != "dir" {
		t.Fatalf("unexpected tile provider: %q", cfg.Tiles.Provider)
	}
	if cfg.ManifestDBPath() != filepath.Join(wantData, "manifest.db") {
		t.Fatalf("unexpected manifest db path: %q", cfg.ManifestDBPath())
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
labeler_id = "labeler-7"

[manifest]
stale_claim_timeout = 30

[engine]
base_url = "http://localhost:9001/"

[tiles]
provider = "http"
base_url = "http://tiles.example.net"

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.LabelerID != "labeler-7" {
		t.Fatalf("unexpected labeler id: %q", cfg.LabelerID)
	}
	if cfg.Manifest.StaleClaimTimeout != 30 {
		t.Fatalf("unexpected timeout: %d", cfg.Manifest.StaleClaimTimeout)
	}
	if cfg.Engine.BaseURL != "http://localhost:9001" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Engine.BaseURL)
	}
	if cfg.Tiles.Provider != "http" {
		t.Fatalf("unexpected provider: %q", cfg.Tiles.Provider)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero stale timeout", func(c *config.Config) { c.Manifest.StaleClaimTimeout = 0 }},
		{"negative tolerance", func(c *config.Config) { c.Extractor.SimplifyTolerance = -1 }},
		{"http tiles without base url", func(c *config.Config) {
			c.Tiles.Provider = "http"
			c.Tiles.BaseURL = ""
		}},
		{"unknown provider", func(c *config.Config) { c.Tiles.Provider = "gcs" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
