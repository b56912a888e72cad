package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeManifest()
	c.normalizeEngine()
	c.normalizeTiles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InventoryPath) != "" {
		if c.Paths.InventoryPath, err = expandPath(c.Paths.InventoryPath); err != nil {
			return fmt.Errorf("paths.inventory_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.TileDir) != "" {
		if c.Paths.TileDir, err = expandPath(c.Paths.TileDir); err != nil {
			return fmt.Errorf("paths.tile_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeManifest() {
	if c.Manifest.StaleClaimTimeout <= 0 {
		c.Manifest.StaleClaimTimeout = defaultStaleClaimTimeout
	}
	if c.Manifest.SweepInterval <= 0 {
		c.Manifest.SweepInterval = defaultSweepInterval
	}
}

func (c *Config) normalizeEngine() {
	c.Engine.BaseURL = strings.TrimRight(strings.TrimSpace(c.Engine.BaseURL), "/")
	if c.Engine.TimeoutSeconds <= 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeoutSeconds
	}
	if c.Engine.MaxRetries <= 0 {
		c.Engine.MaxRetries = defaultEngineMaxRetries
	}
	if c.Engine.RetryBackoffSeconds <= 0 {
		c.Engine.RetryBackoffSeconds = defaultEngineRetryBackoffSeconds
	}
}

func (c *Config) normalizeTiles() {
	c.Tiles.Provider = strings.ToLower(strings.TrimSpace(c.Tiles.Provider))
	if c.Tiles.Provider == "" {
		c.Tiles.Provider = defaultTileProvider
	}
	c.Tiles.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tiles.BaseURL), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.LabelerID = strings.TrimSpace(c.LabelerID)
}
