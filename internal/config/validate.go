package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateManifest(); err != nil {
		return err
	}
	if err := c.validateExtractor(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTiles(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateManifest() error {
	if c.Manifest.StaleClaimTimeout < 1 {
		return errors.New("manifest.stale_claim_timeout must be at least 1 minute")
	}
	if c.Manifest.SweepInterval < 1 {
		return errors.New("manifest.sweep_interval must be at least 1 minute")
	}
	return nil
}

func (c *Config) validateExtractor() error {
	if c.Extractor.SimplifyTolerance < 0 {
		return errors.New("extractor.simplify_tolerance must not be negative")
	}
	if c.Extractor.MinAreaPixels < 0 {
		return errors.New("extractor.min_area_pixels must not be negative")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.TimeoutSeconds < 1 {
		return errors.New("engine.timeout_seconds must be at least 1")
	}
	if c.Engine.MaxRetries < 1 {
		return errors.New("engine.max_retries must be at least 1")
	}
	return nil
}

func (c *Config) validateTiles() error {
	switch c.Tiles.Provider {
	case "dir":
		return nil
	case "http":
		if c.Tiles.BaseURL == "" {
			return errors.New("tiles.base_url must be set when tiles.provider is \"http\"")
		}
		return nil
	default:
		return fmt.Errorf("tiles.provider: unsupported value %q", c.Tiles.Provider)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
