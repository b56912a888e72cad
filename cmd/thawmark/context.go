package main

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"thawmark/internal/config"
	"thawmark/internal/manifest"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*manifest.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := manifest.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// labelerID resolves the operator identity for claims: the configured value,
// or a generated one when the config leaves it blank.
func (c *commandContext) labelerID() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if id := strings.TrimSpace(cfg.LabelerID); id != "" {
		return id, nil
	}
	return "labeler-" + uuid.NewString()[:8], nil
}
