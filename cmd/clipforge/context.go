package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/config"
	"clipforge/internal/logging"
)

// commandContext lazily loads configuration and the logger so commands that
// never need them (help, version) pay nothing.
type commandContext struct {
	configFlag *string

	cfg       *config.Config
	cfgLoaded bool
	logger    *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfgLoaded {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	c.cfg = cfg
	c.cfgLoaded = true
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var output io.Writer = os.Stderr
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err == nil {
			file, err := os.OpenFile(filepath.Join(cfg.Paths.LogDir, "clipforge.log"),
				os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				output = io.MultiWriter(os.Stderr, file)
			}
		}
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: output,
	})
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}
