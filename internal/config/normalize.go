package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SLIPCLIP_REPLAY_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ReplayDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SLIPCLIP_CLIP_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ClipDir = strings.TrimSpace(value)
	}

	var err error
	if c.Paths.ReplayDir, err = expandPath(c.Paths.ReplayDir); err != nil {
		return fmt.Errorf("paths.replay_dir: %w", err)
	}
	if c.Paths.ClipDir, err = expandPath(c.Paths.ClipDir); err != nil {
		return fmt.Errorf("paths.clip_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendDirectory
	}
	if strings.TrimSpace(c.Store.DatabasePath) == "" {
		c.Store.DatabasePath = filepath.Join(c.Paths.ClipDir, defaultDatabaseName)
	}
	var err error
	if c.Store.DatabasePath, err = expandPath(c.Store.DatabasePath); err != nil {
		return fmt.Errorf("store.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
