package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.ClipDir == "" {
		return errors.New("paths.clip_dir must be set")
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateClips(); err != nil {
		return err
	}
	return c.validateGenerator()
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendDirectory, BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendDirectory, BackendSQLite, c.Store.Backend)
	}
	if c.Store.TestFraction <= 0 || c.Store.TestFraction >= 1 || math.IsNaN(c.Store.TestFraction) {
		return errors.New("store.test_fraction must be in (0,1)")
	}
	return nil
}

func (c *Config) validateClips() error {
	// Anything under one frame floors to an empty window.
	if c.Clips.LengthSeconds*60 < 1 {
		return errors.New("clips.length_seconds must cover at least one frame")
	}
	if c.Clips.MinGameSeconds < 0 {
		return errors.New("clips.min_game_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateGenerator() error {
	if c.Generator.BatchSize <= 0 {
		return errors.New("generator.batch_size must be positive")
	}
	if !(c.Generator.Ratio > 0) {
		return errors.New("generator.ratio must be positive")
	}
	return nil
}
