package testsupport

import (
	"path/filepath"
	"testing"

	"slipclip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Partition draws and shuffles are seeded so runs are reproducible.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ReplayDir = filepath.Join(base, "replays")
	cfgVal.Paths.ClipDir = filepath.Join(base, "clips")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.DatabasePath = filepath.Join(base, "clips", "clips.db")
	cfgVal.Generator.Seed = 1
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackend selects the clip store backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// WithSplit enables train/test partitioning with the given test fraction.
func WithSplit(fraction float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.TrainTestSplit = true
		b.cfg.Store.TestFraction = fraction
	}
}

// WithClipLength overrides the clip length in seconds.
func WithClipLength(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clips.LengthSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ClipDir)
}
