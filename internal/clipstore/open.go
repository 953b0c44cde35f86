package clipstore

import (
	"fmt"
	"math/rand/v2"

	"slipclip/internal/config"
)

// OptionsFromConfig derives write options from the [store] section. A
// non-zero generator seed makes partition draws reproducible.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Split:        cfg.Store.TrainTestSplit,
		TestFraction: cfg.Store.TestFraction,
	}
	if seed := cfg.Generator.Seed; seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(seed, seed^0x5eed))
	}
	return opts
}

// Open opens the store backend selected by configuration.
func Open(cfg *config.Config, opts Options) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Store.Backend {
	case config.BackendDirectory, "":
		return OpenDir(cfg.Paths.ClipDir, opts)
	case config.BackendSQLite:
		return OpenSQLite(cfg.Store.DatabasePath, opts)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidArgument, cfg.Store.Backend)
	}
}

// OpenCollection opens the SQLite collection regardless of the configured
// clip backend; full-game exports always live there.
func OpenCollection(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenSQLite(cfg.Store.DatabasePath, Options{})
}
