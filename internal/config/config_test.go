package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slipclip/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SLIPCLIP_REPLAY_DIR", "")
	t.Setenv("SLIPCLIP_CLIP_DIR", "")

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

	wantClips := filepath.Join(tempHome, ".local", "share", "slipclip", "clips")
	if cfg.Paths.ClipDir != wantClips {
		t.Fatalf("unexpected clip dir: got %q want %q", cfg.Paths.ClipDir, wantClips)
	}
	if cfg.Paths.ReplayDir != filepath.Join(tempHome, "Slippi") {
		t.Fatalf("unexpected replay dir: %q", cfg.Paths.ReplayDir)
	}
	if cfg.Store.Backend != config.BackendDirectory {
		t.Fatalf("unexpected backend: %q", cfg.Store.Backend)
	}
	if cfg.Store.DatabasePath != filepath.Join(wantClips, "clips.db") {
		t.Fatalf("unexpected database path: %q", cfg.Store.DatabasePath)
	}
	if cfg.Store.TestFraction != 0.1 {
		t.Fatalf("unexpected test fraction: %v", cfg.Store.TestFraction)
	}
	if cfg.Clips.LengthSeconds != 30 || cfg.Clips.MinGameSeconds != 60 {
		t.Fatalf("unexpected clip settings: %+v", cfg.Clips)
	}
	if cfg.Generator.BatchSize != 32 || !cfg.Generator.Shuffle || cfg.Generator.Repeat || !cfg.Generator.OneHot {
		t.Fatalf("unexpected generator settings: %+v", cfg.Generator)
	}
	if cfg.API.Bind != "127.0.0.1:7495" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ClipDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.ReplayDir); !os.IsNotExist(err) {
		t.Fatalf("replay dir should not be created, stat err = %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "slipclip.toml")

	type payload struct {
		Paths struct {
			ReplayDir string `toml:"replay_dir"`
			ClipDir   string `toml:"clip_dir"`
		} `toml:"paths"`
		Store struct {
			Backend        string  `toml:"backend"`
			TrainTestSplit bool    `toml:"train_test_split"`
			TestFraction   float64 `toml:"test_fraction"`
		} `toml:"store"`
		Clips struct {
			LengthSeconds float64 `toml:"length_seconds"`
		} `toml:"clips"`
		Generator struct {
			Shuffle bool    `toml:"shuffle"`
			Ratio   float64 `toml:"ratio"`
		} `toml:"generator"`
	}
	custom := payload{}
	custom.Paths.ReplayDir = filepath.Join(tempDir, "replays")
	custom.Paths.ClipDir = filepath.Join(tempDir, "clips")
	custom.Store.Backend = "SQLite"
	custom.Store.TrainTestSplit = true
	custom.Store.TestFraction = 0.25
	custom.Clips.LengthSeconds = 2.5
	custom.Generator.Ratio = 3

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected %q to be loaded, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Store.Backend != config.BackendSQLite {
		t.Fatalf("expected backend to normalize to sqlite, got %q", cfg.Store.Backend)
	}
	if !cfg.Store.TrainTestSplit || cfg.Store.TestFraction != 0.25 {
		t.Fatalf("unexpected store settings: %+v", cfg.Store)
	}
	if cfg.Store.DatabasePath != filepath.Join(tempDir, "clips", "clips.db") {
		t.Fatalf("unexpected database path: %q", cfg.Store.DatabasePath)
	}
	if cfg.Clips.LengthSeconds != 2.5 {
		t.Fatalf("unexpected clip length: %v", cfg.Clips.LengthSeconds)
	}
	if cfg.Generator.Shuffle {
		t.Fatal("expected explicit shuffle=false to be honoured")
	}
	if cfg.Generator.Ratio != 3 {
		t.Fatalf("unexpected ratio: %v", cfg.Generator.Ratio)
	}
}

func TestLoadEnvironmentOverridesPaths(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("SLIPCLIP_REPLAY_DIR", filepath.Join(tempDir, "env-replays"))
	t.Setenv("SLIPCLIP_CLIP_DIR", filepath.Join(tempDir, "env-clips"))

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ReplayDir != filepath.Join(tempDir, "env-replays") {
		t.Fatalf("unexpected replay dir: %q", cfg.Paths.ReplayDir)
	}
	if cfg.Paths.ClipDir != filepath.Join(tempDir, "env-clips") {
		t.Fatalf("unexpected clip dir: %q", cfg.Paths.ClipDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"backend", "[store]\nbackend = \"mongo\"\n", "store.backend"},
		{"fraction zero", "[store]\ntest_fraction = 0.0\n", "store.test_fraction"},
		{"fraction one", "[store]\ntest_fraction = 1.0\n", "store.test_fraction"},
		{"length", "[clips]\nlength_seconds = 0.001\n", "clips.length_seconds"},
		{"batch size", "[generator]\nbatch_size = 0\n", "generator.batch_size"},
		{"ratio", "[generator]\nratio = -1.0\n", "generator.ratio"},
		{"unknown key", "[store]\nflavour = \"x\"\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("HOME", dir)
			path := filepath.Join(dir, "slipclip.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("SLIPCLIP_REPLAY_DIR", "")
	t.Setenv("SLIPCLIP_CLIP_DIR", "")
	path := filepath.Join(dir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	want := config.Default()
	if cfg.Clips != want.Clips || cfg.Generator != want.Generator || cfg.API != want.API {
		t.Fatalf("sample config drifted from defaults: %+v", cfg)
	}
}
