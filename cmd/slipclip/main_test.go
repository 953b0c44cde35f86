package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slipclip/internal/config"
	"slipclip/internal/melee"
	"slipclip/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Clips.LengthSeconds = 0.5
	cfg.Clips.MinGameSeconds = 1
	cfg.Generator.BatchSize = 4
	cfg.Logging.Level = "error"

	replays := testsupport.ReplayBuilder{
		Frames: 120,
		Players: []testsupport.ReplayPlayer{
			{Port: 0, Character: uint8(melee.Fox), NetplayName: "Ali", NetplayCode: "ALI#1"},
			{Port: 1, Character: uint8(melee.Marth), NetplayCode: "BOB#2"},
		},
	}
	replays.Write(t, filepath.Join(cfg.Paths.ReplayDir, "Game_1.slp"))
	replays.Write(t, filepath.Join(cfg.Paths.ReplayDir, "Game_2.slp"))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIExtractListsPorts(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"extract", filepath.Join(env.cfg.Paths.ReplayDir, "Game_1.slp")}, env.configPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"Game_1.slp", "Fox", "Marth", "ALI#1", "BOB#2", "120"} {
		if !strings.Contains(out, want) {
			t.Fatalf("extract output missing %q:\n%s", want, out)
		}
	}
}

func TestCLIExtractReportsShortGame(t *testing.T) {
	env := setupCLITestEnv(t)
	short := filepath.Join(t.TempDir(), "short.slp")
	testsupport.ReplayBuilder{
		Frames:  10,
		Players: []testsupport.ReplayPlayer{{Port: 0, Character: uint8(melee.Fox)}},
	}.Write(t, short)

	if _, _, err := runCLI(t, []string{"extract", short}, env.configPath); err == nil {
		t.Fatal("expected error for short game")
	}
}

func TestCLIClippifyThenCount(t *testing.T) {
	for _, backend := range []string{config.BackendDirectory, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			env := setupCLITestEnv(t, testsupport.WithBackend(backend))

			out, _, err := runCLI(t, []string{"clippify"}, env.configPath)
			if err != nil {
				t.Fatalf("clippify: %v", err)
			}
			if !strings.Contains(out, "Summary") || !strings.Contains(out, "Clips") {
				t.Fatalf("clippify output missing summary:\n%s", out)
			}

			// Two games, two ports, four 30-frame windows each.
			out, _, err = runCLI(t, []string{"count"}, env.configPath)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if strings.TrimSpace(out) != "16" {
				t.Fatalf("count = %q, want 16", out)
			}

			out, _, err = runCLI(t, []string{"count", "--character", "fox", "--where", "clip_id<4"}, env.configPath)
			if err != nil {
				t.Fatalf("count filtered: %v", err)
			}
			if strings.TrimSpace(out) != "4" {
				t.Fatalf("filtered count = %q, want 4", out)
			}

			out, _, err = runCLI(t, []string{"count", "--by-character"}, env.configPath)
			if err != nil {
				t.Fatalf("count by character: %v", err)
			}
			if !strings.Contains(out, "Fox") || !strings.Contains(out, "Marth") {
				t.Fatalf("breakdown missing characters:\n%s", out)
			}
		})
	}
}

func TestCLIClippifyOverridesOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(t.TempDir(), "elsewhere")

	if _, _, err := runCLI(t, []string{"clippify", "--output", output, "--split"}, env.configPath); err != nil {
		t.Fatalf("clippify: %v", err)
	}
	var found int
	for _, partition := range []string{"train", "test"} {
		entries, _ := os.ReadDir(filepath.Join(output, partition))
		found += len(entries)
	}
	if found != 16 {
		t.Fatalf("expected 16 partitioned clips under %s, found %d", output, found)
	}
}

func TestCLIClippifyRejectsMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"clippify", "--input", filepath.Join(t.TempDir(), "missing")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "replay directory") {
		t.Fatalf("expected replay directory error, got %v", err)
	}
}

func TestCLIExportWritesRecords(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"export"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Records") {
		t.Fatalf("export output missing records:\n%s", out)
	}
}

func TestCLISampleDescribesBatches(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"clippify"}, env.configPath); err != nil {
		t.Fatalf("clippify: %v", err)
	}

	out, _, err := runCLI(t, []string{"sample", "--batches", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if !strings.Contains(out, "[4 x 30 x ") {
		t.Fatalf("sample output missing input shape:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"sample", "--batches", "1", "--target", "fox"}, env.configPath)
	if err != nil {
		t.Fatalf("balanced sample: %v", err)
	}
	if !strings.Contains(out, "[4 x 2]") {
		t.Fatalf("balanced sample output missing one-hot label shape:\n%s", out)
	}
}

func TestCLIDoctor(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 replays") {
		t.Fatalf("doctor output missing replay count:\n%s", out)
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slipclip.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("config init output missing path:\n%s", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}

	env := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("validate output:\n%s", out)
	}
}
