package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"slipclip/internal/clipstore"
	"slipclip/internal/config"
	"slipclip/internal/pipeline"
	"slipclip/internal/preflight"
)

type runFlags struct {
	input   string
	output  string
	length  float64
	split   bool
	backend string
}

// apply copies flag overrides onto a private copy of cfg.
func (f runFlags) apply(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := overrideConfig(base)
	if cmd.Flags().Changed("input") {
		path, err := config.ExpandPath(f.input)
		if err != nil {
			return nil, fmt.Errorf("resolve input: %w", err)
		}
		cfg.Paths.ReplayDir = path
	}
	if cmd.Flags().Changed("output") {
		path, err := config.ExpandPath(f.output)
		if err != nil {
			return nil, fmt.Errorf("resolve output: %w", err)
		}
		if cfg.Store.DatabasePath == filepath.Join(cfg.Paths.ClipDir, "clips.db") {
			cfg.Store.DatabasePath = filepath.Join(path, "clips.db")
		}
		cfg.Paths.ClipDir = path
	}
	if cmd.Flags().Changed("length") {
		cfg.Clips.LengthSeconds = f.length
	}
	if cmd.Flags().Changed("split") {
		cfg.Store.TrainTestSplit = f.split
	}
	if cmd.Flags().Changed("backend") {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(f.backend))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkRun stops a bulk run before it starts when its directories are
// unusable.
func checkRun(cfg *config.Config) error {
	results := []preflight.Result{
		preflight.CheckReplayDirectory("Replay directory", cfg.Paths.ReplayDir),
		preflight.CheckDirectoryAccess("Clip directory", cfg.Paths.ClipDir),
	}
	if failed, ok := preflight.FirstFailure(results); ok {
		return fmt.Errorf("%s: %s", strings.ToLower(failed.Name), failed.Detail)
	}
	return nil
}

func newClippifyCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "clippify",
		Short: "Segment a directory of replays into fixed-length clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			if err := checkRun(cfg); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withStore(cfg, func(store clipstore.Store) error {
				reporter, done := newReporter(cmd.ErrOrStderr(), logger, "clippify")
				summary, runErr := pipeline.Clippify(cmd.Context(), pipeline.ClippifyOptions{
					InputDir:      cfg.Paths.ReplayDir,
					Store:         store,
					Extractor:     newExtractor(cfg),
					LengthSeconds: cfg.Clips.LengthSeconds,
					Logger:        logger,
					Reporter:      reporter,
				})
				done()
				printSummary(cmd.Context(), cmd.OutOrStdout(), summary, store, cfg)
				return runErr
			})
		},
	}

	addRunFlags(cmd, &flags)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Clip directory (defaults to paths.clip_dir)")
	cmd.Flags().Float64Var(&flags.length, "length", 0, "Clip length in seconds (defaults to clips.length_seconds)")
	cmd.Flags().BoolVar(&flags.split, "split", false, "Assign clips to train/test partitions")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Store backend: directory or sqlite")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Store full-game player records in the SQLite collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			if err := checkRun(cfg); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			collection, err := clipstore.OpenCollection(cfg)
			if err != nil {
				return fmt.Errorf("open collection: %w", err)
			}
			defer collection.Close()

			reporter, done := newReporter(cmd.ErrOrStderr(), logger, "export")
			summary, runErr := pipeline.Export(cmd.Context(), pipeline.ExportOptions{
				InputDir:  cfg.Paths.ReplayDir,
				Store:     collection,
				Extractor: newExtractor(cfg),
				Logger:    logger,
				Reporter:  reporter,
			})
			done()
			printSummary(cmd.Context(), cmd.OutOrStdout(), summary, collection, cfg)
			return runErr
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Replay directory (defaults to paths.replay_dir)")
}

type sizer interface {
	DiskUsage(ctx context.Context) (int64, error)
}

func printSummary(ctx context.Context, out io.Writer, s pipeline.Summary, store sizer, cfg *config.Config) {
	rows := [][]string{
		{"Run", s.RunID},
		{"Files", strconv.Itoa(s.Files)},
		{"Games", strconv.Itoa(s.Games)},
	}
	if s.Records > 0 || s.Clips == 0 {
		rows = append(rows, []string{"Records", strconv.Itoa(s.Records)})
	}
	if s.Clips > 0 {
		rows = append(rows, []string{"Clips", strconv.Itoa(s.Clips)})
	}
	if cfg.Store.TrainTestSplit {
		rows = append(rows,
			[]string{"Train", strconv.Itoa(s.Train)},
			[]string{"Test", strconv.Itoa(s.Test)},
		)
	}
	if s.ClipFailures > 0 {
		rows = append(rows, []string{"Lost windows", strconv.Itoa(s.ClipFailures)})
	}
	for _, kind := range s.Kinds() {
		rows = append(rows, []string{"Failed (" + string(kind) + ")", strconv.Itoa(s.Failures[kind])})
	}
	rows = append(rows, []string{"Duration", s.Duration.Round(time.Millisecond).String()})
	if size, err := store.DiskUsage(ctx); err == nil {
		rows = append(rows, []string{"Store size", humanize.Bytes(uint64(size))})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		title:   "Summary",
		headers: []string{"Metric", "Value"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight},
	}))
}
