package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"slipclip/internal/clip"
	"slipclip/internal/clipstore"
	"slipclip/internal/logging"
	"slipclip/internal/replay"
)

// ReplayExt is the extension of Slippi replay files.
const ReplayExt = ".slp"

// RecordWriter stores full-game player records. *clipstore.SQLiteStore
// satisfies it.
type RecordWriter interface {
	PutRecords(ctx context.Context, records []replay.PlayerRecord) (clipstore.WriteReport, error)
}

// ClippifyOptions configures a Clippify run.
type ClippifyOptions struct {
	InputDir string
	Store    clipstore.Store
	// Extractor defaults to one rejecting games under replay.MinGameSeconds.
	Extractor *replay.Extractor
	// LengthSeconds defaults to clip.DefaultLengthSeconds.
	LengthSeconds float64
	Logger        *slog.Logger
	Reporter      Reporter
}

// ExportOptions configures an Export run.
type ExportOptions struct {
	InputDir  string
	Store     RecordWriter
	Extractor *replay.Extractor
	Logger    *slog.Logger
	Reporter  Reporter
}

// ListReplays returns the replay paths directly inside dir, sorted, along
// with the number of other regular files skipped. Subdirectories are ignored.
func ListReplays(dir string) ([]string, int, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, 0, fmt.Errorf("%w: input directory is empty", ErrInvalidArgument)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: input directory: %v", ErrInvalidArgument, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read input directory: %w", err)
	}
	var (
		replays []string
		skipped int
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ReplayExt) {
			skipped++
			continue
		}
		replays = append(replays, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(replays)
	return replays, skipped, nil
}

type run struct {
	logger   *slog.Logger
	reporter Reporter
	summary  Summary
	started  time.Time
	total    int
}

func startRun(logger *slog.Logger, reporter Reporter, component string) *run {
	if logger == nil {
		logger = logging.NewNop()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	runID := uuid.NewString()
	return &run{
		logger:   logging.NewComponentLogger(logger, component).With(logging.String(logging.FieldRunID, runID)),
		reporter: reporter,
		summary:  newSummary(runID),
		started:  time.Now(),
	}
}

func (r *run) begin(ctx context.Context, replays []string, skipped int) {
	r.total = len(replays) + skipped
	r.summary.Files = r.total
	for range skipped {
		r.summary.fail(FailureWrongFiletype)
	}
	r.logger.InfoContext(ctx, "run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("replays", len(replays)),
		logging.Int("skipped", skipped),
	)
	r.reporter.Progress(skipped, r.total)
}

func (r *run) failed(path string, err error) {
	kind := Classify(err)
	r.summary.fail(kind)
	level := slog.LevelDebug
	if kind == FailureUnknown || kind == FailureWrite {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "replay skipped",
		logging.String(logging.FieldReplay, path),
		logging.String(logging.FieldEventType, "replay_failed"),
		logging.String("kind", string(kind)),
		logging.Error(err),
	)
}

func (r *run) finish(ctx context.Context) Summary {
	r.summary.Duration = time.Since(r.started)
	r.summary.log(ctx, r.logger, "run complete")
	return r.summary
}

func defaultExtractor(e *replay.Extractor) *replay.Extractor {
	if e == nil {
		return &replay.Extractor{}
	}
	return e
}

// Clippify segments every replay in InputDir into clips and stores them.
// Clip ids are reserved from the store per game, so concurrent runs against
// one store never collide. The summary is returned alongside any error.
func Clippify(ctx context.Context, opts ClippifyOptions) (Summary, error) {
	r := startRun(opts.Logger, opts.Reporter, "clippify")
	if opts.Store == nil {
		return r.summary, fmt.Errorf("%w: no clip store", ErrInvalidArgument)
	}
	length := opts.LengthSeconds
	if length == 0 {
		length = clip.DefaultLengthSeconds
	}
	if clip.WindowFrames(length) <= 0 {
		return r.summary, fmt.Errorf("%w: clip length %v seconds is shorter than a frame", ErrInvalidArgument, length)
	}
	replays, skipped, err := ListReplays(opts.InputDir)
	if err != nil {
		return r.summary, err
	}
	extractor := defaultExtractor(opts.Extractor)

	r.begin(ctx, replays, skipped)
	for i, path := range replays {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx), err
		}
		if err := clippifyOne(ctx, r, extractor, opts.Store, path, length); err != nil {
			if ctx.Err() != nil {
				return r.finish(ctx), ctx.Err()
			}
			r.failed(path, err)
		}
		r.reporter.Progress(skipped+i+1, r.total)
	}
	return r.finish(ctx), nil
}

func clippifyOne(ctx context.Context, r *run, extractor *replay.Extractor, store clipstore.Store, path string, length float64) error {
	records, err := extractor.Extract(path)
	if err != nil {
		return err
	}
	windows := clip.CountGameWindows(records, length)
	if windows == 0 {
		return fmt.Errorf("%w: no complete %v second window", clip.ErrSegmentationFailure, length)
	}
	start, err := store.Reserve(ctx, windows)
	if err != nil {
		return &writeError{fmt.Errorf("reserve clip ids: %w", err)}
	}
	clips, report, err := clip.SegmentGame(records, length, start)
	if err != nil {
		return err
	}
	if report.Failures > 0 {
		r.logger.Debug("windows skipped",
			logging.String(logging.FieldReplay, path),
			logging.Int("windows", report.Failures),
		)
	}

	written, err := store.Put(ctx, clips)
	if err != nil {
		return &writeError{err}
	}
	r.summary.ClipFailures += report.Failures + written.Failed
	if written.Written == 0 {
		return &writeError{errors.Join(failureErrors(written.Failures)...)}
	}
	r.summary.Games++
	r.summary.Clips += written.Written
	r.summary.Train += written.Train
	r.summary.Test += written.Test
	r.logger.Debug("replay clipped",
		logging.String(logging.FieldReplay, path),
		logging.String(logging.FieldGameID, replay.GameID(path)),
		logging.Int("players", len(records)),
		logging.Int("clips", written.Written),
	)
	return nil
}

func failureErrors(failures []clipstore.Failure) []error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("nothing written"))
	}
	return errs
}

// Export stores the full-game records of every replay in InputDir.
func Export(ctx context.Context, opts ExportOptions) (Summary, error) {
	r := startRun(opts.Logger, opts.Reporter, "export")
	if opts.Store == nil {
		return r.summary, fmt.Errorf("%w: no record store", ErrInvalidArgument)
	}
	replays, skipped, err := ListReplays(opts.InputDir)
	if err != nil {
		return r.summary, err
	}
	extractor := defaultExtractor(opts.Extractor)

	r.begin(ctx, replays, skipped)
	for i, path := range replays {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx), err
		}
		if err := exportOne(ctx, r, extractor, opts.Store, path); err != nil {
			if ctx.Err() != nil {
				return r.finish(ctx), ctx.Err()
			}
			r.failed(path, err)
		}
		r.reporter.Progress(skipped+i+1, r.total)
	}
	return r.finish(ctx), nil
}

func exportOne(ctx context.Context, r *run, extractor *replay.Extractor, store RecordWriter, path string) error {
	records, err := extractor.Extract(path)
	if err != nil {
		return err
	}
	report, err := store.PutRecords(ctx, records)
	if err != nil {
		return &writeError{err}
	}
	r.summary.ClipFailures += report.Failed
	if report.Written == 0 {
		return &writeError{errors.Join(failureErrors(report.Failures)...)}
	}
	r.summary.Games++
	r.summary.Records += report.Written
	return nil
}
