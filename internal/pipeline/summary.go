package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"slipclip/internal/clip"
	"slipclip/internal/logging"
	"slipclip/internal/replay"
)

// ErrInvalidArgument reports a run that cannot start.
var ErrInvalidArgument = errors.New("invalid argument")

// FailureKind classifies why a replay contributed nothing.
type FailureKind string

const (
	FailureTooShort      FailureKind = "too_short"
	FailureParse         FailureKind = "parse"
	FailureInvalidGame   FailureKind = "invalid_game"
	FailureSegmentation  FailureKind = "segmentation"
	FailureWrite         FailureKind = "write"
	FailureUnknown       FailureKind = "unknown"
	FailureWrongFiletype FailureKind = "wrong_filetype"
)

// Classify maps an error from extraction, segmentation or storage to its
// failure kind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, replay.ErrGameTooShort):
		return FailureTooShort
	case replay.IsParseError(err):
		return FailureParse
	case errors.Is(err, replay.ErrInvalidGame):
		return FailureInvalidGame
	case errors.Is(err, clip.ErrSegmentationFailure):
		return FailureSegmentation
	case errors.As(err, new(*writeError)):
		return FailureWrite
	default:
		return FailureUnknown
	}
}

// writeError marks a storage failure so Classify can tell it apart from
// extraction errors.
type writeError struct{ err error }

func (e *writeError) Error() string { return "write: " + e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// Summary reports one bulk run.
type Summary struct {
	RunID string
	// Files is every directory entry considered, including skipped ones.
	Files int
	// Games counts replays that contributed at least one clip or record.
	Games int
	// Clips and Records count stored rows; ClipFailures counts windows or
	// rows lost inside otherwise successful games.
	Clips        int
	Records      int
	ClipFailures int
	Train        int
	Test         int
	Failures     map[FailureKind]int
	Duration     time.Duration
}

func newSummary(runID string) Summary {
	return Summary{RunID: runID, Failures: make(map[FailureKind]int)}
}

func (s *Summary) fail(kind FailureKind) {
	s.Failures[kind]++
}

// Failed returns the number of files that contributed nothing.
func (s Summary) Failed() int {
	total := 0
	for _, n := range s.Failures {
		total += n
	}
	return total
}

// Kinds returns the failure kinds present, sorted.
func (s Summary) Kinds() []FailureKind {
	return slices.Sorted(maps.Keys(s.Failures))
}

// String renders failure counts as "kind=n" pairs.
func (s Summary) String() string {
	parts := make([]string, 0, len(s.Failures))
	for _, kind := range s.Kinds() {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, s.Failures[kind]))
	}
	if len(parts) == 0 {
		return "no failures"
	}
	return strings.Join(parts, " ")
}

func (s Summary) log(ctx context.Context, logger *slog.Logger, msg string) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("files", s.Files),
		logging.Int("games", s.Games),
		logging.Int("clips", s.Clips),
		logging.Int("records", s.Records),
		logging.Int("failed", s.Failed()),
		logging.Duration("duration", s.Duration),
	}
	for _, kind := range s.Kinds() {
		attrs = append(attrs, logging.Int("failed_"+string(kind), s.Failures[kind]))
	}
	logger.InfoContext(ctx, msg, logging.Args(attrs...)...)
}
