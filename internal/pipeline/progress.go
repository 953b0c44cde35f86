package pipeline

import (
	"log/slog"

	"slipclip/internal/logging"
)

// Reporter receives a count-of-total signal after each file.
type Reporter interface {
	Progress(done, total int)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(done, total int)

// Progress implements Reporter.
func (f ReporterFunc) Progress(done, total int) { f(done, total) }

type nopReporter struct{}

func (nopReporter) Progress(int, int) {}

// LogReporter logs progress at 5% steps.
type LogReporter struct {
	logger  *slog.Logger
	stage   string
	sampler *logging.ProgressSampler
}

// NewLogReporter returns a reporter that logs through logger.
func NewLogReporter(logger *slog.Logger, stage string) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger, stage: stage, sampler: logging.NewProgressSampler(5)}
}

// Progress implements Reporter.
func (r *LogReporter) Progress(done, total int) {
	if !r.sampler.ShouldLog(done, total) {
		return
	}
	r.logger.Info("progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.String("stage", r.stage),
		logging.Int("done", done),
		logging.Int("total", total),
	)
}
