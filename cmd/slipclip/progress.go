package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"slipclip/internal/pipeline"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// barReporter drives a progress bar from pipeline progress callbacks.
type barReporter struct {
	bar *progressbar.ProgressBar
	max int
}

func (r *barReporter) Progress(done, total int) {
	if total != r.max {
		r.max = total
		r.bar.ChangeMax(total)
	}
	_ = r.bar.Set(done)
}

func (r *barReporter) finish() {
	_ = r.bar.Finish()
}

// newReporter returns a progress bar on a terminal and sampled log lines
// otherwise. The returned func must be called once the run ends.
func newReporter(w io.Writer, logger *slog.Logger, stage string) (pipeline.Reporter, func()) {
	if !isTerminal(w) {
		return pipeline.NewLogReporter(logger, stage), func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("replays"),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
	r := &barReporter{bar: bar, max: -1}
	return r, r.finish
}
