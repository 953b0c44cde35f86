package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler writes one object per line with ts/level/msg keys. Durations
// are rendered as Go duration strings so run summaries stay readable in the
// mirrored log file.
func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}

// mirrorHandler sends every record to a primary handler and a copy to a
// secondary one. Each handler applies its own level.
type mirrorHandler struct {
	primary, secondary slog.Handler
}

func newMirrorHandler(primary, secondary slog.Handler) slog.Handler {
	if secondary == nil {
		return primary
	}
	return &mirrorHandler{primary: primary, secondary: secondary}
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *mirrorHandler) Handle(ctx context.Context, record slog.Record) error {
	var primaryErr error
	if h.primary.Enabled(ctx, record.Level) {
		primaryErr = h.primary.Handle(ctx, record.Clone())
	}
	if h.secondary.Enabled(ctx, record.Level) {
		if err := h.secondary.Handle(ctx, record); err != nil && primaryErr == nil {
			return err
		}
	}
	return primaryErr
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}
