package logging

import (
	"log/slog"
	"time"
)

// Attr is slog.Attr; the constructors below cover the kinds slipclip logs.
type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error records err under "error". A nil error yields an empty Attr, which
// handlers drop.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.String("error", err.Error())
}

// Args converts attrs for the variadic slog.Logger methods.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}
