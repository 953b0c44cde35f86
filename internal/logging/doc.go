// Package logging assembles structured slog loggers for slipclip.
//
// It owns the console and JSON handlers, level and output plumbing, a mirror
// handler that copies console output into a JSON log file, and a progress
// sampler that keeps bulk runs from flooding the log. NewNop serves tests and
// wiring code that cannot fail.
package logging
