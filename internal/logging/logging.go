// Package logging holds the small dependency-injection helpers mappedfile
// uses around log/slog.
//
// mappedfile never calls slog.SetDefault or reaches for a package-level
// logger: every component that wants to log takes a *slog.Logger (or nil)
// at construction time and scopes it once with With(). Logging stays out of
// hot paths — acquireByteStore's steady state never logs, and neither does
// file growth; only chunk materialization (through the default listener), a
// panicking listener, and a failed file close at release do.
package logging

import (
	"context"
	"log/slog"
)

// discardHandler drops every record it receives.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that throws away everything written to it.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if it is non-nil, otherwise a discard logger.
//
//	logger = logging.Default(cfg.Logger).With("component", "mappedfile")
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
