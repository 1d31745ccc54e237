package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestDiscardDropsRecords(t *testing.T) {
	logger := Discard()
	if logger.Handler().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("discard handler reported enabled for LevelError")
	}
}

func TestDefaultPassesThroughNonNil(t *testing.T) {
	logger := slog.Default()
	if got := Default(logger); got != logger {
		t.Fatal("Default replaced a non-nil logger")
	}
}

func TestDefaultReturnsDiscardForNil(t *testing.T) {
	got := Default(nil)
	if got.Handler().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("Default(nil) did not return a discard logger")
	}
}
