package mappedfile

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefaultChunkListenerLogsMaterialization(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	listener := DefaultChunkListener(logger)
	listener("/tmp/data.bin", 3, 2*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "chunk materialized") {
		t.Fatalf("log output missing message: %q", out)
	}
	if !strings.Contains(out, "correlation_id") {
		t.Fatalf("log output missing correlation_id: %q", out)
	}
}

func TestDefaultChunkListenerNilLoggerDoesNotPanic(t *testing.T) {
	listener := DefaultChunkListener(nil)
	listener("/tmp/data.bin", 0, time.Millisecond)
}
