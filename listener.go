package mappedfile

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mappedfile/internal/logging"
)

// ChunkListener is invoked once whenever AcquireByteStore materializes a
// brand-new ChunkStore — never on a cache hit. elapsed measures the time
// spent in the growth-and-map step that produced it.
//
// Implementations must not panic. A panicking listener is a programming
// error; the manager recovers from it and logs rather than letting it
// corrupt acquisition state.
type ChunkListener func(path string, chunkIndex int64, elapsed time.Duration)

// DefaultChunkListener returns the listener installed automatically when a
// MappedFile is opened without one configured. It logs at debug level and
// tags each event with a fresh correlation ID so concurrent chunk
// materializations across goroutines can be told apart in the log stream.
func DefaultChunkListener(logger *slog.Logger) ChunkListener {
	logger = logging.Default(logger)
	return func(path string, chunkIndex int64, elapsed time.Duration) {
		logger.Debug("chunk materialized",
			"path", path,
			"chunk", chunkIndex,
			"elapsed", elapsed,
			"correlation_id", uuid.NewString(),
		)
	}
}
