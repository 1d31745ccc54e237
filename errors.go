package mappedfile

import (
	"errors"
	"fmt"
)

// Sentinel errors corresponding to the parameterless error kinds in the
// manager's taxonomy. Use errors.Is to test for them.
var (
	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("mappedfile: closed")

	// ErrInvalidArgument is returned for a negative position or an invalid
	// size parameter (e.g. a zero chunk size).
	ErrInvalidArgument = errors.New("mappedfile: invalid argument")

	// ErrAfterRelease is returned by Reserve on a handle whose reference
	// count has already reached zero (TryReserve reports the same condition
	// by returning false). It indicates a bug in the
	// caller: it held no valid reservation to reserve from.
	ErrAfterRelease = errors.New("mappedfile: reserve after release")

	// ErrRefCountUnderflow is returned when Release is called more times
	// than the handle was reserved.
	ErrRefCountUnderflow = errors.New("mappedfile: release without matching reservation")
)

// IoError wraps a failed map, unmap, resize, lock, or close syscall. Cause
// is always non-nil; use errors.Unwrap or errors.As to recover it.
type IoError struct {
	Op    string
	Cause error
}

func (e *IoError) Error() string { return fmt.Sprintf("mappedfile: %s: %v", e.Op, e.Cause) }
func (e *IoError) Unwrap() error { return e.Cause }

// ResizeError wraps a failed file resize attempted during the growth
// protocol. Target is the size that was requested.
type ResizeError struct {
	Target int64
	Cause  error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("mappedfile: resize to %d bytes failed: %v", e.Target, e.Cause)
}
func (e *ResizeError) Unwrap() error { return e.Cause }
