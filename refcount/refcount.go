// Package refcount implements the two-state reference counter shared by
// MappedFile and ChunkStore: it starts at 1, supports non-blocking
// speculative reservation, and fires a release callback exactly once when
// the count transitions to zero.
//
// The counter has no notion of what it is counting — MappedFile uses one to
// track its own strong-reference lifetime, and every ChunkStore embeds a
// second, independent one for its mapping.
package refcount

import (
	"errors"
	"sync/atomic"
)

// ErrUnderflow is returned by Release when it is called more times than
// Reserve (including the implicit initial reservation of 1).
var ErrUnderflow = errors.New("refcount: release without matching reservation")

// ErrAfterRelease is returned by Reserve once the count has reached zero and
// the release callback has already fired. TryReserve reports the same
// condition by returning false.
var ErrAfterRelease = errors.New("refcount: reserve after release")

// Counter is an atomic, self-releasing reference count. The zero value is
// not usable; construct one with New.
type Counter struct {
	n       atomic.Int64
	release func()
	fired   atomic.Bool
}

// New returns a Counter starting at 1. onRelease is invoked exactly once,
// synchronously, the first time the count is observed to drop to zero. It
// must not be nil; pass a no-op func() {} if there is nothing to do.
func New(onRelease func()) *Counter {
	c := &Counter{release: onRelease}
	c.n.Store(1)
	return c
}

// Reserve increments the count. It fails with ErrAfterRelease if the count
// has already reached zero — calling Reserve on a dead counter is a
// programming error in the caller. Like TryReserve, it CASes against the
// observed count rather than checking fired separately, so it cannot
// straddle the zero transition and resurrect a counter that Release is
// concurrently tearing down.
func (c *Counter) Reserve() error {
	if !c.TryReserve() {
		return ErrAfterRelease
	}
	return nil
}

// TryReserve is the non-blocking form used by chunk-table lookups: it
// increments and returns true only if the counter has not yet reached zero.
// It never blocks and never fails loudly — a false return means "this
// instance is dead, create a new one instead."
func (c *Counter) TryReserve() bool {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return false
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Release decrements the count. When the decrement takes the count to zero,
// the release callback runs exactly once before Release returns. Calling
// Release more times than the counter was reserved returns ErrUnderflow and
// leaves the count unchanged.
func (c *Counter) Release() error {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return ErrUnderflow
		}
		next := cur - 1
		if !c.n.CompareAndSwap(cur, next) {
			continue
		}
		if next == 0 && c.fired.CompareAndSwap(false, true) {
			c.release()
		}
		return nil
	}
}

// Count returns the current count for observability. It is a snapshot and
// may be stale the instant it is read.
func (c *Counter) Count() int64 {
	return c.n.Load()
}
