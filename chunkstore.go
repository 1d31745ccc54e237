package mappedfile

import (
	"errors"
	"unsafe"

	"mappedfile/platform"
	"mappedfile/refcount"
)

// ChunkStore is a reference-counted handle to one live mapped region. It is
// immutable except for its reference count, which is atomic — there is no
// internal locking.
//
// A ChunkStore is created on first access to any position inside its chunk
// and is kept alive by the union of the manager's own reservation and any
// outstanding consumer reservations. It unmaps itself when the last of
// those releases.
type ChunkStore struct {
	manager      *MappedFile
	startOffset  int64
	data         []byte
	mappedSize   int64
	safeCapacity int64
	refc         *refcount.Counter
}

// ChunkStoreFactory constructs a ChunkStore from an already-established
// mapping. It must return a live, count-1 store (or an error); the manager
// adds its own reservation afterward to reach count 2 before publishing it
// in the chunk table. A factory lets callers attach extra per-chunk state
// (e.g. a header parser) without the manager knowing about it.
type ChunkStoreFactory func(manager *MappedFile, startOffset int64, data []byte, mappedSize, safeCapacity int64) (*ChunkStore, error)

// NewChunkStore is the stock ChunkStoreFactory: it wraps an existing mapping
// with no extra state. It is the default used by AcquireByteStore when no
// factory is supplied.
func NewChunkStore(manager *MappedFile, startOffset int64, data []byte, mappedSize, safeCapacity int64) (*ChunkStore, error) {
	c := &ChunkStore{
		manager:      manager,
		startOffset:  startOffset,
		data:         data,
		mappedSize:   mappedSize,
		safeCapacity: safeCapacity,
	}
	c.refc = refcount.New(func() {
		_ = platform.Unmap(c.data)
	})
	return c, nil
}

// Capacity is the advisory write limit within this chunk. Bytes past it
// belong to the overlap window shared with the next chunk; writers that
// cross it should roll over to the next chunk's store instead.
func (c *ChunkStore) Capacity() int64 { return c.safeCapacity }

// Start returns the absolute file offset of byte 0 of this region.
func (c *ChunkStore) Start() int64 { return c.startOffset }

// MappedSize returns the full mapped length, including the trailing
// overlap window.
func (c *ChunkStore) MappedSize() int64 { return c.mappedSize }

// Address returns the process virtual address of the mapping's base, for
// observability only. Go code should prefer Bytes for actual access.
func (c *ChunkStore) Address() uintptr {
	if len(c.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.data[0]))
}

// Bytes returns the mapped region. The slice is valid only while the
// caller holds a reservation on this store.
func (c *ChunkStore) Bytes() []byte { return c.data }

// Reserve increments this store's reference count. Returns ErrAfterRelease
// if the store has already unmapped.
func (c *ChunkStore) Reserve() error {
	if err := c.refc.Reserve(); err != nil {
		if errors.Is(err, refcount.ErrAfterRelease) {
			return ErrAfterRelease
		}
		return err
	}
	return nil
}

// TryReserve is the non-blocking form used by the manager's chunk-table
// lookup: it reserves and returns true only if the store is still live.
func (c *ChunkStore) TryReserve() bool {
	return c.refc.TryReserve()
}

// Release decrements this store's reference count, unmapping the region
// when it reaches zero. Returns ErrRefCountUnderflow if called more times
// than reserved.
func (c *ChunkStore) Release() error {
	if err := c.refc.Release(); err != nil {
		if errors.Is(err, refcount.ErrUnderflow) {
			return ErrRefCountUnderflow
		}
		return err
	}
	return nil
}

// RefCount returns a snapshot of the current reference count. A value <= 0
// means the store has already unmapped.
func (c *ChunkStore) RefCount() int64 { return c.refc.Count() }

// drain forcibly zeroes the reference count, unmapping the region
// regardless of outstanding consumer reservations. Used only by
// MappedFile.Close for its best-effort shutdown; any consumer still
// holding a handle observes ErrAfterRelease/ErrRefCountUnderflow on its
// next operation.
func (c *ChunkStore) drain() {
	for {
		n := c.refc.Count()
		if n <= 0 {
			return
		}
		if err := c.refc.Release(); err != nil {
			return
		}
	}
}
