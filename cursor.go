package mappedfile

import "io"

// Cursor binds a position to the ChunkStore that covers it and exposes
// io.Reader/io.Writer access into it. It never spans chunk boundaries: a
// read or write that would cross one returns io.EOF for the remainder,
// leaving the caller to acquire the next chunk and continue there.
//
// The boundary depends on how the cursor was obtained. AcquireCursorFor*
// runs to the end of the mapped region, overlap window included — the
// caller owns that chunk acquisition outright. BindCursorFor* runs only to
// the store's safe Capacity, since a bound cursor is a handle being passed
// around rather than a fresh acquisition, and must not wander into the
// overlap tail that belongs to whatever rolls over into the next chunk.
//
// A Cursor holds its own reservation on the underlying ChunkStore,
// independent of whatever reservation the caller used to acquire it.
// Release must be called exactly once when the caller is done.
type Cursor struct {
	store  *ChunkStore
	pos    int64 // offset within store.Bytes()
	limit  int64 // exclusive upper bound within store.Bytes()
}

// AcquireCursorForRead acquires the chunk covering position from m and
// returns a Cursor into it, positioned at the byte offset within that
// chunk. The transient reservation used to acquire the chunk is released
// once the cursor holds its own. The returned Cursor is not restricted to
// reading: Write works on it too, since ChunkStore mappings are always
// read-write.
func AcquireCursorForRead(m *MappedFile, position int64) (*Cursor, error) {
	return acquireCursor(m, position, false)
}

// AcquireCursorForWrite is AcquireCursorForRead; both return the same kind
// of Cursor, which supports both Read and Write.
func AcquireCursorForWrite(m *MappedFile, position int64) (*Cursor, error) {
	return acquireCursor(m, position, true)
}

func acquireCursor(m *MappedFile, position int64, forWrite bool) (*Cursor, error) {
	cs, err := m.AcquireByteStore(position)
	if err != nil {
		return nil, err
	}

	// A freshly acquired cursor runs to the end of the mapping, including
	// the overlap window — it is the caller's own chunk acquisition, not a
	// handle being passed around, so there is nothing to guard against.
	cur, err := newCursor(cs, position, int64(len(cs.Bytes())))

	// The cursor took its own reservation in newCursor; release the
	// transient one from AcquireByteStore regardless of outcome.
	if relErr := cs.Release(); relErr != nil && err == nil {
		err = relErr
	}
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// BindCursorForRead binds a new Cursor to an already-held ChunkStore at the
// given absolute file position, taking its own reservation on store. Unlike
// AcquireCursorFor*, the limit is store.Capacity()-relative, not
// MappedSize()-relative: a bound cursor stops at the chunk's safe capacity
// and never wanders into the reserved overlap tail, since that tail belongs
// to whatever rolls over into the next chunk. position must fall within
// [store.Start(), store.Start()+store.MappedSize()]; a cursor bound exactly
// at the end has nothing left to read or write.
func BindCursorForRead(store *ChunkStore, position int64) (*Cursor, error) {
	return bindCursor(store, position)
}

// BindCursorForWrite is BindCursorForRead; both directions share one type
// since ChunkStore mappings are always read-write.
func BindCursorForWrite(store *ChunkStore, position int64) (*Cursor, error) {
	return bindCursor(store, position)
}

func bindCursor(store *ChunkStore, position int64) (*Cursor, error) {
	limit := store.Capacity() - (position - store.Start())
	return newCursor(store, position, limit)
}

// newCursor validates position against the store's actual mapping and
// constructs a Cursor truncated to limit bytes past position. limit is
// caller-supplied so AcquireCursorFor* and BindCursorFor* can apply their
// different boundary rules while sharing the same reservation and
// bounds-checking logic.
func newCursor(store *ChunkStore, position, limit int64) (*Cursor, error) {
	offset := position - store.Start()
	if offset < 0 || offset > int64(len(store.Bytes())) {
		return nil, ErrInvalidArgument
	}
	if limit < 0 {
		limit = 0
	}
	maxLimit := int64(len(store.Bytes())) - offset
	if limit > maxLimit {
		limit = maxLimit
	}
	if err := store.Reserve(); err != nil {
		return nil, err
	}
	return &Cursor{
		store: store,
		pos:   offset,
		limit: offset + limit,
	}, nil
}

// Position returns the cursor's current absolute file offset.
func (c *Cursor) Position() int64 { return c.store.Start() + c.pos }

// Remaining returns the number of bytes left before the cursor reaches its
// limit: the end of the mapped region for an acquired cursor, the store's
// Capacity for a bound one.
func (c *Cursor) Remaining() int64 { return c.limit - c.pos }

// Read implements io.Reader, reading from the current position and never
// crossing into the next chunk. It returns io.EOF once the cursor's limit
// is reached, same as a file reader at end-of-file.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.pos >= c.limit {
		return 0, io.EOF
	}
	n := copy(p, c.store.Bytes()[c.pos:c.limit])
	c.pos += int64(n)
	return n, nil
}

// Write implements io.Writer, writing at the current position and never
// crossing into the next chunk's mapping. It returns io.EOF (rather than
// silently short-writing) once the cursor's limit is reached, so callers
// that need to continue past a boundary can detect it and roll over to
// the next chunk themselves.
func (c *Cursor) Write(p []byte) (int, error) {
	if c.pos >= c.limit {
		return 0, io.EOF
	}
	n := copy(c.store.Bytes()[c.pos:c.limit], p)
	c.pos += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Release gives up this cursor's reservation on its backing ChunkStore.
func (c *Cursor) Release() error {
	return c.store.Release()
}
