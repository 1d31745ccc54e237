// Package mappedfile presents a sparse file of configurable logical
// capacity as an on-demand set of fixed-size memory-mapped regions
// ("chunks"), each extended by a trailing overlap window so that records
// straddling a chunk boundary can be read and written contiguously.
//
// MappedFile owns the file handle, grows the file under an advisory lock
// shared with cooperating processes, caches live mappings, and hands out
// reference-counted ChunkStore handles into them. There are no durability
// guarantees beyond what the host OS provides for mapped pages, no
// free/unmap of a chunk before the manager itself is released, no
// cross-node coordination, and no record framing — chunks are sticky once
// created, and layering a record format or checksum on top is a caller
// concern (see the sibling checksum package for one thin example).
package mappedfile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"mappedfile/internal/logging"
	"mappedfile/platform"
	"mappedfile/refcount"
)

// DefaultCapacity is the logical upper bound on file size used when a
// MappedFile is opened without an explicit WithCapacity option.
const DefaultCapacity = int64(1) << 40

// Option configures a MappedFile at Open time.
type Option func(*options)

type options struct {
	capacity int64
	logger   *slog.Logger
	listener ChunkListener
	factory  ChunkStoreFactory
}

// WithCapacity overrides the default logical capacity (2^40 bytes).
// Capacity is advisory: the manager never bounds-checks positions against
// it, callers do.
func WithCapacity(capacity int64) Option {
	return func(o *options) { o.capacity = capacity }
}

// WithLogger injects a structured logger. A nil logger (the default)
// discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithChunkListener installs the hook fired on chunk materialization. A nil
// listener (the default) logs at debug level via the configured logger.
func WithChunkListener(l ChunkListener) Option {
	return func(o *options) { o.listener = l }
}

// WithChunkStoreFactory overrides the stock ChunkStore constructor used by
// AcquireByteStore when no per-call factory is supplied.
func WithChunkStoreFactory(f ChunkStoreFactory) Option {
	return func(o *options) { o.factory = f }
}

func newOptions(opts []Option) *options {
	o := &options{
		capacity: DefaultCapacity,
		factory:  NewChunkStore,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MappedFile is the chunk manager: it owns the file handle, the chunk
// table, and the growth protocol. The zero value is not usable; construct
// one with Open or OpenWithOverlap.
type MappedFile struct {
	path        string
	file        *os.File
	chunkSize   int64
	overlapSize int64
	capacity    int64
	logger      *slog.Logger

	tableMu sync.Mutex
	chunks  []*ChunkStore

	strong *refcount.Counter
	closed bool // guarded by closeMu
	closeMu sync.Mutex

	listenerMu sync.RWMutex
	listener   ChunkListener

	factory ChunkStoreFactory
}

// Open opens path read-write (creating it if absent) and returns a manager
// whose overlap window defaults to one OS page. chunkSize and the default
// overlap are rounded up to a multiple of the page size.
func Open(path string, chunkSize int64, opts ...Option) (*MappedFile, error) {
	return OpenWithOverlap(path, chunkSize, int64(platform.PageSize()), opts...)
}

// OpenWithOverlap is Open with an explicit overlap size, including zero
// (which collapses the overlap window entirely: mappedSize == chunkSize).
func OpenWithOverlap(path string, chunkSize, overlapSize int64, opts ...Option) (*MappedFile, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidArgument
	}
	if overlapSize < 0 {
		return nil, ErrInvalidArgument
	}

	o := newOptions(opts)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &IoError{Op: "open", Cause: err}
	}

	m := &MappedFile{
		path:        path,
		file:        f,
		chunkSize:   platform.AlignUp(chunkSize),
		overlapSize: platform.AlignUp(overlapSize),
		capacity:    o.capacity,
		logger:      logging.Default(o.logger).With("component", "mappedfile"),
		factory:     o.factory,
	}
	m.strong = refcount.New(m.performRelease)

	listener := o.listener
	if listener == nil {
		listener = DefaultChunkListener(m.logger)
	}
	m.listener = listener

	return m, nil
}

// WithSizes returns a manager using the given chunk/overlap sizes (rounded
// up to the page size). If they match this manager's effective sizes it
// returns the same instance.
//
// Otherwise it constructs a NEW manager sharing the same open file handle
// and releases the caller's reservation on this one. The two managers then
// have independent chunk tables over the same bytes on disk — callers must
// not mix handles from both. This mirrors a documented hazard in the
// source design this module is built from: if the caller held the last
// reservation on the old manager, that release runs performRelease, which
// closes the shared file handle out from under the new manager. Existing
// callers are expected to either stop using the old manager entirely after
// calling WithSizes, or keep at least one other reservation alive on it.
func (m *MappedFile) WithSizes(newChunkSize, newOverlapSize int64) (*MappedFile, error) {
	if newChunkSize <= 0 {
		return nil, ErrInvalidArgument
	}
	if newOverlapSize < 0 {
		return nil, ErrInvalidArgument
	}

	newChunkSize = platform.AlignUp(newChunkSize)
	newOverlapSize = platform.AlignUp(newOverlapSize)
	if newChunkSize == m.chunkSize && newOverlapSize == m.overlapSize {
		return m, nil
	}

	other := &MappedFile{
		path:        m.path,
		file:        m.file,
		chunkSize:   newChunkSize,
		overlapSize: newOverlapSize,
		capacity:    m.capacity,
		logger:      m.logger,
		factory:     m.factory,
	}
	other.strong = refcount.New(other.performRelease)
	other.listener = m.listener

	if err := m.Release(); err != nil {
		return nil, err
	}
	return other, nil
}

// AcquireByteStore returns the ChunkStore covering position, using the
// manager's configured factory. The manager does not bounds-check position
// against Capacity; callers enforce that.
func (m *MappedFile) AcquireByteStore(position int64) (*ChunkStore, error) {
	return m.acquireByteStore(position, m.factory)
}

// AcquireByteStoreWith is AcquireByteStore with a caller-supplied factory,
// for attaching extra per-chunk state.
func (m *MappedFile) AcquireByteStoreWith(position int64, factory ChunkStoreFactory) (*ChunkStore, error) {
	if factory == nil {
		factory = m.factory
	}
	return m.acquireByteStore(position, factory)
}

func (m *MappedFile) acquireByteStore(position int64, factory ChunkStoreFactory) (*ChunkStore, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	if position < 0 {
		return nil, ErrInvalidArgument
	}

	chunkIdx := position / m.chunkSize

	m.tableMu.Lock()

	if m.isClosed() {
		m.tableMu.Unlock()
		return nil, ErrClosed
	}

	for int64(len(m.chunks)) <= chunkIdx {
		m.chunks = append(m.chunks, nil)
	}

	if cs := m.chunks[chunkIdx]; cs != nil {
		if cs.TryReserve() {
			m.tableMu.Unlock()
			return cs, nil
		}
		// Dead weak entry: treat as absent, replace in place below.
		m.chunks[chunkIdx] = nil
	}

	start := chunkIdx * m.chunkSize
	mappedSize := m.chunkSize + m.overlapSize
	minSize := start + mappedSize

	// Elapsed time reported to the listener starts here, covering the
	// growth-and-map step as a whole, including any time blocked waiting
	// on the cross-process advisory file lock inside ensureSize.
	growthStart := time.Now()

	if err := m.ensureSize(minSize); err != nil {
		m.tableMu.Unlock()
		return nil, err
	}

	data, err := platform.Map(m.file, start, mappedSize)
	if err != nil {
		m.tableMu.Unlock()
		return nil, &IoError{Op: "map", Cause: err}
	}

	safeCapacity := m.chunkSize + m.overlapSize/2
	cs, err := factory(m, start, data, mappedSize, safeCapacity)
	if err != nil {
		_ = platform.Unmap(data)
		m.tableMu.Unlock()
		return nil, err
	}

	// The manager's own reservation keeps the store cached even once the
	// caller releases theirs; the store now has count 2.
	if err := cs.Reserve(); err != nil {
		_ = cs.Release()
		m.tableMu.Unlock()
		return nil, err
	}

	m.chunks[chunkIdx] = cs
	m.tableMu.Unlock()

	m.fireListener(chunkIdx, time.Since(growthStart))

	return cs, nil
}

// ensureSize grows the file to at least minSize, double-checking under an
// advisory exclusive lock so that a process that already sees the file
// large enough never takes the lock, and two processes racing growth never
// resize to different lengths.
func (m *MappedFile) ensureSize(minSize int64) error {
	size, err := platform.Size(m.file)
	if err != nil {
		return &IoError{Op: "size", Cause: err}
	}
	if size >= minSize {
		return nil
	}

	lock, err := platform.LockExclusive(m.file)
	if err != nil {
		return &IoError{Op: "lock", Cause: err}
	}
	defer lock.Release()

	size, err = platform.Size(m.file)
	if err != nil {
		return &IoError{Op: "size", Cause: err}
	}
	if size >= minSize {
		return nil
	}

	if err := platform.Resize(m.file, minSize); err != nil {
		return &ResizeError{Target: minSize, Cause: err}
	}
	return nil
}

func (m *MappedFile) fireListener(chunkIdx int64, elapsed time.Duration) {
	m.listenerMu.RLock()
	l := m.listener
	m.listenerMu.RUnlock()
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("new chunk listener panicked", "path", m.path, "chunk", chunkIdx, "panic", r)
		}
	}()
	l(m.path, chunkIdx, elapsed)
}

// Reserve increments the manager's own reference count.
func (m *MappedFile) Reserve() error {
	if err := m.strong.Reserve(); err != nil {
		return ErrAfterRelease
	}
	return nil
}

// Release decrements the manager's own reference count. When it reaches
// zero, performRelease runs: every still-live cached ChunkStore has the
// manager's reservation released, and the file handle is closed.
func (m *MappedFile) Release() error {
	if err := m.strong.Release(); err != nil {
		return ErrRefCountUnderflow
	}
	return nil
}

// RefCount returns the manager's own reference count.
func (m *MappedFile) RefCount() int64 { return m.strong.Count() }

func (m *MappedFile) performRelease() {
	m.tableMu.Lock()
	for i, cs := range m.chunks {
		if cs == nil {
			continue
		}
		if cs.RefCount() <= 0 {
			m.chunks[i] = nil
			continue
		}
		if err := cs.Release(); err != nil {
			// Already dead by the time we got here; treat as absent.
			m.chunks[i] = nil
			continue
		}
		if cs.RefCount() <= 0 {
			m.chunks[i] = nil
		}
	}
	m.tableMu.Unlock()

	if err := m.file.Close(); err != nil {
		m.logger.Debug("close file failed", "path", m.path, "error", err)
	}
}

// Close is a separate, idempotent operation from Release: it marks the
// manager closed (rejecting further AcquireByteStore calls), force-drains
// every cached ChunkStore's reservation to zero on behalf of whatever
// consumers still hold one — a best-effort shutdown after which stale
// handles observe ErrClosed/ErrAfterRelease on their next operation — and
// finally releases the manager's own initial reservation.
func (m *MappedFile) Close() error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	m.closeMu.Unlock()

	m.tableMu.Lock()
	for i, cs := range m.chunks {
		if cs == nil {
			continue
		}
		cs.drain()
		m.chunks[i] = nil
	}
	m.tableMu.Unlock()

	return m.Release()
}

func (m *MappedFile) isClosed() bool {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	return m.closed
}

// ActualSize returns the current on-disk file size.
func (m *MappedFile) ActualSize() (int64, error) {
	size, err := platform.Size(m.file)
	if err != nil {
		return 0, &IoError{Op: "size", Cause: err}
	}
	return size, nil
}

// ChunkSize returns the effective, page-aligned chunk size.
func (m *MappedFile) ChunkSize() int64 { return m.chunkSize }

// OverlapSize returns the effective, page-aligned overlap size.
func (m *MappedFile) OverlapSize() int64 { return m.overlapSize }

// Capacity returns the logical upper bound on file size. It is advisory
// only; the manager never enforces it.
func (m *MappedFile) Capacity() int64 { return m.capacity }

// File returns the underlying open file handle.
func (m *MappedFile) File() *os.File { return m.file }

// ReferenceCounts returns a human-readable snapshot: the manager's own
// refcount followed by the refcount of every cached ChunkStore (0 for
// dead or empty slots).
func (m *MappedFile) ReferenceCounts() string {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "manager=%d", m.strong.Count())
	for i, cs := range m.chunks {
		n := int64(0)
		if cs != nil {
			n = cs.RefCount()
		}
		fmt.Fprintf(&b, " chunk[%d]=%d", i, n)
	}
	return b.String()
}

// SetChunkListener replaces the hook fired on chunk materialization. A nil
// listener disables the hook.
func (m *MappedFile) SetChunkListener(l ChunkListener) {
	m.listenerMu.Lock()
	m.listener = l
	m.listenerMu.Unlock()
}

// GetChunkListener returns the currently installed hook.
func (m *MappedFile) GetChunkListener() ChunkListener {
	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	return m.listener
}
