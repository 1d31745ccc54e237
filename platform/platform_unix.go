//go:build linux || darwin || freebsd || openbsd || netbsd

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// PageSize returns the OS page size in bytes.
func PageSize() int {
	return unix.Getpagesize()
}

// Map creates a shared, read-write mapping of f's [offset, offset+length)
// range. offset must already be page-aligned; length need not be.
func Map(f *os.File, offset, length int64) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), offset, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, wrap("mmap", err)
	}
	return data, nil
}

// Unmap releases a mapping previously returned by Map. After it returns,
// any access to data is undefined.
func Unmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return wrap("munmap", err)
	}
	return nil
}

// Lock is a scoped handle on an advisory whole-file exclusive lock. It is
// released at most once; Release is safe to call multiple times or via
// defer alongside an explicit call on the success path.
type Lock struct {
	f        *os.File
	released bool
}

// LockExclusive takes a whole-file advisory exclusive lock on f, blocking
// until it is available. There is only one such lock per process per file;
// callers must not also take it externally (e.g. via flock(1)).
func LockExclusive(f *os.File) (*Lock, error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, wrap("flock", err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. It is idempotent.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		return wrap("funlock", err)
	}
	return nil
}
