//go:build windows

package platform

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PageSize returns the system page size reported by GetSystemInfo.
func PageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int(info.PageSize)
}

// Map creates a shared, read-write mapping of f's [offset, offset+length)
// range via CreateFileMapping/MapViewOfFile. offset must already be
// page-aligned.
func Map(f *os.File, offset, length int64) ([]byte, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE,
		uint32(uint64(offset+length)>>32), uint32(uint64(offset+length)), nil)
	if err != nil {
		return nil, wrap("createfilemapping", err)
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE,
		uint32(uint64(offset)>>32), uint32(uint64(offset)), uintptr(length))
	if err != nil {
		return nil, wrap("mapviewoffile", err)
	}

	var data []byte
	hdr := (*sliceHeader)(unsafe.Pointer(&data))
	hdr.Data = addr
	hdr.Len = int(length)
	hdr.Cap = int(length)
	return data, nil
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// Unmap releases a mapping previously returned by Map.
func Unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return wrap("unmapviewoffile", err)
	}
	return nil
}

// Lock is a scoped handle on an advisory whole-file exclusive lock.
type Lock struct {
	f        *os.File
	released bool
}

// LockExclusive takes a whole-file advisory exclusive lock on f, blocking
// until it is available.
func LockExclusive(f *os.File) (*Lock, error) {
	ol := new(windows.Overlapped)
	const lockWholeFile = ^uint32(0)
	if err := windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0,
		lockWholeFile, lockWholeFile, ol); err != nil {
		return nil, wrap("lockfileex", err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. It is idempotent.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	ol := new(windows.Overlapped)
	const unlockWholeFile = ^uint32(0)
	if err := windows.UnlockFileEx(windows.Handle(l.f.Fd()), 0, unlockWholeFile, unlockWholeFile, ol); err != nil {
		return wrap("unlockfileex", err)
	}
	return nil
}
