//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

// New creates a new shared memory mapping for the given file descriptor.
// The offset must be page-aligned.
func New(fd int, offset int64, length int, writable bool) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(fd, offset, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	return &Map{
		data:     data,
		fd:       fd,
		offset:   offset,
		writable: writable,
	}, nil
}

// Sync flushes changes to disk synchronously.
func (m *Map) Sync() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return wrap("msync", unix.Msync(m.data, unix.MS_SYNC))
}

// SyncAsync flushes changes to disk asynchronously.
func (m *Map) SyncAsync() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return wrap("msync", unix.Msync(m.data, unix.MS_ASYNC))
}

// SyncRange flushes a specific range to disk.
func (m *Map) SyncRange(offset, length int64) error {
	if m.data == nil {
		return ErrNotMapped
	}
	if offset < 0 || length < 0 || offset+length > int64(len(m.data)) {
		return ErrInvalidRange
	}
	return wrap("msync", unix.Msync(m.data[offset:offset+length], unix.MS_SYNC))
}

// Close releases the memory mapping. Closing twice is a no-op.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	return wrap("munmap", err)
}

// Remap changes the size of the mapping.
//
// Unless mayMove is set the region keeps its address, so slices obtained
// from Data before the call stay valid up to min(old, new) bytes. With
// mayMove the kernel may relocate the region and every earlier slice must
// be discarded. Systems without mremap(2) return ErrNotSupported; there is
// no unmap-and-map fallback.
func (m *Map) Remap(newLength int, mayMove bool) error {
	if m.data == nil {
		return ErrNotMapped
	}

	if newLength <= 0 {
		return ErrInvalidSize
	}

	if newLength == len(m.data) {
		return nil
	}

	newData, err := m.remap(newLength, mayMove)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		return &Error{Op: "mremap", Err: err}
	}

	m.data = newData
	return nil
}

// Lock locks the mapped pages in memory (prevents swapping).
func (m *Map) Lock() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return wrap("mlock", unix.Mlock(m.data))
}

// Unlock unlocks the mapped pages.
func (m *Map) Unlock() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return wrap("munlock", unix.Munlock(m.data))
}

// Advise provides hints to the kernel about memory usage patterns.
func (m *Map) Advise(advice int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	return wrap("madvise", unix.Madvise(m.data, advice))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
