// Package mmap provides the raw memory mapping primitive used by gposix.
//
// Errors returned by this package always wrap a unix.Errno so callers can
// classify them.
package mmap

import "golang.org/x/sys/unix"

// Map represents a memory-mapped file region.
type Map struct {
	data     []byte // Mapped memory region
	fd       int    // File descriptor the region was mapped from
	offset   int64  // File offset of the first mapped byte
	writable bool   // True if mapped with write permission
}

// Data returns the mapped byte slice.
func (m *Map) Data() []byte {
	return m.data
}

// Len returns the current mapped length.
func (m *Map) Len() int {
	return len(m.data)
}

// Offset returns the file offset the mapping starts at.
func (m *Map) Offset() int64 {
	return m.offset
}

// Writable returns true if the mapping is writable.
func (m *Map) Writable() bool {
	return m.writable
}

// Fd returns the file descriptor.
func (m *Map) Fd() int {
	return m.fd
}

// Mapped returns true until Close.
func (m *Map) Mapped() bool {
	return m.data != nil
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize  = &Error{Op: "invalid size", Err: unix.EINVAL}
	ErrInvalidRange = &Error{Op: "invalid range", Err: unix.EINVAL}
	ErrNotMapped    = &Error{Op: "not mapped", Err: unix.EBADF}
	ErrNotSupported = &Error{Op: "remap not supported", Err: unix.ENOSYS}
)
