//go:build unix

package gposix

import (
	"errors"
	"math"

	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/Giulio2002/gposix/internal/slot"
	"github.com/Giulio2002/gposix/mmap"
	"golang.org/x/sys/unix"
)

// LengthOfFile asks NewMapping to map the whole file from the offset on.
const LengthOfFile = -1

// RemapFlags controls how Mapping.Remap may resize a region.
type RemapFlags int

const (
	// RemapInPlace keeps the base address, so byte slices taken earlier
	// stay valid up to the smaller of the old and new lengths.
	RemapInPlace RemapFlags = iota
	// RemapMayMove lets the kernel relocate the region. Earlier slices
	// must be discarded.
	RemapMayMove
)

// regions owns every live mapping. A Mapping is only an index into it.
var regions slot.Table[*mmap.Map]

// Mapping is a shared memory mapping of a file.
//
// A Mapping owns its region exclusively. Move hands the region to a new
// Mapping and leaves every earlier copy stale; a stale Mapping fails with
// BadDescriptor. The zero Mapping is invalid.
type Mapping struct {
	ref slot.Ref
}

// NewMapping maps length bytes of r read-only, starting at offset.
// offset must be a multiple of the page size.
func NewMapping(r Resource, length int, offset int64) (Mapping, error) {
	return newMapping(r, length, offset, false)
}

// NewWritableMapping maps length bytes of r for reading and writing.
// Stores are visible to other mappers and to the file.
func NewWritableMapping(r Resource, length int, offset int64) (Mapping, error) {
	return newMapping(r, length, offset, true)
}

func newMapping(r Resource, length int, offset int64, writable bool) (Mapping, error) {
	if r == nil || !r.Valid() {
		return Mapping{}, NewError(unix.EBADF, "mmap", "fd", InvalidFd)
	}
	fd := r.Fd()

	if length == LengthOfFile {
		size, err := resourceSize(r)
		if err != nil {
			return Mapping{}, err
		}
		if length, err = mapSize("mmap", size-offset); err != nil {
			return Mapping{}, err
		}
	}
	if length <= 0 {
		return Mapping{}, NewError(unix.EINVAL, "mmap", "fd", fd, "length", length, "offset", offset)
	}

	m, err := mmap.New(fd, offset, length, writable)
	if err != nil {
		return Mapping{}, mappingError(err, "mmap", "fd", fd, "length", length, "offset", offset)
	}
	return Mapping{ref: regions.Insert(m)}, nil
}

// mapSize converts a length taken from the file size to int. Sizes that do
// not fit the address space are rejected.
func mapSize(op string, n int64) (int, error) {
	if n > math.MaxInt {
		return 0, NewError(unix.EINVAL, op, "length", n, "max", math.MaxInt)
	}
	return int(n), nil
}

func resourceSize(r Resource) (int64, error) {
	if m, ok := r.(Mappable); ok {
		return m.Size()
	}
	var st unix.Stat_t
	err := ignoringEINTR(func() error {
		return unix.Fstat(r.Fd(), &st)
	})
	if err != nil {
		return 0, wrapErrno(err, "fstat", "fd", r.Fd())
	}
	return st.Size, nil
}

// mappingError translates an mmap package error into the taxonomy.
func mappingError(err error, op string, kv ...any) error {
	var me *mmap.Error
	if errors.As(err, &me) {
		if code, ok := me.Err.(unix.Errno); ok {
			return NewError(code, op, kv...)
		}
	}
	return wrapErrno(err, op, kv...)
}

func (m *Mapping) region(op string) (*mmap.Map, error) {
	r, ok := regions.Get(m.ref)
	if !ok {
		return nil, NewError(unix.EBADF, op, "mapping", "stale")
	}
	return r, nil
}

// Valid reports whether m still owns a region.
func (m *Mapping) Valid() bool {
	_, ok := regions.Get(m.ref)
	return ok
}

// Len returns the mapped length in bytes, or 0 for an invalid Mapping.
func (m *Mapping) Len() int {
	r, err := m.region("len")
	if err != nil {
		return 0
	}
	return r.Len()
}

// Offset returns the file offset of the first mapped byte.
func (m *Mapping) Offset() int64 {
	r, err := m.region("offset")
	if err != nil {
		return 0
	}
	return r.Offset()
}

// Bytes returns the mapped memory. The slice is valid until Close, or
// until a Remap with RemapMayMove.
func (m *Mapping) Bytes() []byte {
	r, err := m.region("bytes")
	if err != nil {
		return nil
	}
	return r.Data()
}

// At returns the byte at index i.
func (m *Mapping) At(i int) (byte, error) {
	r, err := m.region("at")
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= r.Len() {
		return 0, NewError(unix.EINVAL, "at", "index", i, "length", r.Len())
	}
	return r.Data()[i], nil
}

// Slice returns n mapped bytes starting at off.
func (m *Mapping) Slice(off, n int) ([]byte, error) {
	r, err := m.region("slice")
	if err != nil {
		return nil, err
	}
	if off < 0 || n < 0 || off+n > r.Len() {
		return nil, NewError(unix.EINVAL, "slice", "offset", off, "n", n, "length", r.Len())
	}
	return r.Data()[off : off+n : off+n], nil
}

// Move transfers the region to the returned Mapping. m and every copy of
// it become stale.
func (m *Mapping) Move() Mapping {
	ref, ok := regions.Move(m.ref)
	m.ref = slot.Ref{}
	if !ok {
		return Mapping{}
	}
	return Mapping{ref: ref}
}

// Remap resizes the region. Without mremap(2) it fails with NotImplemented.
func (m *Mapping) Remap(newLength int, flags RemapFlags) error {
	r, err := m.region("mremap")
	if err != nil {
		return err
	}
	oldLength := r.Len()
	if err := r.Remap(newLength, flags == RemapMayMove); err != nil {
		return mappingError(err, "mremap", "length", oldLength, "new_length", newLength, "may_move", flags == RemapMayMove)
	}

	logx.As().Debug().
		Int("fd", r.Fd()).
		Int("old", oldLength).
		Int("new", newLength).
		Bool("may_move", flags == RemapMayMove).
		Msg("mapping resized")
	return nil
}

// Sync flushes modified pages to the file.
func (m *Mapping) Sync() error {
	r, err := m.region("msync")
	if err != nil {
		return err
	}
	if err := r.Sync(); err != nil {
		return mappingError(err, "msync", "fd", r.Fd(), "length", r.Len())
	}
	return nil
}

// SyncAsync schedules modified pages for writeback without waiting.
func (m *Mapping) SyncAsync() error {
	r, err := m.region("msync")
	if err != nil {
		return err
	}
	if err := r.SyncAsync(); err != nil {
		return mappingError(err, "msync", "fd", r.Fd(), "length", r.Len(), "async", true)
	}
	return nil
}

// SyncRange flushes the n bytes starting at off. off must be a multiple of
// the page size.
func (m *Mapping) SyncRange(off, n int) error {
	r, err := m.region("msync")
	if err != nil {
		return err
	}
	if err := r.SyncRange(int64(off), int64(n)); err != nil {
		return mappingError(err, "msync", "fd", r.Fd(), "offset", off, "n", n, "length", r.Len())
	}
	return nil
}

// Lock pins the mapped pages in memory with mlock(2).
func (m *Mapping) Lock() error {
	r, err := m.region("mlock")
	if err != nil {
		return err
	}
	if err := r.Lock(); err != nil {
		return mappingError(err, "mlock", "fd", r.Fd(), "length", r.Len())
	}
	return nil
}

// Unlock releases pages pinned by Lock.
func (m *Mapping) Unlock() error {
	r, err := m.region("munlock")
	if err != nil {
		return err
	}
	if err := r.Unlock(); err != nil {
		return mappingError(err, "munlock", "fd", r.Fd(), "length", r.Len())
	}
	return nil
}

// Advise passes an madvise(2) hint such as unix.MADV_SEQUENTIAL.
func (m *Mapping) Advise(advice int) error {
	r, err := m.region("madvise")
	if err != nil {
		return err
	}
	if err := r.Advise(advice); err != nil {
		return mappingError(err, "madvise", "advice", advice)
	}
	return nil
}

// Readable reports whether the region can be read. Every live mapping is.
func (m *Mapping) Readable() bool {
	return m.Valid()
}

// Writable reports whether the region was mapped for writing.
func (m *Mapping) Writable() bool {
	r, err := m.region("writable")
	if err != nil {
		return false
	}
	return r.Writable()
}

// Close unmaps the region. It is idempotent and always returns nil; a
// failing munmap(2) is logged and discarded.
func (m *Mapping) Close() error {
	r, ok := regions.Remove(m.ref)
	m.ref = slot.Ref{}
	if !ok {
		return nil
	}
	if err := r.Close(); err != nil {
		logx.As().Debug().Err(err).Int("fd", r.Fd()).Msg("munmap failed, error discarded")
	}
	return nil
}
