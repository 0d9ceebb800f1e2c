//go:build unix

package gposix

import (
	"io"
	"os"
	"sort"

	"golang.org/x/sys/unix"
)

// MappedFile is a File read through a shared read-only memory mapping.
//
// Reads are memory copies from the mapping at the cached cursor and never
// touch the kernel. The cached size is only refreshed by Sync, so bytes
// written through the descriptor become readable after Sync.
type MappedFile struct {
	File
	size    int64
	offset  int64
	mapping Mapping
}

// OpenMapped opens path and maps it.
func OpenMapped(path string, flags int, mode os.FileMode) (*MappedFile, error) {
	f, err := Open(path, flags, mode)
	if err != nil {
		return nil, err
	}
	return newMappedFile(f)
}

// CreateMapped creates or truncates path for reading and writing and
// maps it.
func CreateMapped(path string, mode os.FileMode) (*MappedFile, error) {
	return OpenMapped(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, mode)
}

func newMappedFile(f *File) (*MappedFile, error) {
	mf := &MappedFile{File: File{Descriptor: f.Move()}}
	if err := mf.init(); err != nil {
		mf.Close()
		return nil, err
	}
	return mf, nil
}

func (mf *MappedFile) init() error {
	var err error
	if mf.size, err = mf.File.Size(); err != nil {
		return err
	}
	if mf.offset, err = mf.File.Offset(); err != nil {
		return err
	}
	length, err := mapLength(mf.size)
	if err != nil {
		return err
	}
	mf.mapping, err = NewMapping(&mf.Descriptor, length, 0)
	return err
}

// mapLength never maps less than one page, so an empty file still has a
// valid region to grow from.
func mapLength(size int64) (int, error) {
	page := int64(unix.Getpagesize())
	if size < page {
		return int(page), nil
	}
	return mapSize("mmap", size)
}

// Size returns the cached file size.
func (mf *MappedFile) Size() int64 {
	return mf.size
}

// Offset returns the read cursor.
func (mf *MappedFile) Offset() int64 {
	return mf.offset
}

// IsEOF reports whether the cursor is at or beyond the cached size.
func (mf *MappedFile) IsEOF() bool {
	return mf.offset >= mf.size
}

// Mapping returns the underlying mapping. It is owned by mf.
func (mf *MappedFile) Mapping() *Mapping {
	return &mf.mapping
}

// Seek moves the read cursor. SEEK_CUR is resolved without a system call;
// SEEK_SET and SEEK_END go through lseek(2). The mapping is grown when the
// cursor moves past its end.
func (mf *MappedFile) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)
	switch whence {
	case unix.SEEK_CUR:
		pos = mf.offset + offset
	case unix.SEEK_SET, unix.SEEK_END:
		if pos, err = mf.File.Seek(offset, whence); err != nil {
			return mf.offset, err
		}
	default:
		return mf.offset, NewError(unix.EINVAL, "seek", "fd", mf.Fd(), "offset", offset, "whence", whence)
	}
	if pos < 0 {
		return mf.offset, NewError(unix.EINVAL, "seek", "fd", mf.Fd(), "offset", offset, "whence", whence)
	}

	if pos > int64(mf.mapping.Len()) {
		length, err := mapLength(pos)
		if err != nil {
			return mf.offset, err
		}
		if err := mf.mapping.Remap(length, RemapMayMove); err != nil {
			return mf.offset, err
		}
	}
	mf.offset = pos
	return pos, nil
}

// Rewind moves the read cursor to the start.
func (mf *MappedFile) Rewind() error {
	_, err := mf.Seek(0, unix.SEEK_SET)
	return err
}

// remaining returns the mapped bytes between the cursor and the cached size.
func (mf *MappedFile) remaining() []byte {
	if mf.IsEOF() {
		return nil
	}
	data := mf.mapping.Bytes()
	end := mf.size
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	if mf.offset >= end {
		return nil
	}
	return data[mf.offset:end]
}

// ReadBytes copies up to len(p) bytes from the cursor. At EOF it copies
// nothing; the error is always nil.
func (mf *MappedFile) ReadBytes(p []byte) (int, error) {
	n := copy(p, mf.remaining())
	mf.offset += int64(n)
	return n, nil
}

// Read implements io.Reader.
func (mf *MappedFile) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, _ := mf.ReadBytes(p)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte returns the byte at the cursor, or io.EOF.
func (mf *MappedFile) ReadByte() (byte, error) {
	rest := mf.remaining()
	if len(rest) == 0 {
		return 0, io.EOF
	}
	mf.offset++
	return rest[0], nil
}

// ReadRest returns a copy of everything from the cursor to EOF.
func (mf *MappedFile) ReadRest() []byte {
	rest := mf.remaining()
	out := make([]byte, len(rest))
	copy(out, rest)
	mf.offset += int64(len(rest))
	return out
}

// ReadAll is ReadRest; the error is always nil.
func (mf *MappedFile) ReadAll() ([]byte, error) {
	return mf.ReadRest(), nil
}

// ReadUntil reads up to sep or EOF. The separator is consumed but not
// returned; n counts every byte consumed.
func (mf *MappedFile) ReadUntil(sep byte) (data []byte, n int, err error) {
	for {
		b, err := mf.ReadByte()
		if err != nil {
			return data, n, nil
		}
		n++
		if b == sep {
			return data, n, nil
		}
		data = append(data, b)
	}
}

// ReadLine reads one newline-terminated line.
func (mf *MappedFile) ReadLine() (string, int, error) {
	line, n, err := mf.ReadUntil('\n')
	return string(line), n, err
}

// ReadLines reads every remaining line and returns the distinct lines in
// sorted order.
func (mf *MappedFile) ReadLines() ([]string, int, error) {
	seen := make(map[string]struct{})
	total := 0
	for !mf.IsEOF() {
		line, n, _ := mf.ReadLine()
		total += n
		seen[line] = struct{}{}
	}
	lines := make([]string, 0, len(seen))
	for line := range seen {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines, total, nil
}

// Sync flushes a writable mapping, refreshes the cached size from the file and
// resizes the mapping to match. Where the mapping cannot be resized it
// fails with NotImplemented.
func (mf *MappedFile) Sync() error {
	if mf.mapping.Writable() {
		if err := mf.File.Sync(); err != nil {
			return err
		}
	}

	size, err := mf.File.Size()
	if err != nil {
		return err
	}
	mf.size = size

	want, err := mapLength(max(size, mf.offset))
	if err != nil {
		return err
	}
	if want != mf.mapping.Len() {
		return mf.mapping.Remap(want, RemapMayMove)
	}
	return nil
}

// Close unmaps the file and closes the descriptor. It always returns nil.
func (mf *MappedFile) Close() error {
	mf.mapping.Close()
	return mf.File.Close()
}

// AppendableMappedFile is a MappedFile opened with O_APPEND. Appends go
// through the descriptor and land at the true end of file.
type AppendableMappedFile struct {
	MappedFile
}

// OpenAppendable opens path with O_APPEND added to flags and maps it.
func OpenAppendable(path string, flags int, mode os.FileMode) (*AppendableMappedFile, error) {
	mf, err := OpenMapped(path, flags|unix.O_APPEND, mode)
	if err != nil {
		return nil, err
	}
	return &AppendableMappedFile{MappedFile: mf.move()}, nil
}

// CreateAppendable creates or truncates path for reading and appending.
func CreateAppendable(path string, mode os.FileMode) (*AppendableMappedFile, error) {
	return OpenAppendable(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, mode)
}

func (mf *MappedFile) move() MappedFile {
	size, offset := mf.size, mf.offset
	mf.size, mf.offset = 0, 0
	return MappedFile{
		File:    File{Descriptor: mf.Descriptor.Move()},
		size:    size,
		offset:  offset,
		mapping: mf.mapping.Move(),
	}
}

// Append writes p at the end of the file and returns the offset at which
// it begins. The read cursor moves past the appended bytes; they become
// readable after Sync. Appending nothing reports the end of file and
// leaves the read cursor alone.
func (a *AppendableMappedFile) Append(p []byte) (int64, error) {
	if len(p) == 0 {
		return a.File.Seek(0, unix.SEEK_END)
	}
	if err := a.WriteAll(p); err != nil {
		return 0, err
	}
	// With O_APPEND the kernel cursor sits right after this write, even
	// if other writers appended in the meantime.
	end, err := a.File.Seek(0, unix.SEEK_CUR)
	if err != nil {
		return 0, err
	}
	a.offset = end
	return end - int64(len(p)), nil
}

// AppendString appends s.
func (a *AppendableMappedFile) AppendString(s string) (int64, error) {
	return a.Append([]byte(s))
}
