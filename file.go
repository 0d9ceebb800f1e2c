//go:build unix

package gposix

import (
	"os"

	"golang.org/x/sys/unix"
)

// File is a Descriptor referring to a regular file.
type File struct {
	Descriptor
}

// Open opens path with the given open(2) flags. O_CLOEXEC is always added.
func Open(path string, flags int, mode os.FileMode) (*File, error) {
	fd, err := openat(unix.AT_FDCWD, path, flags, mode)
	if err != nil {
		return nil, err
	}
	return &File{Descriptor: NewDescriptor(fd)}, nil
}

// Create creates or truncates path for writing.
func Create(path string, mode os.FileMode) (*File, error) {
	return Open(path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, mode)
}

func openat(dirfd int, path string, flags int, mode os.FileMode) (int, error) {
	flags |= unix.O_CLOEXEC
	perm := unixMode(mode)

	var fd int
	err := ignoringEINTR(func() error {
		var err error
		fd, err = unix.Openat(dirfd, path, flags, perm)
		return err
	})
	if err != nil {
		return InvalidFd, wrapErrno(err, "open", "path", path, "flags", flags, "mode", mode)
	}
	return fd, nil
}

// Stat returns the fstat(2) result for the file.
func (f *File) Stat() (unix.Stat_t, error) {
	var st unix.Stat_t
	if !f.Valid() {
		return st, badDescriptor("fstat", f.Fd())
	}
	err := ignoringEINTR(func() error {
		return unix.Fstat(f.Fd(), &st)
	})
	return st, wrapErrno(err, "fstat", "fd", f.Fd())
}

// Size returns the current size of the file in bytes.
func (f *File) Size() (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}

// Empty reports whether the file has zero size.
func (f *File) Empty() (bool, error) {
	size, err := f.Size()
	return size == 0, err
}

// Seek repositions the file cursor and returns the new offset.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if !f.Valid() {
		return 0, badDescriptor("lseek", f.Fd())
	}
	pos, err := unix.Seek(f.Fd(), offset, whence)
	if err != nil {
		return 0, wrapErrno(err, "lseek", "fd", f.Fd(), "offset", offset, "whence", whence)
	}
	return pos, nil
}

// Offset returns the current file cursor.
func (f *File) Offset() (int64, error) {
	return f.Seek(0, unix.SEEK_CUR)
}

// Rewind moves the file cursor to the start.
func (f *File) Rewind() error {
	_, err := f.Seek(0, unix.SEEK_SET)
	return err
}

// Truncate sets the file size to length bytes.
func (f *File) Truncate(length int64) error {
	if !f.Valid() {
		return badDescriptor("ftruncate", f.Fd())
	}
	err := ignoringEINTR(func() error {
		return unix.Ftruncate(f.Fd(), length)
	})
	return wrapErrno(err, "ftruncate", "fd", f.Fd(), "length", length)
}

// Allocate ensures that disk space is allocated for the byte range
// [offset, offset+length). The file grows if the range extends past its end.
func (f *File) Allocate(offset, length int64) error {
	if !f.Valid() {
		return badDescriptor("fallocate", f.Fd())
	}
	if offset < 0 || length <= 0 {
		return NewError(unix.EINVAL, "fallocate", "fd", f.Fd(), "offset", offset, "length", length)
	}
	err := ignoringEINTR(func() error {
		return f.allocate(offset, length)
	})
	return wrapErrno(err, "fallocate", "fd", f.Fd(), "offset", offset, "length", length)
}
