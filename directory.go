//go:build unix

package gposix

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// dirBatch is the number of entries read per getdents round trip.
const dirBatch = 64

// Directory is a Descriptor referring to a directory. Files are opened
// relative to it with openat(2).
type Directory struct {
	Descriptor
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name string
	Type fs.FileMode // type bits only, as in fs.DirEntry.Type
}

// OpenDirectory opens path as a directory.
func OpenDirectory(path string) (*Directory, error) {
	fd, err := openat(unix.AT_FDCWD, path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return nil, err
	}
	return &Directory{Descriptor: NewDescriptor(fd)}, nil
}

// Open opens name relative to d.
func (d *Directory) Open(name string, flags int, mode os.FileMode) (*File, error) {
	if !d.Valid() {
		return nil, badDescriptor("openat", d.Fd())
	}
	fd, err := openat(d.Fd(), name, flags, mode)
	if err != nil {
		return nil, err
	}
	return &File{Descriptor: NewDescriptor(fd)}, nil
}

// Create creates or truncates name relative to d for writing.
func (d *Directory) Create(name string, mode os.FileMode) (*File, error) {
	return d.Open(name, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, mode)
}

// OpenMapped opens name relative to d and maps it.
func (d *Directory) OpenMapped(name string, flags int, mode os.FileMode) (*MappedFile, error) {
	f, err := d.Open(name, flags, mode)
	if err != nil {
		return nil, err
	}
	return newMappedFile(f)
}

// OpenAppendable opens name relative to d with O_APPEND and maps it.
func (d *Directory) OpenAppendable(name string, flags int, mode os.FileMode) (*AppendableMappedFile, error) {
	mf, err := d.OpenMapped(name, flags|unix.O_APPEND, mode)
	if err != nil {
		return nil, err
	}
	return &AppendableMappedFile{MappedFile: mf.move()}, nil
}

// Stat returns the lstat of name relative to d.
func (d *Directory) Stat(name string) (unix.Stat_t, error) {
	var st unix.Stat_t
	if !d.Valid() {
		return st, badDescriptor("fstatat", d.Fd())
	}
	err := ignoringEINTR(func() error {
		return unix.Fstatat(d.Fd(), name, &st, unix.AT_SYMLINK_NOFOLLOW)
	})
	return st, wrapErrno(err, "fstatat", "fd", d.Fd(), "name", name)
}

// ForEach calls fn for every entry except "." and "..", in directory
// order. Returning fs.SkipAll stops the walk without error; any other
// error stops it and is returned.
func (d *Directory) ForEach(fn func(DirEntry) error) error {
	if !d.Valid() {
		return badDescriptor("getdents", d.Fd())
	}

	// The duplicate shares the directory offset, so rewind it first.
	dup, err := d.Dup()
	if err != nil {
		return err
	}
	if _, err := unix.Seek(dup.Fd(), 0, unix.SEEK_SET); err != nil {
		fd := dup.Fd()
		dup.Close()
		return wrapErrno(err, "lseek", "fd", fd)
	}
	dir := os.NewFile(uintptr(dup.Release()), ".")
	defer dir.Close()

	for {
		entries, err := dir.ReadDir(dirBatch)
		for _, e := range entries {
			if ferr := fn(DirEntry{Name: e.Name(), Type: e.Type()}); ferr != nil {
				if errors.Is(ferr, fs.SkipAll) {
					return nil
				}
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapErrno(err, "getdents", "fd", d.Fd())
		}
	}
}
