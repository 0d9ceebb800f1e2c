//go:build linux

package gposix

import "golang.org/x/sys/unix"

func (f *File) allocate(offset, length int64) error {
	return unix.Fallocate(f.Fd(), 0, offset, length)
}
