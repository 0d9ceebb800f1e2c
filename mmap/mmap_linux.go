//go:build linux

package mmap

import "golang.org/x/sys/unix"

// remap resizes the mapping with mremap(2). Without mayMove the kernel must
// resize in place or fail.
func (m *Map) remap(newLength int, mayMove bool) ([]byte, error) {
	flags := 0
	if mayMove {
		flags = unix.MREMAP_MAYMOVE
	}
	return unix.Mremap(m.data, newLength, flags)
}
