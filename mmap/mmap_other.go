//go:build unix && !linux

package mmap

// remap is not available outside Linux.
func (m *Map) remap(newLength int, mayMove bool) ([]byte, error) {
	return nil, ErrNotSupported
}
