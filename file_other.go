//go:build unix && !linux

package gposix

import "golang.org/x/sys/unix"

// allocate extends the file with ftruncate. Blocks are not reserved.
func (f *File) allocate(offset, length int64) error {
	var st unix.Stat_t
	if err := unix.Fstat(f.Fd(), &st); err != nil {
		return err
	}
	if end := offset + length; end > st.Size {
		return unix.Ftruncate(f.Fd(), end)
	}
	return nil
}
