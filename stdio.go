//go:build unix

package gposix

import (
	"sync"

	"golang.org/x/sys/unix"
)

// The standard streams are created on first use and never closed.
var (
	stdin  = sync.OnceValue(func() *Descriptor { d := NewDescriptor(unix.Stdin); return &d })
	stdout = sync.OnceValue(func() *Descriptor { d := NewDescriptor(unix.Stdout); return &d })
	stderr = sync.OnceValue(func() *Descriptor { d := NewDescriptor(unix.Stderr); return &d })
)

// Stdin returns the process-wide standard input. Do not close it.
func Stdin() *Descriptor { return stdin() }

// Stdout returns the process-wide standard output. Do not close it.
func Stdout() *Descriptor { return stdout() }

// Stderr returns the process-wide standard error. Do not close it.
func Stderr() *Descriptor { return stderr() }

// WriteFd writes all of p to a raw descriptor, retrying on EINTR and
// EAGAIN. It does not take ownership of fd.
func WriteFd(fd int, p []byte) error {
	pos := 0
	for pos < len(p) {
		n, err := unix.Write(fd, p[pos:])
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return wrapErrno(err, "write", "fd", fd, "chunk", len(p)-pos)
		}
		pos += n
	}
	return nil
}
