//go:build unix

package gposix

import "golang.org/x/sys/unix"

// ignoringEINTR makes a function call and repeats it if it returns an
// EINTR error. Interrupted calls are never reported to callers.
func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

// ignoringEINTRIO is like ignoringEINTR, but just for IO calls.
func ignoringEINTRIO(fn func(fd int, p []byte) (int, error), fd int, p []byte) (int, error) {
	for {
		n, err := fn(fd, p)
		if err != unix.EINTR {
			return n, err
		}
	}
}
