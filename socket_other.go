//go:build unix && !linux

package gposix

import "golang.org/x/sys/unix"

// These systems lack SOCK_CLOEXEC, accept4 and MSG_CMSG_CLOEXEC, so
// close-on-exec is set right after the descriptor is created. A fork and
// exec in another thread between the two calls leaks the descriptor into
// the child; this race is not closed.

const (
	sendFlags = 0
	recvFlags = 0
)

func (s *Socket) domain() (int, error) {
	sa, err := unix.Getsockname(s.Fd())
	if err != nil {
		return 0, wrapErrno(err, "getsockname", "fd", s.Fd())
	}
	switch sa.(type) {
	case *unix.SockaddrUnix:
		return unix.AF_UNIX, nil
	case *unix.SockaddrInet4:
		return unix.AF_INET, nil
	case *unix.SockaddrInet6:
		return unix.AF_INET6, nil
	}
	return unix.AF_UNSPEC, nil
}

// protocol reports 0, the default protocol; SO_PROTOCOL is not portable.
func (s *Socket) protocol() (int, error) {
	return 0, nil
}

func cloexec(fd int, err error) (int, error) {
	if err != nil {
		return InvalidFd, err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return InvalidFd, err
	}
	return fd, nil
}

func newLocalSocket() (int, error) {
	return cloexec(unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0))
}

func newLocalSocketPair() ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fds, err
	}
	for _, fd := range fds {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return [2]int{InvalidFd, InvalidFd}, err
		}
	}
	return fds, nil
}

func accept(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	return cloexec(nfd, err)
}

// received sets close-on-exec on a descriptor taken from an SCM_RIGHTS
// record.
func received(d *Descriptor) error {
	return d.SetCloseOnExec(true)
}
