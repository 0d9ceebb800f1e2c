//go:build linux

package gposix

import "golang.org/x/sys/unix"

const (
	sendFlags = unix.MSG_NOSIGNAL
	recvFlags = unix.MSG_CMSG_CLOEXEC
)

func (s *Socket) domain() (int, error) {
	return s.sockopt("getsockopt", unix.SO_DOMAIN)
}

func (s *Socket) protocol() (int, error) {
	return s.sockopt("getsockopt", unix.SO_PROTOCOL)
}

func newLocalSocket() (int, error) {
	return unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

func newLocalSocketPair() ([2]int, error) {
	return unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

func accept(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC)
	return nfd, err
}

// received is called on every descriptor taken from an SCM_RIGHTS record.
// MSG_CMSG_CLOEXEC already set close-on-exec.
func received(d *Descriptor) error {
	return nil
}
