//go:build unix

package gposix

import "golang.org/x/sys/unix"

// recvChunk is the buffer size for the streaming receive helpers.
const recvChunk = 4096

// Socket is a Descriptor referring to a socket.
type Socket struct {
	Descriptor
}

func (s *Socket) sockopt(op string, opt int) (int, error) {
	if !s.Valid() {
		return 0, badDescriptor(op, s.Fd())
	}
	v, err := unix.GetsockoptInt(s.Fd(), unix.SOL_SOCKET, opt)
	if err != nil {
		return 0, wrapErrno(err, op, "fd", s.Fd())
	}
	return v, nil
}

// Domain returns the address family, e.g. unix.AF_UNIX.
func (s *Socket) Domain() (int, error) {
	if !s.Valid() {
		return 0, badDescriptor("getsockopt", s.Fd())
	}
	return s.domain()
}

// Type returns the socket type, e.g. unix.SOCK_STREAM.
func (s *Socket) Type() (int, error) {
	return s.sockopt("getsockopt", unix.SO_TYPE)
}

// Protocol returns the socket protocol.
func (s *Socket) Protocol() (int, error) {
	if !s.Valid() {
		return 0, badDescriptor("getsockopt", s.Fd())
	}
	return s.protocol()
}

// PendingError returns and clears the pending socket error (SO_ERROR).
// Zero means no error is pending.
func (s *Socket) PendingError() (unix.Errno, error) {
	v, err := s.sockopt("getsockopt", unix.SO_ERROR)
	return unix.Errno(v), err
}

// Listen marks the socket as accepting connections.
func (s *Socket) Listen(backlog int) error {
	if !s.Valid() {
		return badDescriptor("listen", s.Fd())
	}
	return wrapErrno(unix.Listen(s.Fd(), backlog), "listen", "fd", s.Fd(), "backlog", backlog)
}

// Send transmits every byte of p.
func (s *Socket) Send(p []byte) error {
	if !s.Valid() {
		return badDescriptor("send", s.Fd())
	}
	pos := 0
	for pos < len(p) {
		var n int
		err := ignoringEINTR(func() error {
			var err error
			n, err = unix.SendmsgN(s.Fd(), p[pos:], nil, nil, sendFlags)
			return err
		})
		if err != nil {
			return wrapErrno(err, "send", "fd", s.Fd(), "len", len(p)-pos)
		}
		pos += n
	}
	return nil
}

// SendString transmits s.
func (s *Socket) SendString(str string) error {
	return s.Send([]byte(str))
}

// Recv receives until p is full or the peer shuts down. It returns the
// number of bytes received.
func (s *Socket) Recv(p []byte) (int, error) {
	if !s.Valid() {
		return 0, badDescriptor("recv", s.Fd())
	}
	n := 0
	for n < len(p) {
		m, err := ignoringEINTRIO(unix.Read, s.Fd(), p[n:])
		if err != nil {
			return n, wrapErrno(err, "recv", "fd", s.Fd(), "len", len(p)-n)
		}
		if m == 0 {
			break
		}
		n += m
	}
	return n, nil
}

// RecvFlags performs a single recv(2) with flags such as unix.MSG_PEEK,
// unix.MSG_WAITALL or unix.MSG_DONTWAIT. It returns 0 once the peer has
// shut down.
func (s *Socket) RecvFlags(p []byte, flags int) (int, error) {
	if !s.Valid() {
		return 0, badDescriptor("recv", s.Fd())
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, _, err = unix.Recvfrom(s.Fd(), p, flags)
		return err
	})
	if err != nil {
		return 0, wrapErrno(err, "recv", "fd", s.Fd(), "len", len(p), "flags", flags)
	}
	return n, nil
}

// RecvFunc receives chunks and hands each to fn until the peer shuts down
// or fn returns false. The chunk is only valid during the call. It returns
// the total number of bytes received.
func (s *Socket) RecvFunc(fn func(chunk []byte) bool) (int, error) {
	if !s.Valid() {
		return 0, badDescriptor("recv", s.Fd())
	}
	var buf [recvChunk]byte
	total := 0
	for {
		n, err := ignoringEINTRIO(unix.Read, s.Fd(), buf[:])
		if err != nil {
			return total, wrapErrno(err, "recv", "fd", s.Fd(), "len", len(buf))
		}
		if n == 0 {
			return total, nil
		}
		total += n
		if !fn(buf[:n]) {
			return total, nil
		}
	}
}

// RecvChunk returns the data from a single receive. It returns an empty
// slice once the peer has shut down.
func (s *Socket) RecvChunk() ([]byte, error) {
	var chunk []byte
	_, err := s.RecvFunc(func(p []byte) bool {
		chunk = append(chunk, p...)
		return false
	})
	return chunk, err
}

// RecvString receives until the peer shuts down.
func (s *Socket) RecvString() (string, error) {
	var buf []byte
	_, err := s.RecvFunc(func(p []byte) bool {
		buf = append(buf, p...)
		return true
	})
	return string(buf), err
}

// Shutdown shuts down part of a full-duplex connection.
func (s *Socket) Shutdown(how int) error {
	if !s.Valid() {
		return badDescriptor("shutdown", s.Fd())
	}
	return wrapErrno(unix.Shutdown(s.Fd(), how), "shutdown", "fd", s.Fd(), "how", how)
}

// CloseWrite shuts down the sending side.
func (s *Socket) CloseWrite() error {
	return s.Shutdown(unix.SHUT_WR)
}

// CloseRead shuts down the receiving side.
func (s *Socket) CloseRead() error {
	return s.Shutdown(unix.SHUT_RD)
}
