//go:build unix

package gposix

import (
	"github.com/Giulio2002/gposix/internal/logx"
	"golang.org/x/sys/unix"
)

// fdSize is the size of one native descriptor in an SCM_RIGHTS payload.
const fdSize = 4

// LocalSocket is a connected or listening Unix-domain stream socket.
// It can carry one descriptor per message as SCM_RIGHTS ancillary data.
type LocalSocket struct {
	Socket
}

func newLocal(fd int) *LocalSocket {
	return &LocalSocket{Socket: Socket{Descriptor: NewDescriptor(fd)}}
}

// SocketPair returns a connected pair of local sockets.
func SocketPair() (*LocalSocket, *LocalSocket, error) {
	fds, err := newLocalSocketPair()
	if err != nil {
		return nil, nil, wrapErrno(err, "socketpair", "domain", "AF_UNIX")
	}
	return newLocal(fds[0]), newLocal(fds[1]), nil
}

// localAddr builds the address for path, rejecting paths that do not fit
// in sun_path with room for the terminating NUL.
func localAddr(op, path string) (*unix.SockaddrUnix, error) {
	if path == "" {
		return nil, NewError(unix.EINVAL, op, "path", path)
	}
	var raw unix.RawSockaddrUnix
	if len(path) >= len(raw.Path) {
		return nil, NewError(unix.ENAMETOOLONG, op, "path", path, "max", len(raw.Path)-1)
	}
	return &unix.SockaddrUnix{Name: path}, nil
}

// Bind creates a socket bound to path. Call Listen before Accept.
func Bind(path string) (*LocalSocket, error) {
	sa, err := localAddr("bind", path)
	if err != nil {
		return nil, err
	}
	fd, err := newLocalSocket()
	if err != nil {
		return nil, wrapErrno(err, "socket", "domain", "AF_UNIX")
	}
	s := newLocal(fd)
	if err := unix.Bind(fd, sa); err != nil {
		s.Close()
		return nil, wrapErrno(err, "bind", "path", path)
	}
	return s, nil
}

// Connect creates a socket connected to path.
func Connect(path string) (*LocalSocket, error) {
	sa, err := localAddr("connect", path)
	if err != nil {
		return nil, err
	}
	fd, err := newLocalSocket()
	if err != nil {
		return nil, wrapErrno(err, "socket", "domain", "AF_UNIX")
	}
	s := newLocal(fd)
	if err := s.connect(sa); err != nil {
		s.Close()
		return nil, wrapErrno(err, "connect", "path", path)
	}
	return s, nil
}

// connect retries an interrupted connect(2). The interrupted attempt keeps
// going in the kernel, so a retry may see it already established or still
// in progress.
func (s *LocalSocket) connect(sa unix.Sockaddr) error {
	interrupted := false
	for {
		err := unix.Connect(s.Fd(), sa)
		switch {
		case err == nil:
			return nil
		case err == unix.EINTR:
			interrupted = true
			continue
		case interrupted && err == unix.EISCONN:
			return nil
		case interrupted && (err == unix.EALREADY || err == unix.EINPROGRESS):
			if _, _, err := s.Poll(unix.POLLOUT, -1); err != nil {
				return err
			}
			code, err := s.PendingError()
			if err != nil {
				return err
			}
			if code != 0 {
				return code
			}
			return nil
		default:
			return err
		}
	}
}

// Accept waits for a connection on a listening socket.
func (s *LocalSocket) Accept() (*LocalSocket, error) {
	if !s.Valid() {
		return nil, badDescriptor("accept", s.Fd())
	}
	var fd int
	err := ignoringEINTR(func() error {
		var err error
		fd, err = accept(s.Fd())
		return err
	})
	if err != nil {
		return nil, wrapErrno(err, "accept", "fd", s.Fd())
	}
	return newLocal(fd), nil
}

// SendDescriptor passes r to the peer. The message carries a single NUL
// byte and one SCM_RIGHTS record. r stays owned by the caller.
func (s *LocalSocket) SendDescriptor(r Resource) error {
	if !s.Valid() {
		return badDescriptor("sendmsg", s.Fd())
	}
	if r == nil || !r.Valid() {
		return NewError(unix.EBADF, "sendmsg", "fd", s.Fd(), "payload", InvalidFd)
	}

	rights := unix.UnixRights(r.Fd())
	err := ignoringEINTR(func() error {
		_, err := unix.SendmsgN(s.Fd(), []byte{0}, rights, nil, sendFlags)
		return err
	})
	if err != nil {
		return wrapErrno(err, "sendmsg", "fd", s.Fd(), "payload", r.Fd())
	}

	logx.As().Debug().Int("socket", s.Fd()).Int("fd", r.Fd()).Msg("descriptor sent")
	return nil
}

// RecvDescriptor receives one descriptor from the peer. It returns an
// invalid Descriptor and a nil error if the message carried none. Any
// other ancillary data is a ProtocolViolation.
func (s *LocalSocket) RecvDescriptor() (Descriptor, error) {
	if !s.Valid() {
		return Descriptor{}, badDescriptor("recvmsg", s.Fd())
	}

	var (
		p           [1]byte
		oob         = make([]byte, unix.CmsgSpace(fdSize))
		oobn, flags int
	)
	err := ignoringEINTR(func() error {
		var err error
		_, oobn, flags, _, err = unix.Recvmsg(s.Fd(), p[:], oob, recvFlags)
		return err
	})
	if err != nil {
		return Descriptor{}, wrapErrno(err, "recvmsg", "fd", s.Fd())
	}
	if oobn == 0 && flags&unix.MSG_CTRUNC == 0 {
		return Descriptor{}, nil
	}

	fd, err := s.parseRights(oob[:oobn], flags)
	if err != nil {
		logx.As().Warn().Err(err).Int("socket", s.Fd()).Msg("rejected ancillary data")
		return Descriptor{}, err
	}

	d := NewDescriptor(fd)
	if err := received(&d); err != nil {
		d.Close()
		return Descriptor{}, err
	}

	logx.As().Debug().Int("socket", s.Fd()).Int("fd", fd).Msg("descriptor received")
	return d.Move(), nil
}

// parseRights validates that oob holds exactly one SCM_RIGHTS record with
// exactly one descriptor. Every descriptor received alongside a rejected
// record is closed.
func (s *LocalSocket) parseRights(oob []byte, flags int) (int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return InvalidFd, s.violation("malformed control message", "cause", err)
	}

	var fds []int
	for i := range msgs {
		if msgs[i].Header.Level != unix.SOL_SOCKET || msgs[i].Header.Type != unix.SCM_RIGHTS {
			continue
		}
		if rights, err := unix.ParseUnixRights(&msgs[i]); err == nil {
			fds = append(fds, rights...)
		}
	}
	reject := func(msg string, kv ...any) (int, error) {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return InvalidFd, s.violation(msg, kv...)
	}

	if flags&unix.MSG_CTRUNC != 0 {
		return reject("control data truncated")
	}
	if len(msgs) != 1 {
		return reject("unexpected number of control messages", "count", len(msgs))
	}
	h := msgs[0].Header
	if h.Level != unix.SOL_SOCKET || h.Type != unix.SCM_RIGHTS {
		return reject("unexpected control message", "level", h.Level, "type", h.Type)
	}
	if len(fds) != 1 {
		return reject("unexpected number of descriptors", "count", len(fds))
	}
	return fds[0], nil
}

func (s *LocalSocket) violation(msg string, kv ...any) error {
	kv = append([]any{"fd", s.Fd()}, kv...)
	return ProtocolViolation.New("recvmsg: %s", msg).
		WithProperty(OpProperty, "recvmsg").
		WithProperty(ArgsProperty, pairs(kv))
}
