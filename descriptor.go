//go:build unix

package gposix

import (
	"io"
	"os"
	"sort"

	"github.com/Giulio2002/gposix/internal/logx"
	"golang.org/x/sys/unix"
)

// InvalidFd is the integer reported for a Descriptor that owns nothing.
const InvalidFd = -1

// readChunk is the buffer size used by ReadAll.
const readChunk = 4096

// Descriptor owns one file descriptor.
//
// The zero Descriptor owns nothing. A Descriptor must not be copied while
// valid; use Move to transfer ownership and Dup to obtain an independent
// kernel handle. All methods on an invalid Descriptor fail with
// BadDescriptor except Valid, Fd, Release and Close.
type Descriptor struct {
	_   noCopy
	raw int // fd + 1, so the zero value is invalid
}

// noCopy makes go vet's copylocks check report by-value copies of a
// Descriptor.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// NewDescriptor takes ownership of fd. Negative values yield an invalid
// Descriptor.
func NewDescriptor(fd int) Descriptor {
	if fd < 0 {
		return Descriptor{}
	}
	return Descriptor{raw: fd + 1}
}

// Valid reports whether d owns a descriptor.
func (d *Descriptor) Valid() bool {
	return d.raw > 0
}

// Fd returns the owned integer, or InvalidFd.
func (d *Descriptor) Fd() int {
	return d.raw - 1
}

// Equal reports whether d and other hold the same integer.
func (d *Descriptor) Equal(other *Descriptor) bool {
	return d.raw == other.raw
}

// Dup returns a new Descriptor for the same open file description.
// The duplicate has close-on-exec set exactly when d has it set; the
// attribute is requested atomically.
func (d *Descriptor) Dup() (Descriptor, error) {
	if !d.Valid() {
		return Descriptor{}, badDescriptor("dup", d.Fd())
	}

	cloexec, err := d.CloseOnExec()
	if err != nil {
		return Descriptor{}, err
	}

	cmd := unix.F_DUPFD
	if cloexec {
		cmd = unix.F_DUPFD_CLOEXEC
	}
	fd, err := unix.FcntlInt(uintptr(d.Fd()), cmd, 0)
	if err != nil {
		return Descriptor{}, wrapErrno(err, "dup", "fd", d.Fd())
	}
	return NewDescriptor(fd), nil
}

// Move transfers ownership to the returned Descriptor and leaves d invalid.
func (d *Descriptor) Move() Descriptor {
	raw := d.raw
	d.raw = 0
	return Descriptor{raw: raw}
}

// Assign closes the current descriptor, if any, and takes ownership of fd.
func (d *Descriptor) Assign(fd int) {
	if d.Fd() == fd {
		return
	}
	d.Close()
	*d = NewDescriptor(fd)
}

// Release gives up ownership without closing and returns the integer.
func (d *Descriptor) Release() int {
	fd := d.Fd()
	d.raw = 0
	return fd
}

// Close closes the descriptor. It is idempotent and always returns nil;
// a failing close(2) is logged and discarded.
func (d *Descriptor) Close() error {
	if !d.Valid() {
		return nil
	}
	fd := d.Release()

	// close(2) is not retried on EINTR; Linux releases the fd regardless.
	if err := unix.Close(fd); err != nil {
		logx.As().Debug().Err(err).Int("fd", fd).Msg("close failed, error discarded")
	}
	return nil
}

// Fcntl issues an integer-argument fcntl(2) command.
func (d *Descriptor) Fcntl(cmd, arg int) (int, error) {
	if !d.Valid() {
		return 0, badDescriptor("fcntl", d.Fd())
	}
	r, err := unix.FcntlInt(uintptr(d.Fd()), cmd, arg)
	if err != nil {
		return 0, wrapErrno(err, "fcntl", "fd", d.Fd(), "cmd", cmd, "arg", arg)
	}
	return r, nil
}

// Flags returns the descriptor flags (F_GETFD).
func (d *Descriptor) Flags() (int, error) {
	return d.Fcntl(unix.F_GETFD, 0)
}

// Status returns the file status flags (F_GETFL).
func (d *Descriptor) Status() (int, error) {
	return d.Fcntl(unix.F_GETFL, 0)
}

// Readable reports whether the descriptor was opened for reading.
func (d *Descriptor) Readable() (bool, error) {
	status, err := d.Status()
	if err != nil {
		return false, err
	}
	mode := status & unix.O_ACCMODE
	return mode == unix.O_RDONLY || mode == unix.O_RDWR, nil
}

// Writable reports whether the descriptor was opened for writing.
func (d *Descriptor) Writable() (bool, error) {
	status, err := d.Status()
	if err != nil {
		return false, err
	}
	mode := status & unix.O_ACCMODE
	return mode == unix.O_WRONLY || mode == unix.O_RDWR, nil
}

// CloseOnExec reports whether FD_CLOEXEC is set.
func (d *Descriptor) CloseOnExec() (bool, error) {
	flags, err := d.Flags()
	if err != nil {
		return false, err
	}
	return flags&unix.FD_CLOEXEC != 0, nil
}

// SetCloseOnExec sets or clears FD_CLOEXEC.
func (d *Descriptor) SetCloseOnExec(on bool) error {
	flags, err := d.Flags()
	if err != nil {
		return err
	}
	if on {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}
	_, err = d.Fcntl(unix.F_SETFD, flags)
	return err
}

// Chown changes the owner and group of the file. A nil identity leaves
// that id unchanged.
func (d *Descriptor) Chown(user, group Identity) error {
	if !d.Valid() {
		return badDescriptor("fchown", d.Fd())
	}
	uid, gid := -1, -1
	if user != nil {
		uid = user.ID()
	}
	if group != nil {
		gid = group.ID()
	}
	err := ignoringEINTR(func() error {
		return unix.Fchown(d.Fd(), uid, gid)
	})
	return wrapErrno(err, "fchown", "fd", d.Fd(), "uid", uid, "gid", gid)
}

// Chmod changes the permission bits of the file.
func (d *Descriptor) Chmod(mode os.FileMode) error {
	if !d.Valid() {
		return badDescriptor("fchmod", d.Fd())
	}
	m := unixMode(mode)
	err := ignoringEINTR(func() error {
		return unix.Fchmod(d.Fd(), m)
	})
	return wrapErrno(err, "fchmod", "fd", d.Fd(), "mode", mode)
}

// Sync flushes the file to stable storage.
func (d *Descriptor) Sync() error {
	if !d.Valid() {
		return badDescriptor("fsync", d.Fd())
	}
	err := ignoringEINTR(func() error {
		return unix.Fsync(d.Fd())
	})
	return wrapErrno(err, "fsync", "fd", d.Fd())
}

// Poll waits up to timeoutMs milliseconds for any of events. A negative
// timeout waits forever. ready is false when the timeout expired.
func (d *Descriptor) Poll(events int16, timeoutMs int) (ready bool, revents int16, err error) {
	if !d.Valid() {
		return false, 0, badDescriptor("poll", d.Fd())
	}
	fds := []unix.PollFd{{Fd: int32(d.Fd()), Events: events}}
	var n int
	err = ignoringEINTR(func() error {
		var perr error
		n, perr = unix.Poll(fds, timeoutMs)
		return perr
	})
	if err != nil {
		return false, 0, wrapErrno(err, "poll", "fd", d.Fd(), "events", events, "timeout", timeoutMs)
	}
	return n > 0, fds[0].Revents, nil
}

// ReadBytes reads until p is full or end of stream. At end of stream it
// returns the bytes read so far and a nil error.
func (d *Descriptor) ReadBytes(p []byte) (int, error) {
	if !d.Valid() {
		return 0, badDescriptor("read", d.Fd())
	}
	n := 0
	for n < len(p) {
		m, err := ignoringEINTRIO(unix.Read, d.Fd(), p[n:])
		if err != nil {
			return n, wrapErrno(err, "read", "fd", d.Fd(), "len", len(p)-n)
		}
		if m == 0 {
			break
		}
		n += m
	}
	return n, nil
}

// Read implements io.Reader on top of ReadBytes.
func (d *Descriptor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := d.ReadBytes(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte reads a single byte. It returns io.EOF at end of stream.
func (d *Descriptor) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := d.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUntil reads bytes until sep or end of stream. The separator is
// consumed but not returned; n counts every byte consumed.
func (d *Descriptor) ReadUntil(sep byte) (data []byte, n int, err error) {
	for {
		b, err := d.ReadByte()
		if err == io.EOF {
			return data, n, nil
		}
		if err != nil {
			return data, n, err
		}
		n++
		if b == sep {
			return data, n, nil
		}
		data = append(data, b)
	}
}

// ReadLine reads one newline-terminated line.
func (d *Descriptor) ReadLine() (string, int, error) {
	line, n, err := d.ReadUntil('\n')
	return string(line), n, err
}

// ReadLines reads every remaining line and returns the distinct lines in
// sorted order.
func (d *Descriptor) ReadLines() ([]string, int, error) {
	seen := make(map[string]struct{})
	total := 0
	for {
		line, n, err := d.ReadLine()
		total += n
		if err != nil {
			return nil, total, err
		}
		if n == 0 {
			break
		}
		seen[line] = struct{}{}
	}

	lines := make([]string, 0, len(seen))
	for line := range seen {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines, total, nil
}

// ReadAll reads until end of stream.
func (d *Descriptor) ReadAll() ([]byte, error) {
	if !d.Valid() {
		return nil, badDescriptor("read", d.Fd())
	}
	var (
		result []byte
		buf    [readChunk]byte
	)
	for {
		n, err := ignoringEINTRIO(unix.Read, d.Fd(), buf[:])
		if err != nil {
			return result, wrapErrno(err, "read", "fd", d.Fd(), "len", len(buf))
		}
		if n == 0 {
			return result, nil
		}
		result = append(result, buf[:n]...)
	}
}

// WriteAll writes every byte of p.
func (d *Descriptor) WriteAll(p []byte) error {
	if !d.Valid() {
		return badDescriptor("write", d.Fd())
	}
	pos := 0
	for pos < len(p) {
		n, err := ignoringEINTRIO(unix.Write, d.Fd(), p[pos:])
		if err != nil {
			return wrapErrno(err, "write", "fd", d.Fd(), "len", len(p)-pos)
		}
		pos += n
	}
	return nil
}

// Write implements io.Writer. It only returns short on error.
func (d *Descriptor) Write(p []byte) (int, error) {
	if err := d.WriteAll(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString writes s.
func (d *Descriptor) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

// WriteByte writes a single byte.
func (d *Descriptor) WriteByte(c byte) error {
	return d.WriteAll([]byte{c})
}

// WriteLine writes s followed by a newline.
func (d *Descriptor) WriteLine(s string) error {
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, s...)
	buf = append(buf, '\n')
	return d.WriteAll(buf)
}

// Lock acquires an advisory flock(2) lock, blocking until it is granted.
func (d *Descriptor) Lock(exclusive bool) error {
	if !d.Valid() {
		return badDescriptor("flock", d.Fd())
	}
	how := lockHow(exclusive)
	err := ignoringEINTR(func() error {
		return unix.Flock(d.Fd(), how)
	})
	return wrapErrno(err, "flock", "fd", d.Fd(), "exclusive", exclusive)
}

// TryLock attempts to acquire the lock without blocking. It returns false
// if the lock is held elsewhere.
func (d *Descriptor) TryLock(exclusive bool) (bool, error) {
	if !d.Valid() {
		return false, badDescriptor("flock", d.Fd())
	}
	how := lockHow(exclusive) | unix.LOCK_NB
	err := ignoringEINTR(func() error {
		return unix.Flock(d.Fd(), how)
	})
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	if err != nil {
		return false, wrapErrno(err, "flock", "fd", d.Fd(), "exclusive", exclusive)
	}
	return true, nil
}

// Unlock releases the advisory lock.
func (d *Descriptor) Unlock() error {
	if !d.Valid() {
		return badDescriptor("flock", d.Fd())
	}
	err := ignoringEINTR(func() error {
		return unix.Flock(d.Fd(), unix.LOCK_UN)
	})
	return wrapErrno(err, "flock", "fd", d.Fd(), "unlock", true)
}

func lockHow(exclusive bool) int {
	if exclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

// unixMode converts an os.FileMode to the mode_t permission bits.
func unixMode(mode os.FileMode) uint32 {
	m := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		m |= unix.S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= unix.S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= unix.S_ISVTX
	}
	return m
}
