//go:build unix

package gposix

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openFile(t *testing.T, path string, flags int) *File {
	t.Helper()
	f, err := Open(path, flags, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNewMapping_WholeFile(t *testing.T) {
	path := writeFile(t, "data", []byte("mapped contents"))
	f := openFile(t, path, unix.O_RDONLY)

	m, err := NewMapping(f, LengthOfFile, 0)
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.Valid())
	assert.True(t, m.Readable())
	assert.False(t, m.Writable())
	assert.Equal(t, len("mapped contents"), m.Len())
	assert.Zero(t, m.Offset())
	assert.Equal(t, "mapped contents", string(m.Bytes()))

	b, err := m.At(7)
	require.NoError(t, err)
	assert.Equal(t, byte('c'), b)

	s, err := m.Slice(7, 8)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(s))
	assert.Equal(t, 8, cap(s))

	_, err = m.At(m.Len())
	requireType(t, err, InvalidArgument)
	_, err = m.At(-1)
	requireType(t, err, InvalidArgument)
	_, err = m.Slice(10, 10)
	requireType(t, err, InvalidArgument)

	require.NoError(t, m.Advise(unix.MADV_SEQUENTIAL))
}

func TestNewMapping_Errors(t *testing.T) {
	empty := openFile(t, writeFile(t, "empty", nil), unix.O_RDONLY)
	data := openFile(t, writeFile(t, "data", make([]byte, 8192)), unix.O_RDONLY)

	_, err := NewMapping(empty, LengthOfFile, 0)
	requireType(t, err, InvalidArgument)

	_, err = NewMapping(data, 0, 0)
	requireType(t, err, InvalidArgument)

	_, err = NewMapping(data, 16, 1)
	requireType(t, err, InvalidArgument)

	_, err = NewMapping(nil, 16, 0)
	requireType(t, err, BadDescriptor)

	_, err = NewMapping(&Descriptor{}, 16, 0)
	requireType(t, err, BadDescriptor)

	_, err = NewWritableMapping(data, 16, 0)
	requireType(t, err, PermissionDenied)
}

func TestNewMapping_Offset(t *testing.T) {
	page := unix.Getpagesize()
	content := make([]byte, 2*page)
	content[page] = 'x'
	f := openFile(t, writeFile(t, "data", content), unix.O_RDONLY)

	m, err := NewMapping(f, LengthOfFile, int64(page))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, page, m.Len())
	assert.Equal(t, int64(page), m.Offset())
	b, err := m.At(0)
	require.NoError(t, err)
	assert.Equal(t, byte('x'), b)
}

func TestMapping_Writable(t *testing.T) {
	path := writeFile(t, "data", []byte("aaaa"))
	f := openFile(t, path, unix.O_RDWR)

	m, err := NewWritableMapping(f, LengthOfFile, 0)
	require.NoError(t, err)
	assert.True(t, m.Writable())

	copy(m.Bytes(), "abcd")
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))
}

func TestMapping_Move(t *testing.T) {
	f := openFile(t, writeFile(t, "data", []byte("move me")), unix.O_RDONLY)

	m, err := NewMapping(f, LengthOfFile, 0)
	require.NoError(t, err)
	alias := m

	moved := m.Move()
	defer moved.Close()

	assert.False(t, m.Valid())
	assert.False(t, alias.Valid(), "copies of a moved mapping are stale")
	assert.True(t, moved.Valid())
	assert.Equal(t, "move me", string(moved.Bytes()))

	requireType(t, m.Sync(), BadDescriptor)
	requireType(t, alias.Sync(), BadDescriptor)
	_, err = alias.At(0)
	requireType(t, err, BadDescriptor)
	assert.Zero(t, alias.Len())
	assert.Nil(t, alias.Bytes())

	again := m.Move()
	assert.False(t, again.Valid())
}

func TestMapping_SyncRangeAndLock(t *testing.T) {
	page := unix.Getpagesize()
	path := writeFile(t, "data", make([]byte, 2*page))
	f := openFile(t, path, unix.O_RDWR)

	m, err := NewWritableMapping(f, LengthOfFile, 0)
	require.NoError(t, err)

	copy(m.Bytes()[page:], "second page")
	require.NoError(t, m.SyncRange(page, page))
	require.NoError(t, m.SyncAsync())
	requireType(t, m.SyncRange(0, 3*page), InvalidArgument)
	requireType(t, m.SyncRange(-1, 1), InvalidArgument)

	err = m.Lock()
	if code, ok := ErrnoOf(err); ok && (code == unix.ENOMEM || code == unix.EPERM || code == unix.EAGAIN) {
		t.Log("mlock not permitted here, skipping unlock")
	} else {
		require.NoError(t, err)
		require.NoError(t, m.Unlock())
	}

	require.NoError(t, m.Close())
	requireType(t, m.Lock(), BadDescriptor)
	requireType(t, m.Unlock(), BadDescriptor)
	requireType(t, m.SyncRange(0, page), BadDescriptor)
	requireType(t, m.SyncAsync(), BadDescriptor)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second page", string(data[page:page+len("second page")]))
}

func TestMapSize(t *testing.T) {
	n, err := mapSize("mmap", 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	n, err = mapSize("mmap", int64(math.MaxInt))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, n)

	limit := int64(math.MaxInt)
	if strconv.IntSize == 32 {
		_, err = mapSize("mmap", limit+1)
		requireType(t, err, InvalidArgument)
	}
}

func TestMapping_Close(t *testing.T) {
	f := openFile(t, writeFile(t, "data", []byte("x")), unix.O_RDONLY)

	m, err := NewMapping(f, LengthOfFile, 0)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.False(t, m.Valid())
	requireType(t, m.Remap(4096, RemapMayMove), BadDescriptor)

	var zero Mapping
	assert.False(t, zero.Valid())
	require.NoError(t, zero.Close())
}

func TestMapping_OutlivesDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("still here"), 0o644))

	f, err := Open(path, unix.O_RDONLY, 0)
	require.NoError(t, err)
	m, err := NewMapping(f, LengthOfFile, 0)
	require.NoError(t, err)
	defer m.Close()

	f.Close()
	assert.Equal(t, "still here", string(m.Bytes()))
}
