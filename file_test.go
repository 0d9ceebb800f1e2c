//go:build unix

package gposix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpen_SetsCloseOnExec(t *testing.T) {
	path := writeFile(t, "data", []byte("content"))

	f, err := Open(path, unix.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	cloexec, err := f.CloseOnExec()
	require.NoError(t, err)
	assert.True(t, cloexec)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	regular := writeFile(t, "regular", nil)

	_, err := Open(filepath.Join(dir, "missing"), unix.O_RDONLY, 0)
	requireType(t, err, NotFound)
	assert.True(t, IsRuntime(err))
	code, _ := ErrnoOf(err)
	assert.Equal(t, unix.ENOENT, code)
	assert.Equal(t, filepath.Join(dir, "missing"), ArgsOf(err)[0].Value)

	_, err = Open(filepath.Join(regular, "child"), unix.O_RDONLY, 0)
	requireType(t, err, NotADirectory)

	_, err = Open(filepath.Join(dir, strings.Repeat("n", 300)), unix.O_RDONLY, 0)
	requireType(t, err, NameTooLong)

	_, err = Open(dir, unix.O_WRONLY, 0)
	requireType(t, err, RuntimeError)
	code, _ = ErrnoOf(err)
	assert.Equal(t, unix.EISDIR, code)
}

func TestFile_SizeSeekTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	f, err := Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o644)
	require.NoError(t, err)
	defer f.Close()

	empty, err := f.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, f.WriteAll([]byte("0123456789")))
	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	off, err := f.Offset()
	require.NoError(t, err)
	assert.Equal(t, int64(10), off)

	off, err = f.Seek(-4, unix.SEEK_END)
	require.NoError(t, err)
	assert.Equal(t, int64(6), off)
	rest, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "6789", string(rest))

	require.NoError(t, f.Rewind())
	b, err := f.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('0'), b)

	require.NoError(t, f.Truncate(3))
	size, err = f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	_, err = f.Seek(-1, unix.SEEK_SET)
	requireType(t, err, InvalidArgument)
}

func TestFile_Allocate(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "alloc"), unix.O_RDWR|unix.O_CREAT, 0o644)
	require.NoError(t, err)
	defer f.Close()

	err = f.Allocate(0, 8192)
	if code, ok := ErrnoOf(err); ok && code == unix.EOPNOTSUPP {
		t.Skip("filesystem does not support fallocate")
	}
	require.NoError(t, err)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(8192), size)

	requireType(t, f.Allocate(0, 0), InvalidArgument)
}

func TestCreate_Truncates(t *testing.T) {
	path := writeFile(t, "existing", []byte("old contents"))

	f, err := Create(path, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.WriteAll([]byte("new")))
	f.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFile_InvalidOperations(t *testing.T) {
	var f File
	_, err := f.Size()
	requireType(t, err, BadDescriptor)
	_, err = f.Seek(0, unix.SEEK_SET)
	requireType(t, err, BadDescriptor)
	requireType(t, f.Truncate(0), BadDescriptor)
	requireType(t, f.Allocate(0, 1), BadDescriptor)
}
