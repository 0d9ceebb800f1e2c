//go:build unix

package gposix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type id int

func (i id) ID() int { return int(i) }

func newPipe(t *testing.T) (r, w *Descriptor) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	rd, wd := NewDescriptor(fds[0]), NewDescriptor(fds[1])
	t.Cleanup(func() {
		rd.Close()
		wd.Close()
	})
	return &rd, &wd
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func requireType(t *testing.T, err error, typ *errorx.Type) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errorx.IsOfType(err, typ), "expected %s, got %v", typ.FullName(), err)
}
