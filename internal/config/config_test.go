package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gposix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestInitialize_Defaults(t *testing.T) {
	t.Cleanup(func() { Set(&Config{}) })

	require.NoError(t, Initialize(""))
	assert.Equal(t, Default(), Get())
}

func TestInitialize_File(t *testing.T) {
	t.Cleanup(func() { Set(&Config{}) })

	path := writeConfig(t, `
log:
  level: debug
  fileLogging: true
  directory: /var/log/gposix
socket:
  path: /run/gposix.sock
  backlog: 8
`)
	require.NoError(t, Initialize(path))

	c := Get()
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Log.FileLogging)
	assert.True(t, c.Log.ConsoleLogging, "unset keys keep their default")
	assert.Equal(t, "/var/log/gposix", c.Log.Directory)
	assert.Equal(t, "/run/gposix.sock", c.Socket.Path)
	assert.Equal(t, 8, c.Socket.Backlog)
}

func TestInitialize_EnvOverride(t *testing.T) {
	t.Cleanup(func() { Set(&Config{}) })

	path := writeConfig(t, "socket:\n  path: /from/file.sock\n")
	t.Setenv("GPOSIX_SOCKET_PATH", "/from/env.sock")

	require.NoError(t, Initialize(path))
	assert.Equal(t, "/from/env.sock", Get().Socket.Path)
}

func TestInitialize_MissingFile(t *testing.T) {
	err := Initialize(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, NotFoundError))
	assert.True(t, errorx.HasTrait(err, errorx.NotFound()))
}

func TestInitialize_InvalidBacklog(t *testing.T) {
	path := writeConfig(t, "socket:\n  backlog: 0\n")

	err := Initialize(path)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, errorx.IllegalArgument))
}
