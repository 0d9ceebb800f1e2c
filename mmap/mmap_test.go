//go:build unix

package mmap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func createFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dat")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNew(t *testing.T) {
	data := []byte("hello world test data for mmap")
	f := createFile(t, data)

	m, err := New(int(f.Fd()), 0, len(data), false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if !bytes.Equal(m.Data(), data) {
		t.Errorf("mmap data mismatch: got %q, want %q", m.Data(), data)
	}
	if m.Len() != len(data) {
		t.Errorf("size mismatch: got %d, want %d", m.Len(), len(data))
	}
	if m.Writable() {
		t.Error("read-only mapping reports writable")
	}
	if m.Fd() != int(f.Fd()) {
		t.Errorf("fd mismatch: got %d, want %d", m.Fd(), f.Fd())
	}
}

func TestWritable(t *testing.T) {
	initial := make([]byte, 4096)
	copy(initial, "initial")
	f := createFile(t, initial)

	m, err := New(int(f.Fd()), 0, len(initial), true)
	if err != nil {
		t.Fatal(err)
	}

	copy(m.Data(), "modified")
	if err := m.Sync(); err != nil {
		m.Close()
		t.Fatal(err)
	}
	m.Close()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("modified")) {
		t.Errorf("expected modified data, got %q", data[:20])
	}
}

func TestSharedVisibility(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	// A write through the file is visible through a shared mapping.
	if _, err := f.WriteAt([]byte("through the file"), 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(m.Data(), []byte("through the file")) {
		t.Errorf("write not visible in mapping: %q", m.Data()[:16])
	}
}

func TestSyncRange(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, true)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	copy(m.Data()[100:], "test")
	if err := m.SyncRange(0, 4096); err != nil {
		t.Fatal(err)
	}
	if err := m.SyncRange(0, 8192); err != ErrInvalidRange {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestClose(t *testing.T) {
	f := createFile(t, []byte("close test"))

	m, err := New(int(f.Fd()), 0, 10, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Data() != nil || m.Mapped() {
		t.Error("data should be nil after close")
	}

	// Double close should be safe
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	if err := m.Sync(); err != ErrNotMapped {
		t.Errorf("expected ErrNotMapped after close, got %v", err)
	}
	if err := m.Remap(4096, false); err != ErrNotMapped {
		t.Errorf("expected ErrNotMapped after close, got %v", err)
	}
}

func TestInvalidSize(t *testing.T) {
	f := createFile(t, nil)

	if _, err := New(int(f.Fd()), 0, 0, false); err != ErrInvalidSize {
		t.Errorf("expected ErrInvalidSize for size 0, got %v", err)
	}
	if _, err := New(int(f.Fd()), 0, -1, false); err != ErrInvalidSize {
		t.Errorf("expected ErrInvalidSize for size -1, got %v", err)
	}
	if !errors.Is(ErrInvalidSize, unix.EINVAL) {
		t.Error("ErrInvalidSize should wrap EINVAL")
	}
}

func TestMisalignedOffset(t *testing.T) {
	f := createFile(t, make([]byte, 8192))

	_, err := New(int(f.Fd()), 1, 4096, false)
	if !errors.Is(err, unix.EINVAL) {
		t.Errorf("expected EINVAL for misaligned offset, got %v", err)
	}
}

func TestBadDescriptor(t *testing.T) {
	_, err := New(-1, 0, 4096, false)
	if !errors.Is(err, unix.EBADF) {
		t.Errorf("expected EBADF, got %v", err)
	}
}

func TestAdvise(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	// These may be no-ops on some platforms but shouldn't error
	for _, advice := range []int{unix.MADV_SEQUENTIAL, unix.MADV_RANDOM, unix.MADV_WILLNEED, unix.MADV_DONTNEED} {
		if err := m.Advise(advice); err != nil {
			t.Errorf("Advise(%d) failed: %v", advice, err)
		}
	}
}

func TestAsyncSyncAndLock(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.SyncAsync(); err != nil {
		t.Errorf("SyncAsync failed: %v", err)
	}
	if err := m.Lock(); err != nil {
		if !errors.Is(err, unix.ENOMEM) && !errors.Is(err, unix.EPERM) && !errors.Is(err, unix.EAGAIN) {
			t.Errorf("Lock failed: %v", err)
		}
	} else if err := m.Unlock(); err != nil {
		t.Errorf("Unlock failed: %v", err)
	}

	m.Close()
	if err := m.SyncAsync(); err != ErrNotMapped {
		t.Errorf("expected ErrNotMapped after close, got %v", err)
	}
	if err := m.Lock(); err != ErrNotMapped {
		t.Errorf("expected ErrNotMapped after close, got %v", err)
	}
}
