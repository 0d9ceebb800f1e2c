//go:build linux

package mmap

import (
	"bytes"
	"testing"
	"unsafe"
)

func TestRemapShrinkInPlace(t *testing.T) {
	f := createFile(t, make([]byte, 8192))

	m, err := New(int(f.Fd()), 0, 8192, true)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	copy(m.Data(), "test data")
	before := m.Data()
	base := unsafe.Pointer(&before[0])

	if err := m.Remap(4096, false); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 4096 {
		t.Errorf("size after remap: got %d, want 4096", m.Len())
	}
	if unsafe.Pointer(&m.Data()[0]) != base {
		t.Error("in-place remap moved the mapping")
	}

	// The old slice is still valid over the surviving prefix.
	if !bytes.HasPrefix(before[:4096], []byte("test data")) {
		t.Error("data corrupted after remap")
	}
}

func TestRemapGrow(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, true)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	copy(m.Data(), "test data")

	if err := f.Truncate(8192); err != nil {
		t.Fatal(err)
	}
	if err := m.Remap(8192, true); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 8192 {
		t.Errorf("size after remap: got %d, want 8192", m.Len())
	}
	if !bytes.HasPrefix(m.Data(), []byte("test data")) {
		t.Error("data corrupted after remap")
	}

	copy(m.Data()[4096:], "new region")
	if err := m.Sync(); err != nil {
		t.Fatal(err)
	}

	// The remapped slice must still be releasable.
	if err := m.Close(); err != nil {
		t.Fatalf("close after remap: %v", err)
	}
}

func TestRemapSameSize(t *testing.T) {
	f := createFile(t, make([]byte, 4096))

	m, err := New(int(f.Fd()), 0, 4096, false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if err := m.Remap(4096, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Remap(0, false); err != ErrInvalidSize {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}
