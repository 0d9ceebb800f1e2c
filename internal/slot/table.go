// Package slot provides a generation-checked slot table.
//
// A Ref names one occupant of a Table. Every Insert, Move and Remove bumps
// the generation of the slot involved, so a Ref that was moved away from or
// removed can never reach the slot's next occupant.
package slot

import "sync"

const initialSlots = 64

// Ref identifies one live entry of a Table. The zero Ref is never live.
type Ref struct {
	index uint32
	gen   uint32
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r.gen == 0
}

type entry[T any] struct {
	gen   uint32
	value T
}

// Table stores values of type T in reusable slots. The zero Table is ready
// to use and safe for concurrent use.
type Table[T any] struct {
	mu      sync.Mutex
	used    bitmap
	entries []entry[T]
}

// Insert stores v in a free slot and returns its Ref.
func (t *Table[T]) Insert(v T) Ref {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.used.allocate()
	if !ok {
		newCap := uint32(len(t.entries)) * 2
		if newCap == 0 {
			newCap = initialSlots
		}
		t.used.extend(newCap)
		grown := make([]entry[T], newCap)
		copy(grown, t.entries)
		t.entries = grown
		idx, _ = t.used.allocate()
	}

	e := &t.entries[idx]
	e.gen = nextGen(e.gen)
	e.value = v
	return Ref{index: idx, gen: e.gen}
}

// Get returns the value named by r.
func (t *Table[T]) Get(r Ref) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live(r) {
		var zero T
		return zero, false
	}
	return t.entries[r.index].value, true
}

// Move invalidates r and returns a new Ref to the same value.
func (t *Table[T]) Move(r Ref) (Ref, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live(r) {
		return Ref{}, false
	}
	e := &t.entries[r.index]
	e.gen = nextGen(e.gen)
	return Ref{index: r.index, gen: e.gen}, true
}

// Remove frees the slot named by r and returns its value.
func (t *Table[T]) Remove(r Ref) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	if !t.live(r) {
		return zero, false
	}
	e := &t.entries[r.index]
	v := e.value
	e.value = zero
	e.gen = nextGen(e.gen)
	t.used.free(r.index)
	return v, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.used.count())
}

func (t *Table[T]) live(r Ref) bool {
	if r.IsZero() || int(r.index) >= len(t.entries) {
		return false
	}
	return t.used.isAllocated(r.index) && t.entries[r.index].gen == r.gen
}

// nextGen skips zero on wrap-around so the zero Ref stays dead.
func nextGen(g uint32) uint32 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}
