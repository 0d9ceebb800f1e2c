package slot

import "math/bits"

// bitmap tracks which table slots are occupied, one bit per slot.
type bitmap struct {
	words    []uint64
	numSlots uint32
	freeHint uint32 // lowest slot that may be free
}

// allocate marks the first free slot at or after the hint.
// Returns (0, false) when every slot is occupied.
func (b *bitmap) allocate() (uint32, bool) {
	numWords := uint32(len(b.words))
	if numWords == 0 {
		return 0, false
	}

	startWord := b.freeHint / 64
	for i := uint32(0); i < numWords; i++ {
		wordIdx := (startWord + i) % numWords
		word := b.words[wordIdx]
		if word == ^uint64(0) {
			continue
		}

		bitPos := bits.TrailingZeros64(^word)
		slot := wordIdx*64 + uint32(bitPos)
		if slot >= b.numSlots {
			continue
		}

		b.words[wordIdx] |= 1 << bitPos
		b.freeHint = slot + 1
		return slot, true
	}

	return 0, false
}

// free marks a slot as available.
func (b *bitmap) free(slot uint32) {
	if slot >= b.numSlots {
		return
	}
	b.words[slot/64] &^= 1 << (slot % 64)
	if slot < b.freeHint {
		b.freeHint = slot
	}
}

// extend grows the bitmap to newCap slots.
func (b *bitmap) extend(newCap uint32) {
	if newCap <= b.numSlots {
		return
	}

	newNumWords := (newCap + 63) / 64
	if newNumWords > uint32(len(b.words)) {
		newWords := make([]uint64, newNumWords)
		copy(newWords, b.words)
		b.words = newWords
	}
	if b.freeHint >= b.numSlots {
		b.freeHint = b.numSlots
	}
	b.numSlots = newCap
}

func (b *bitmap) isAllocated(slot uint32) bool {
	if slot >= b.numSlots {
		return false
	}
	return b.words[slot/64]&(1<<(slot%64)) != 0
}

func (b *bitmap) count() uint32 {
	var count uint32
	for _, word := range b.words {
		count += uint32(bits.OnesCount64(word))
	}
	return count
}
