// Package collections provides generic data structures for efficient data processing.
package collections

import "math/bits"

// Bitset is a memory-efficient boolean set using one bit per element.
// Verifying that a million-element output is a permutation of 0..n-1
// takes 128KB here versus ~1MB for []bool or tens of MB for a map.
type Bitset struct {
	words []uint64
	size  int
}

// NewBitset creates a new bitset holding indices [0, size).
func NewBitset(size int) *Bitset {
	if size <= 0 {
		size = 64
	}
	return &Bitset{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// Set sets the bit at index i, growing the bitset if needed.
func (b *Bitset) Set(i int) {
	if i < 0 {
		return
	}
	word := i / 64
	if word >= len(b.words) {
		b.grow(i + 1)
	}
	b.words[word] |= 1 << (i % 64)
	if i >= b.size {
		b.size = i + 1
	}
}

// Clear clears the bit at index i.
func (b *Bitset) Clear(i int) {
	if i < 0 || i/64 >= len(b.words) {
		return
	}
	b.words[i/64] &^= 1 << (i % 64)
}

// Test returns true if the bit at index i is set.
func (b *Bitset) Test(i int) bool {
	if i < 0 || i/64 >= len(b.words) {
		return false
	}
	return b.words[i/64]&(1<<(i%64)) != 0
}

// ClearAll clears all bits.
func (b *Bitset) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	count := 0
	for _, word := range b.words {
		count += bits.OnesCount64(word)
	}
	return count
}

// Size returns the highest index the bitset has been sized for.
func (b *Bitset) Size() int {
	return b.size
}

// FirstClear returns the lowest index in [0, n) whose bit is unset, or -1
// if all n bits are set.
func (b *Bitset) FirstClear(n int) int {
	for w := 0; w*64 < n; w++ {
		var word uint64
		if w < len(b.words) {
			word = b.words[w]
		}
		if word == ^uint64(0) {
			continue
		}
		i := w*64 + bits.TrailingZeros64(^word)
		if i < n {
			return i
		}
		return -1
	}
	return -1
}

// Or merges another bitset into this one (set union).
func (b *Bitset) Or(other *Bitset) {
	if other == nil {
		return
	}
	if len(other.words) > len(b.words) {
		b.grow(other.size)
	}
	for i := 0; i < len(other.words) && i < len(b.words); i++ {
		b.words[i] |= other.words[i]
	}
	if other.size > b.size {
		b.size = other.size
	}
}

// Clone creates an independent copy of the bitset.
func (b *Bitset) Clone() *Bitset {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return &Bitset{words: words, size: b.size}
}

// grow expands the bitset to accommodate at least newSize bits, doubling
// to amortize allocation.
func (b *Bitset) grow(newSize int) {
	needed := (newSize + 63) / 64
	if needed <= len(b.words) {
		return
	}
	newCap := len(b.words) * 2
	if newCap < needed {
		newCap = needed
	}
	words := make([]uint64, newCap)
	copy(words, b.words)
	b.words = words
}
