package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitset_SetTestClear(t *testing.T) {
	b := NewBitset(128)

	assert.False(t, b.Test(5))
	b.Set(5)
	assert.True(t, b.Test(5))

	b.Clear(5)
	assert.False(t, b.Test(5))
}

func TestBitset_WordBoundaries(t *testing.T) {
	b := NewBitset(256)

	for _, i := range []int{0, 63, 64, 127, 128, 255} {
		b.Set(i)
	}
	for _, i := range []int{0, 63, 64, 127, 128, 255} {
		assert.True(t, b.Test(i), "bit %d", i)
	}
	assert.False(t, b.Test(62))
	assert.False(t, b.Test(65))
	assert.Equal(t, 6, b.Count())
}

func TestBitset_AutoGrow(t *testing.T) {
	b := NewBitset(64)

	b.Set(1000)
	assert.True(t, b.Test(1000))
	assert.GreaterOrEqual(t, b.Size(), 1001)
	assert.False(t, b.Test(999))
}

func TestBitset_NegativeIndex(t *testing.T) {
	b := NewBitset(64)

	b.Set(-1)
	b.Clear(-1)
	assert.False(t, b.Test(-1))
	assert.Equal(t, 0, b.Count())
}

func TestBitset_ClearAll(t *testing.T) {
	b := NewBitset(100)
	for i := 0; i < 100; i++ {
		b.Set(i)
	}

	b.ClearAll()
	assert.Equal(t, 0, b.Count())
}

func TestBitset_FirstClear(t *testing.T) {
	tests := []struct {
		name     string
		set      []int
		n        int
		expected int
	}{
		{name: "empty bitset", set: nil, n: 10, expected: 0},
		{name: "gap in middle", set: []int{0, 1, 2, 4, 5}, n: 6, expected: 3},
		{name: "all set", set: []int{0, 1, 2, 3}, n: 4, expected: -1},
		{name: "gap at word boundary", set: []int{0, 1, 2}, n: 200, expected: 3},
		{name: "first missing is last", set: []int{0, 1, 2}, n: 4, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBitset(tt.n)
			for _, i := range tt.set {
				b.Set(i)
			}
			assert.Equal(t, tt.expected, b.FirstClear(tt.n))
		})
	}
}

func TestBitset_FirstClearFullWords(t *testing.T) {
	// A fully set word must be skipped, not scanned.
	b := NewBitset(130)
	for i := 0; i < 130; i++ {
		b.Set(i)
	}
	assert.Equal(t, -1, b.FirstClear(130))

	b.Clear(128)
	assert.Equal(t, 128, b.FirstClear(130))
}

func TestBitset_Or(t *testing.T) {
	a := NewBitset(64)
	a.Set(1)
	a.Set(2)

	b := NewBitset(128)
	b.Set(2)
	b.Set(100)

	a.Or(b)
	assert.True(t, a.Test(1))
	assert.True(t, a.Test(2))
	assert.True(t, a.Test(100))
	assert.Equal(t, 3, a.Count())

	a.Or(nil)
	assert.Equal(t, 3, a.Count())
}

func TestBitset_Clone(t *testing.T) {
	a := NewBitset(64)
	a.Set(7)

	b := a.Clone()
	b.Set(9)

	assert.True(t, a.Test(7))
	assert.False(t, a.Test(9), "clone must not share storage")
	assert.True(t, b.Test(7))
	assert.True(t, b.Test(9))
}

func TestBitset_PermutationCheck(t *testing.T) {
	// The verifier's usage pattern: mark each output value, then confirm
	// every index in [0, n) was seen exactly once.
	n := 1000
	values := make([]int, n)
	for i := range values {
		values[i] = (i * 7) % n // 7 and 1000 are coprime
	}

	b := NewBitset(n)
	for _, v := range values {
		b.Set(v)
	}

	assert.Equal(t, n, b.Count())
	assert.Equal(t, -1, b.FirstClear(n))
}

func BenchmarkBitsetSet(b *testing.B) {
	bs := NewBitset(1 << 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bs.Set(i & (1<<20 - 1))
	}
}
