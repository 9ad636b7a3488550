package collections

import (
	"sync"
)

// SlicePool is a generic pool for slices of any type. Benchmark trials
// that repeatedly need equally sized working buffers draw them from here
// instead of allocating per trial.
type SlicePool[T any] struct {
	pool       sync.Pool
	initialCap int
}

// NewSlicePool creates a new slice pool whose fresh slices have the given
// capacity.
func NewSlicePool[T any](initialCap int) *SlicePool[T] {
	if initialCap <= 0 {
		initialCap = 256
	}
	return &SlicePool[T]{
		initialCap: initialCap,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]T, 0, initialCap)
				return &s
			},
		},
	}
}

// Get gets a slice from the pool. Length is zero; capacity is at least
// the pool's initial capacity.
func (p *SlicePool[T]) Get() *[]T {
	return p.pool.Get().(*[]T)
}

// Put returns a slice to the pool after resetting its length.
func (p *SlicePool[T]) Put(s *[]T) {
	*s = (*s)[:0]
	p.pool.Put(s)
}

// Int64SlicePool is a shared pool for []int64 slices.
var Int64SlicePool = NewSlicePool[int64](256)

// GetInt64Slice gets a slice from the shared pool.
func GetInt64Slice() *[]int64 {
	return Int64SlicePool.Get()
}

// PutInt64Slice returns a slice to the shared pool.
func PutInt64Slice(s *[]int64) {
	Int64SlicePool.Put(s)
}
