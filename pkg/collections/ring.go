package collections

// RingBuffer is a fixed-size circular buffer. The profiling collector
// keeps its most recent errors and samples in one; once full, Push
// refuses new values and the caller decides whether to Pop first.
type RingBuffer[T any] struct {
	data  []T
	head  int
	tail  int
	count int
	cap   int
}

// NewRingBuffer creates a new ring buffer with the given capacity.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
		cap:  capacity,
	}
}

// Push adds a value to the buffer. Returns false if the buffer is full.
func (r *RingBuffer[T]) Push(v T) bool {
	if r.count == r.cap {
		return false
	}
	r.data[r.tail] = v
	r.tail = (r.tail + 1) % r.cap
	r.count++
	return true
}

// PushEvict adds a value, evicting the oldest one if the buffer is full.
func (r *RingBuffer[T]) PushEvict(v T) {
	if r.count == r.cap {
		r.Pop()
	}
	r.Push(v)
}

// Pop removes and returns the oldest value. Returns false if the buffer
// is empty.
func (r *RingBuffer[T]) Pop() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	v := r.data[r.head]
	r.head = (r.head + 1) % r.cap
	r.count--
	return v, true
}

// Peek returns the oldest value without removing it.
func (r *RingBuffer[T]) Peek() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.data[r.head], true
}

// Snapshot returns the buffered values oldest-first without consuming
// them.
func (r *RingBuffer[T]) Snapshot() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.data[(r.head+i)%r.cap])
	}
	return out
}

// IsFull returns true if the buffer is full.
func (r *RingBuffer[T]) IsFull() bool {
	return r.count == r.cap
}

// IsEmpty returns true if the buffer is empty.
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.count == 0
}

// Len returns the number of buffered values.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// Cap returns the capacity of the buffer.
func (r *RingBuffer[T]) Cap() int {
	return r.cap
}

// Clear empties the buffer.
func (r *RingBuffer[T]) Clear() {
	r.head = 0
	r.tail = 0
	r.count = 0
}
