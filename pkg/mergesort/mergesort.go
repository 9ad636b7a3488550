// Package mergesort implements an in-memory, buffer-alternating,
// depth-limited parallel merge sort over int64 sequences.
//
// The sorter keeps exactly two equal-length buffers alive for the whole
// sort: the caller's sequence and one scratch buffer allocated by Sort.
// Each recursion level swaps the source and destination roles of the two
// buffers, so every merge writes directly where its parent expects the
// result and no level needs its own temporary storage.
//
// Parallelism is bounded by a depth budget. While budget remains, each
// level forks exactly one goroutine for the left half and sorts the right
// half itself, so the total number of spawned tasks is below 2^budget.
// There is no worker pool and no semaphore: a shared permit gate would let
// a parent block on a child that cannot acquire a permit.
//
// Basic usage:
//
//	data := []int64{5, 3, 3, 1, 4}
//	sorted, err := mergesort.Sort(data)
//
// With explicit parallelism (the depth budget is floor(log2(n))):
//
//	sorted, err := mergesort.Sort(data, mergesort.WithParallelism(8))
package mergesort

import (
	"math/bits"
	"runtime"

	"github.com/sortbench/pkg/errors"
)

// Option configures a Sort call.
type Option func(*sortOptions)

type sortOptions struct {
	parallelism int
	depth       int
	depthSet    bool
}

// WithParallelism sets the parallelism hint used to derive the depth
// budget. Defaults to runtime.GOMAXPROCS(0). Must be at least 1.
func WithParallelism(n int) Option {
	return func(o *sortOptions) {
		o.parallelism = n
	}
}

// WithDepthBudget sets the depth budget directly, bypassing the
// parallelism-based derivation. A budget of 0 forces a fully sequential
// sort. Must not be negative.
func WithDepthBudget(d int) Option {
	return func(o *sortOptions) {
		o.depth = d
		o.depthSet = true
	}
}

// DepthBudget returns the fork depth derived from a parallelism hint:
// floor(log2(parallelism)), or 0 when parallelism is 1 or less. With n
// logical CPUs this yields at most n concurrent tasks at the deepest
// forking level.
func DepthBudget(parallelism int) int {
	if parallelism <= 1 {
		return 0
	}
	return bits.Len(uint(parallelism)) - 1
}

// Sort sorts seq ascending and returns it. The only allocation is a
// single scratch buffer of the same length as seq; the sort itself runs
// in place across the two buffers. A nil sequence is rejected before any
// allocation. Empty and single-element sequences are returned unchanged.
//
// Equal elements keep left-half precedence through every merge, which is
// as much stability as indistinguishable scalars can exhibit.
func Sort(seq []int64, opts ...Option) ([]int64, error) {
	if seq == nil {
		return nil, errors.New(errors.CodeInvalidInput, "sequence is nil")
	}

	o := sortOptions{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism < 1 {
		return nil, errors.Newf(errors.CodeInvalidInput, "parallelism must be at least 1, got %d", o.parallelism)
	}
	if o.depthSet && o.depth < 0 {
		return nil, errors.Newf(errors.CodeInvalidInput, "depth budget must not be negative, got %d", o.depth)
	}

	if len(seq) <= 1 {
		return seq, nil
	}

	depth := o.depth
	if !o.depthSet {
		depth = DepthBudget(o.parallelism)
	}

	scratch := make([]int64, len(seq))
	copy(scratch, seq)

	if err := parallelSort(seq, scratch, depth); err != nil {
		return nil, err
	}
	return seq, nil
}
