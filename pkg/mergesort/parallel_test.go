package mergesort

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/pkg/errors"
)

func TestParallelSortMatchesSequential(t *testing.T) {
	sizes := []int{2, 3, 17, 64, 100, 1023, 4096}
	depths := []int{0, 1, 2, 3, 5}

	for _, size := range sizes {
		want := sortedReference(randomSequence(size, int64(size)))

		for _, depth := range depths {
			src := randomSequence(size, int64(size))
			dst := make([]int64, size)
			copy(dst, src)

			err := parallelSort(src, dst, depth)
			require.NoError(t, err, "size %d depth %d", size, depth)
			assert.Equal(t, want, src, "size %d depth %d", size, depth)
		}
	}
}

func TestParallelSortDepthZeroIsSequential(t *testing.T) {
	// With no budget the scheduler must perform the exact sequence of
	// writes the sequential sorter performs, in both buffers.
	src1 := randomSequence(777, 3)
	dst1 := make([]int64, len(src1))
	copy(dst1, src1)
	src2 := make([]int64, len(src1))
	copy(src2, src1)
	dst2 := make([]int64, len(src1))
	copy(dst2, src1)

	sequentialSort(src1, dst1)
	err := parallelSort(src2, dst2, 0)
	require.NoError(t, err)

	assert.Equal(t, src1, src2)
	assert.Equal(t, dst1, dst2)
}

func TestParallelSortBudgetNeverReplenishes(t *testing.T) {
	// Odd split sizes force uneven recursion; a replenished budget would
	// still sort correctly, so this guards the output contract only at
	// the depths where the budget runs out mid-recursion.
	src := randomSequence(1025, 13)
	want := sortedReference(src)
	dst := make([]int64, len(src))
	copy(dst, src)

	err := parallelSort(src, dst, 1)
	require.NoError(t, err)
	assert.Equal(t, want, src)
}

func TestParallelSortLengthMismatch(t *testing.T) {
	err := parallelSort(make([]int64, 4), make([]int64, 3), 1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetErrorCode(err))
}

func TestSequentialSortNoAllocation(t *testing.T) {
	src := randomSequence(4096, 5)
	dst := make([]int64, len(src))

	allocs := testing.AllocsPerRun(10, func() {
		copy(dst, src)
		sequentialSort(src, dst)
	})
	assert.Equal(t, 0.0, allocs)
}

func TestSortConcurrentCallers(t *testing.T) {
	// Independent sorts share nothing; run a batch concurrently to give
	// the race detector something to chew on.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			seq := randomSequence(2000, seed)
			want := sortedReference(seq)
			got, err := Sort(seq, WithParallelism(4))
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}(int64(i))
	}
	wg.Wait()
}
