package dataset

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/pkg/errors"
)

func TestRegistryHasAllKinds(t *testing.T) {
	expected := []string{
		KindDuplicates,
		KindPermutation,
		KindRandom,
		KindReversed,
		KindSawtooth,
		KindSorted,
	}
	assert.Equal(t, expected, Kinds())
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate(context.Background(), Spec{Kind: "zipfian", Size: 16, Seed: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetErrorCode(err))
}

func TestGenerateNegativeSize(t *testing.T) {
	_, err := Generate(context.Background(), Spec{Kind: KindRandom, Size: -1, Seed: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetErrorCode(err))
}

func TestGenerateEmpty(t *testing.T) {
	data, err := Generate(context.Background(), Spec{Kind: KindRandom, Size: 0, Seed: 1})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestGenerateDeterministic(t *testing.T) {
	ctx := context.Background()

	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			spec := Spec{Kind: kind, Size: 3 * generationChunkSize / 2, Seed: 42}

			first, err := Generate(ctx, spec)
			require.NoError(t, err)

			second, err := Generate(ctx, spec)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestGenerateSeedChangesData(t *testing.T) {
	ctx := context.Background()

	a, err := Generate(ctx, Spec{Kind: KindRandom, Size: 1024, Seed: 1})
	require.NoError(t, err)

	b, err := Generate(ctx, Spec{Kind: KindRandom, Size: 1024, Seed: 2})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSortedGenerator(t *testing.T) {
	data, err := Generate(context.Background(), Spec{Kind: KindSorted, Size: 1 << 12, Seed: 7})
	require.NoError(t, err)

	require.Len(t, data, 1<<12)
	for i, v := range data {
		require.Equal(t, int64(i), v)
	}
}

func TestReversedGenerator(t *testing.T) {
	size := 1 << 12
	data, err := Generate(context.Background(), Spec{Kind: KindReversed, Size: size, Seed: 7})
	require.NoError(t, err)

	for i, v := range data {
		require.Equal(t, int64(size-1-i), v)
	}
}

func TestSawtoothGenerator(t *testing.T) {
	size := 3 * sawtoothPeriod
	data, err := Generate(context.Background(), Spec{Kind: KindSawtooth, Size: size, Seed: 7})
	require.NoError(t, err)

	for i, v := range data {
		require.Equal(t, int64(i%sawtoothPeriod), v)
	}
}

func TestDuplicatesGenerator(t *testing.T) {
	data, err := Generate(context.Background(), Spec{Kind: KindDuplicates, Size: 1 << 14, Seed: 7})
	require.NoError(t, err)

	distinct := make(map[int64]struct{})
	for _, v := range data {
		require.GreaterOrEqual(t, v, int64(0))
		require.Less(t, v, int64(duplicatesCardinality))
		distinct[v] = struct{}{}
	}
	assert.LessOrEqual(t, len(distinct), duplicatesCardinality)
	assert.Greater(t, len(distinct), 1)
}

func TestPermutationGenerator(t *testing.T) {
	size := 1 << 12
	data, err := Generate(context.Background(), Spec{Kind: KindPermutation, Size: size, Seed: 7})
	require.NoError(t, err)

	sorted := make([]int64, size)
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, v := range sorted {
		require.Equal(t, int64(i), v)
	}

	// A permutation that never moved anything would defeat the point.
	moved := false
	for i, v := range data {
		if v != int64(i) {
			moved = true
			break
		}
	}
	assert.True(t, moved)
}

func TestGenerateRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, Spec{Kind: KindRandom, Size: 4 * generationChunkSize, Seed: 1})
	assert.Error(t, err)
}

func TestCaseName(t *testing.T) {
	tests := []struct {
		spec Spec
		want string
	}{
		{Spec{Kind: KindRandom, Size: 1 << 10}, "random-1k"},
		{Spec{Kind: KindSorted, Size: 1 << 16}, "sorted-64k"},
		{Spec{Kind: KindReversed, Size: 1 << 20}, "reversed-1m"},
		{Spec{Kind: KindRandom, Size: 1000}, "random-1000"},
		{Spec{Kind: KindRandom, Size: 3 << 20}, "random-3m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.CaseName())
		})
	}
}

func TestExpandSpecs(t *testing.T) {
	specs := ExpandSpecs([]string{KindRandom, KindSorted}, []int{1 << 10, 1 << 12}, 99)
	require.Len(t, specs, 4)

	seen := make(map[string]int64)
	for _, s := range specs {
		seen[s.CaseName()] = s.Seed
	}
	require.Len(t, seen, 4)

	// Same size, different kind must not share a seed.
	assert.NotEqual(t, seen["random-1k"], seen["sorted-1k"])

	// Expansion is itself deterministic.
	again := ExpandSpecs([]string{KindRandom, KindSorted}, []int{1 << 10, 1 << 12}, 99)
	assert.Equal(t, specs, again)
}
