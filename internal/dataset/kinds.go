package dataset

import (
	"context"
	"math/rand"
)

// Kind name constants for the built-in generators.
const (
	KindRandom      = "random"
	KindSorted      = "sorted"
	KindReversed    = "reversed"
	KindSawtooth    = "sawtooth"
	KindDuplicates  = "duplicates"
	KindPermutation = "permutation"
)

func init() {
	Register(&randomGenerator{})
	Register(&sortedGenerator{})
	Register(&reversedGenerator{})
	Register(&sawtoothGenerator{})
	Register(&duplicatesGenerator{})
	Register(&permutationGenerator{})
}

// randomGenerator produces uniform values over the full int64 range,
// negatives included.
type randomGenerator struct{}

func (g *randomGenerator) Kind() string { return KindRandom }

func (g *randomGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	return fillChunked(ctx, spec.Size, func(dst []int64, offset int) {
		rng := rand.New(rand.NewSource(chunkSeed(spec.Seed, offset)))
		for i := range dst {
			dst[i] = int64(rng.Uint64())
		}
	})
}

// sortedGenerator produces an already-ascending sequence. Sorting it is
// the best case for any adaptive algorithm and a control for ours.
type sortedGenerator struct{}

func (g *sortedGenerator) Kind() string { return KindSorted }

func (g *sortedGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	return fillChunked(ctx, spec.Size, func(dst []int64, offset int) {
		for i := range dst {
			dst[i] = int64(offset + i)
		}
	})
}

// reversedGenerator produces a strictly descending sequence.
type reversedGenerator struct{}

func (g *reversedGenerator) Kind() string { return KindReversed }

func (g *reversedGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	return fillChunked(ctx, spec.Size, func(dst []int64, offset int) {
		for i := range dst {
			dst[i] = int64(spec.Size - 1 - offset - i)
		}
	})
}

// sawtoothPeriod is the ramp length of the sawtooth pattern. Runs of
// this length are presorted, so merges see long ordered stretches.
const sawtoothPeriod = 1024

// sawtoothGenerator produces repeating ascending ramps 0..period-1.
type sawtoothGenerator struct{}

func (g *sawtoothGenerator) Kind() string { return KindSawtooth }

func (g *sawtoothGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	return fillChunked(ctx, spec.Size, func(dst []int64, offset int) {
		for i := range dst {
			dst[i] = int64((offset + i) % sawtoothPeriod)
		}
	})
}

// duplicatesCardinality bounds how many distinct values the duplicates
// kind emits. Heavy duplication stresses the tie-break path in merges.
const duplicatesCardinality = 16

// duplicatesGenerator produces random values drawn from a tiny domain.
type duplicatesGenerator struct{}

func (g *duplicatesGenerator) Kind() string { return KindDuplicates }

func (g *duplicatesGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	return fillChunked(ctx, spec.Size, func(dst []int64, offset int) {
		rng := rand.New(rand.NewSource(chunkSeed(spec.Seed, offset)))
		for i := range dst {
			dst[i] = rng.Int63n(duplicatesCardinality)
		}
	})
}

// permutationGenerator produces a uniform random permutation of
// 0..size-1. Every value appears exactly once, which lets verification
// take its bitset fast path. Fisher-Yates is inherently sequential, so
// this kind skips chunked generation.
type permutationGenerator struct{}

func (g *permutationGenerator) Kind() string { return KindPermutation }

func (g *permutationGenerator) Generate(ctx context.Context, spec Spec) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := make([]int64, spec.Size)
	for i := range data {
		data[i] = int64(i)
	}

	rng := rand.New(rand.NewSource(spec.Seed))
	rng.Shuffle(len(data), func(i, j int) {
		data[i], data[j] = data[j], data[i]
	})

	return data, nil
}
