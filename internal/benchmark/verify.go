package benchmark

import (
	"context"

	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/pkg/collections"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/parallel"
)

// verifyChunkThreshold is the output length above which verification
// scans run through the chunk processor instead of a single loop.
const verifyChunkThreshold = 1 << 16

// Verifier proves that a strategy's output is a sorted permutation of
// its input: same length, ascending order, same value counts.
type Verifier struct {
	pool           parallel.PoolConfig
	chunkThreshold int
}

// NewVerifier creates a Verifier with default parallelism.
func NewVerifier() *Verifier {
	return &Verifier{
		pool:           parallel.DefaultPoolConfig(),
		chunkThreshold: verifyChunkThreshold,
	}
}

// Verify checks a single output against its input in one shot.
func (v *Verifier) Verify(ctx context.Context, input, output []int64, kind string) error {
	return v.NewCaseChecker(ctx, input, kind).Check(ctx, output)
}

// CaseChecker verifies repeated trial outputs of one case. The expected
// value counts are computed once from the input, so per-trial checks
// only walk the output.
type CaseChecker struct {
	v    *Verifier
	kind string
	n    int

	// counts holds the input's value histogram, nil for permutation
	// inputs where a bitset replaces it.
	counts map[int64]int64
	bits   *collections.Bitset
}

// NewCaseChecker builds a checker for one case input. Permutation
// datasets hold exactly the values 0..n-1, so membership fits in a
// bitset; every other kind gets a counting map.
func (v *Verifier) NewCaseChecker(ctx context.Context, input []int64, kind string) *CaseChecker {
	c := &CaseChecker{v: v, kind: kind, n: len(input)}
	if kind == dataset.KindPermutation {
		c.bits = collections.NewBitset(len(input))
	} else {
		c.counts = v.countValues(ctx, input)
	}
	return c
}

// Check verifies one trial output. Not safe for concurrent use: the
// permutation fast path reuses one bitset across trials.
func (c *CaseChecker) Check(ctx context.Context, output []int64) error {
	if len(output) != c.n {
		return errors.Newf(errors.CodeVerifyError, "output length %d, want %d", len(output), c.n)
	}

	if idx := c.v.firstDisorder(ctx, output); idx >= 0 {
		return errors.Newf(errors.CodeVerifyError,
			"output not sorted at index %d: %d > %d", idx, output[idx-1], output[idx])
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.CodeVerifyError, "verification interrupted", err)
	}

	if c.bits != nil {
		return c.checkPermutation(output)
	}
	return c.checkCounts(ctx, output)
}

func (c *CaseChecker) checkPermutation(output []int64) error {
	c.bits.ClearAll()
	for _, val := range output {
		if val < 0 || val >= int64(c.n) {
			return errors.Newf(errors.CodeVerifyError,
				"output value %d outside permutation range [0, %d)", val, c.n)
		}
		c.bits.Set(int(val))
	}
	// Same length, all values in range: a duplicate necessarily leaves
	// some other value unset.
	if missing := c.bits.FirstClear(c.n); missing >= 0 {
		return errors.Newf(errors.CodeVerifyError,
			"output is not a permutation: value %d missing", missing)
	}
	return nil
}

func (c *CaseChecker) checkCounts(ctx context.Context, output []int64) error {
	got := c.v.countValues(ctx, output)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.CodeVerifyError, "verification interrupted", err)
	}

	if len(got) != len(c.counts) {
		return errors.Newf(errors.CodeVerifyError,
			"output has %d distinct values, input has %d", len(got), len(c.counts))
	}
	for val, want := range c.counts {
		if got[val] != want {
			return errors.Newf(errors.CodeVerifyError,
				"value %d appears %d times in output, %d in input", val, got[val], want)
		}
	}
	return nil
}

// disorder marks the first out-of-order index found in a chunk. The
// zero value means the chunk was clean.
type disorder struct {
	index int
	found bool
}

// firstDisorder returns the first index i where output[i-1] > output[i],
// or -1 when the sequence is ascending. Large outputs are scanned in
// parallel chunks; each chunk also checks its boundary against the
// preceding element.
func (v *Verifier) firstDisorder(ctx context.Context, output []int64) int {
	if len(output) < v.chunkThreshold {
		for i := 1; i < len(output); i++ {
			if output[i-1] > output[i] {
				return i
			}
		}
		return -1
	}

	proc := parallel.NewChunkProcessor[int64, disorder](v.pool)
	res := proc.ProcessChunks(ctx, output,
		func(_ context.Context, chunk []int64, offset int) disorder {
			if offset > 0 && output[offset-1] > chunk[0] {
				return disorder{index: offset, found: true}
			}
			for i := 1; i < len(chunk); i++ {
				if chunk[i-1] > chunk[i] {
					return disorder{index: offset + i, found: true}
				}
			}
			return disorder{}
		},
		func(results []disorder) disorder {
			first := disorder{}
			for _, r := range results {
				if r.found && (!first.found || r.index < first.index) {
					first = r
				}
			}
			return first
		})

	if !res.found {
		return -1
	}
	return res.index
}

// countValues builds the value histogram of a sequence, in parallel for
// large inputs.
func (v *Verifier) countValues(ctx context.Context, data []int64) map[int64]int64 {
	if len(data) < v.chunkThreshold {
		counts := make(map[int64]int64)
		for _, val := range data {
			counts[val]++
		}
		return counts
	}

	return parallel.ParallelAggregate(ctx, data, v.pool,
		func(item int64) (int64, int64) { return item, 1 },
		func(existing, incoming int64) int64 { return existing + incoming })
}
