// Package parallel provides chunked fan-out helpers for scanning and
// aggregating large slices. Benchmark trials never run through these;
// timing-sensitive work stays sequential. They serve the machinery
// around the trials, chiefly output verification.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// PoolConfig bounds the fan-out of the helpers in this package.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8).
	MaxWorkers int
}

// DefaultPoolConfig returns the default fan-out bound.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{MaxWorkers: workers}
}

// WithWorkers returns a copy of the config with the worker bound set.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// workers clamps the configured bound to the item count.
func (c PoolConfig) workers(items int) int {
	n := c.MaxWorkers
	if n <= 0 {
		n = DefaultPoolConfig().MaxWorkers
	}
	if n > items {
		n = items
	}
	return n
}

// ChunkProcessor splits a slice into contiguous chunks, processes each
// chunk on its own goroutine, and reduces the per-chunk results into one
// value. Chunks never overlap, so processors need no locking as long as
// they only read the slice.
type ChunkProcessor[T any, R any] struct {
	config PoolConfig
}

// NewChunkProcessor creates a chunk processor with the given bound.
func NewChunkProcessor[T any, R any](config PoolConfig) *ChunkProcessor[T, R] {
	return &ChunkProcessor[T, R]{config: config}
}

// ProcessChunks fans the slice out and reduces the results. The
// processor receives items[start:end] together with the start offset, so
// chunk-local indexes can be mapped back to slice indexes. A cancelled
// context skips chunks that have not started; results for skipped chunks
// are the zero value of R.
func (p *ChunkProcessor[T, R]) ProcessChunks(
	ctx context.Context,
	items []T,
	processor func(ctx context.Context, chunk []T, offset int) R,
	reducer func(results []R) R,
) R {
	if len(items) == 0 {
		var zero R
		return zero
	}

	numWorkers := p.config.workers(len(items))
	chunkSize := (len(items) + numWorkers - 1) / numWorkers
	results := make([]R, numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(items))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(slot, offset int, chunk []T) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[slot] = processor(ctx, chunk, offset)
		}(w, start, items[start:end])
	}

	wg.Wait()
	return reducer(results)
}

// ParallelAggregate builds a map from a slice using per-worker local
// maps that merge after all workers finish, so no map is ever written
// from two goroutines. The merger combines values when a key lands in
// more than one local map.
func ParallelAggregate[T any, K comparable, V any](
	ctx context.Context,
	items []T,
	config PoolConfig,
	extractor func(item T) (key K, value V),
	merger func(existing, incoming V) V,
) map[K]V {
	if len(items) == 0 {
		return make(map[K]V)
	}

	numWorkers := config.workers(len(items))
	chunkSize := (len(items) + numWorkers - 1) / numWorkers
	localMaps := make([]map[K]V, numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(items))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(slot int, chunk []T) {
			defer wg.Done()
			local := make(map[K]V, len(chunk))
			for _, item := range chunk {
				if ctx.Err() != nil {
					break
				}
				key, value := extractor(item)
				if existing, ok := local[key]; ok {
					local[key] = merger(existing, value)
				} else {
					local[key] = value
				}
			}
			localMaps[slot] = local
		}(w, items[start:end])
	}

	wg.Wait()

	result := make(map[K]V)
	for _, local := range localMaps {
		for k, v := range local {
			if existing, ok := result[k]; ok {
				result[k] = merger(existing, v)
			} else {
				result[k] = v
			}
		}
	}
	return result
}
