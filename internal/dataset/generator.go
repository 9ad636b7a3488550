// Package dataset generates and persists benchmark input sequences.
// Each input kind (random, sorted, reversed, ...) is a strategy
// implementing the Generator interface, registered by name so jobs can
// request kinds by string.
package dataset

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sortbench/pkg/errors"
)

// Spec describes one dataset: its distribution kind, element count, and
// the seed that makes generation reproducible.
type Spec struct {
	Kind string `json:"kind"`
	Size int    `json:"size"`
	Seed int64  `json:"seed"`
}

// Validate checks the spec against the registry.
func (s Spec) Validate() error {
	if s.Size < 0 {
		return errors.Newf(errors.CodeInvalidInput, "dataset size must be non-negative, got %d", s.Size)
	}
	if !IsRegistered(s.Kind) {
		return errors.Newf(errors.CodeInvalidInput, "unknown dataset kind %q (registered: %v)", s.Kind, Kinds())
	}
	return nil
}

// CaseName returns the canonical case name for this spec, e.g.
// "random-64k". Filters and reports key off these names.
func (s Spec) CaseName() string {
	return fmt.Sprintf("%s-%s", s.Kind, FormatSize(s.Size))
}

// FormatSize renders an element count the way case names spell it:
// multiples of 1Mi as "4m", multiples of 1Ki as "64k", anything else in
// plain digits.
func FormatSize(n int) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dm", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dk", n>>10)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Generator produces the values of one dataset kind.
type Generator interface {
	// Kind returns the registered kind name.
	Kind() string

	// Generate produces the full sequence for the spec. Implementations
	// must be deterministic: the same spec yields the same sequence
	// regardless of GOMAXPROCS.
	Generate(ctx context.Context, spec Spec) ([]int64, error)
}

// registry holds all registered generators, keyed by kind.
var (
	registry   = make(map[string]Generator)
	registryMu sync.RWMutex
)

// Register registers a generator under its kind name. Kind generators
// call this from init().
func Register(gen Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[gen.Kind()] = gen
}

// Get returns the generator for a kind.
func Get(kind string) (Generator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	gen, ok := registry[kind]
	return gen, ok
}

// IsRegistered checks whether a kind is registered.
func IsRegistered(kind string) bool {
	_, ok := Get(kind)
	return ok
}

// Kinds returns all registered kind names, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Generate produces the dataset described by the spec using the
// registered generator for its kind.
func Generate(ctx context.Context, spec Spec) ([]int64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	gen, _ := Get(spec.Kind)
	return gen.Generate(ctx, spec)
}

// ExpandSpecs builds the cross product of kinds and sizes. Each spec
// derives its own seed from the base seed and the kind name, so two
// cases of the same size still sort different data.
func ExpandSpecs(kinds []string, sizes []int, seed int64) []Spec {
	specs := make([]Spec, 0, len(kinds)*len(sizes))
	for _, kind := range kinds {
		h := fnv.New64a()
		h.Write([]byte(kind))
		kindSeed := seed ^ int64(h.Sum64())

		for _, size := range sizes {
			specs = append(specs, Spec{
				Kind: kind,
				Size: size,
				Seed: kindSeed + int64(size),
			})
		}
	}
	return specs
}

// generationChunkSize fixes the chunk boundaries for parallel
// generation. Chunks are addressed by index, never by worker count, so
// the output stays deterministic whatever the parallelism.
const generationChunkSize = 1 << 16

// fillChunked fills a freshly allocated slice by running fill over
// fixed-size chunks in parallel. fill receives the destination chunk
// and its starting offset in the full sequence.
func fillChunked(ctx context.Context, size int, fill func(dst []int64, offset int)) ([]int64, error) {
	data := make([]int64, size)
	if size == 0 {
		return data, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for offset := 0; offset < size; offset += generationChunkSize {
		end := offset + generationChunkSize
		if end > size {
			end = size
		}
		chunk := data[offset:end]
		chunkOffset := offset

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fill(chunk, chunkOffset)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.CodeDatasetError, "dataset generation cancelled", err)
	}
	return data, nil
}

// chunkSeed derives a per-chunk seed from the spec seed and the chunk's
// starting offset. The golden-ratio constant spreads consecutive chunk
// indices across the seed space.
func chunkSeed(seed int64, offset int) int64 {
	return seed + int64(offset/generationChunkSize)*-0x61c8864680b583eb
}
