// Package benchmark executes sorting strategies over generated datasets
// and measures wall time, allocations, and goroutine peaks per trial.
package benchmark

import (
	"sort"
	"sync"

	"github.com/sortbench/pkg/mergesort"
)

// Strategy names registered by this package.
const (
	StrategyParallel   = "parallel"
	StrategySequential = "sequential"
	StrategyStdlib     = "stdlib"
	StrategyStable     = "stable"
)

// SortConfig carries the tunables a strategy may honor. Strategies that
// have nothing to tune ignore it.
type SortConfig struct {
	// Parallelism is the hint the depth budget derives from. Zero or
	// less means GOMAXPROCS.
	Parallelism int

	// DepthBudget, when positive, overrides the derived fork depth.
	DepthBudget int
}

// Strategy sorts a sequence in place and returns it. Implementations
// must be safe for concurrent use; the runner may time trials of
// different cases back to back.
type Strategy interface {
	// Name returns the registered strategy name.
	Name() string

	// Sort sorts data ascending and returns it.
	Sort(data []int64, cfg SortConfig) ([]int64, error)
}

var (
	strategies   = make(map[string]Strategy)
	strategiesMu sync.RWMutex
)

// Register registers a strategy under its name. Built-in strategies
// call this from init().
func Register(s Strategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[s.Name()] = s
}

// GetStrategy returns the strategy registered under name.
func GetStrategy(name string) (Strategy, bool) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	s, ok := strategies[name]
	return s, ok
}

// IsRegistered checks whether a strategy name is registered.
func IsRegistered(name string) bool {
	_, ok := GetStrategy(name)
	return ok
}

// Strategies returns all registered strategy names, sorted.
func Strategies() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(parallelStrategy{})
	Register(sequentialStrategy{})
	Register(stdlibStrategy{})
	Register(stableStrategy{})
}

// parallelStrategy is the depth-limited parallel merge sort, the
// subject under measurement.
type parallelStrategy struct{}

func (parallelStrategy) Name() string { return StrategyParallel }

func (parallelStrategy) Sort(data []int64, cfg SortConfig) ([]int64, error) {
	opts := make([]mergesort.Option, 0, 2)
	if cfg.Parallelism > 0 {
		opts = append(opts, mergesort.WithParallelism(cfg.Parallelism))
	}
	if cfg.DepthBudget > 0 {
		opts = append(opts, mergesort.WithDepthBudget(cfg.DepthBudget))
	}
	return mergesort.Sort(data, opts...)
}

// sequentialStrategy runs the same merge sort with a zero depth budget.
// Comparing it against parallelStrategy isolates the cost and gain of
// forking.
type sequentialStrategy struct{}

func (sequentialStrategy) Name() string { return StrategySequential }

func (sequentialStrategy) Sort(data []int64, _ SortConfig) ([]int64, error) {
	return mergesort.Sort(data, mergesort.WithDepthBudget(0))
}

// stdlibStrategy is the standard library baseline.
type stdlibStrategy struct{}

func (stdlibStrategy) Name() string { return StrategyStdlib }

func (stdlibStrategy) Sort(data []int64, _ SortConfig) ([]int64, error) {
	sort.Slice(data, func(i, j int) bool { return data[i] < data[j] })
	return data, nil
}

// stableStrategy is the standard library stable baseline.
type stableStrategy struct{}

func (stableStrategy) Name() string { return StrategyStable }

func (stableStrategy) Sort(data []int64, _ SortConfig) ([]int64, error) {
	sort.SliceStable(data, func(i, j int) bool { return data[i] < data[j] })
	return data, nil
}
