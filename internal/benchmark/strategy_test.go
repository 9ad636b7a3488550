package benchmark

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinStrategiesRegistered(t *testing.T) {
	for _, name := range []string{StrategyParallel, StrategySequential, StrategyStdlib, StrategyStable} {
		assert.True(t, IsRegistered(name), "strategy %s not registered", name)
	}
	assert.Contains(t, Strategies(), StrategyParallel)
}

func TestGetStrategyUnknown(t *testing.T) {
	_, ok := GetStrategy("quicksort")
	assert.False(t, ok)
}

func TestStrategiesSortCorrectly(t *testing.T) {
	input := []int64{5, -3, 12, 0, -3, 99, 7, 1, 1, -40}

	want := make([]int64, len(input))
	copy(want, input)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	for _, name := range []string{StrategyParallel, StrategySequential, StrategyStdlib, StrategyStable} {
		t.Run(name, func(t *testing.T) {
			strat, ok := GetStrategy(name)
			require.True(t, ok)

			data := make([]int64, len(input))
			copy(data, input)

			got, err := strat.Sort(data, SortConfig{})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParallelStrategyHonorsConfig(t *testing.T) {
	strat, ok := GetStrategy(StrategyParallel)
	require.True(t, ok)

	data := []int64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	got, err := strat.Sort(data, SortConfig{Parallelism: 4, DepthBudget: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestParallelStrategyRejectsBadParallelism(t *testing.T) {
	strat, ok := GetStrategy(StrategyParallel)
	require.True(t, ok)

	_, err := strat.Sort([]int64{2, 1}, SortConfig{Parallelism: -1})
	assert.Error(t, err)
}

func TestStrategiesSortInPlace(t *testing.T) {
	for _, name := range []string{StrategyParallel, StrategySequential, StrategyStdlib, StrategyStable} {
		t.Run(name, func(t *testing.T) {
			strat, _ := GetStrategy(name)
			data := []int64{3, 1, 2}
			got, err := strat.Sort(data, SortConfig{})
			require.NoError(t, err)
			// The returned slice is the caller's buffer, not a copy.
			assert.Equal(t, &data[0], &got[0])
		})
	}
}
