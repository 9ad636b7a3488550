package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/model"
)

func testSpecs() []dataset.Spec {
	return []dataset.Spec{
		{Kind: dataset.KindRandom, Size: 2048, Seed: 7},
	}
}

func TestRunSuite(t *testing.T) {
	cfg := Config{Trials: 3, Warmup: 1, CollectAllocs: true, VerifyOutputs: true}
	runner := NewRunner(cfg)

	result, trials, err := runner.RunSuite(context.Background(), testSpecs(),
		[]string{StrategySequential, StrategyParallel, StrategyStdlib})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Len(t, result.Result, 3)
	assert.Equal(t, int64(9), result.TotalTrials)
	assert.Len(t, trials, 9)
	assert.False(t, result.CompletedAt.IsZero())

	assert.Greater(t, result.Machine.NumCPU, 0)
	assert.NotEmpty(t, result.Machine.GoVersion)

	for name, sr := range result.Result {
		require.Len(t, sr.Cases, 1, "strategy %s", name)
		c := sr.Cases[0]
		assert.Equal(t, "random-2k", c.Case)
		assert.Equal(t, name, c.Strategy)
		assert.Equal(t, dataset.KindRandom, c.Kind)
		assert.Equal(t, 2048, c.Size)
		assert.Equal(t, 3, c.Trials)
		assert.True(t, c.Verified)
		assert.Greater(t, c.Timing.Mean, time.Duration(0))
		assert.LessOrEqual(t, c.Timing.Min, c.Timing.Max)
	}
}

func TestRunSuiteTrialMeasurements(t *testing.T) {
	cfg := Config{Trials: 2, Warmup: 1, CollectAllocs: true, VerifyOutputs: true}
	runner := NewRunner(cfg)

	_, trials, err := runner.RunSuite(context.Background(), testSpecs(), []string{StrategySequential})
	require.NoError(t, err)
	require.Len(t, trials, 2)

	for i, trial := range trials {
		assert.Equal(t, i, trial.Trial)
		assert.Equal(t, "random-2k", trial.Case)
		assert.Equal(t, StrategySequential, trial.Strategy)
		assert.Greater(t, trial.WallTime, time.Duration(0))
		assert.True(t, trial.Verified)
		assert.Greater(t, trial.GoroutinePeak, 0)
		// Warmup absorbs buffer growth, so the remaining allocations are
		// dominated by the sort's scratch buffer.
		assert.GreaterOrEqual(t, trial.AllocBytes, int64(2048*8))
	}
}

func TestRunSuiteUnknownStrategy(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	_, _, err := runner.RunSuite(context.Background(), testSpecs(), []string{"bogosort"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRunSuiteNoSpecs(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	_, _, err := runner.RunSuite(context.Background(), nil, []string{StrategySequential})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRunSuiteFilterSkipsCases(t *testing.T) {
	f := filter.NewCaseFilter()
	f.AddExcludePrefix("random")

	cfg := Config{Trials: 2, Warmup: 0, VerifyOutputs: true}
	runner := NewRunner(cfg, WithFilter(f))

	result, trials, err := runner.RunSuite(context.Background(), testSpecs(), []string{StrategySequential})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalTrials)
	assert.Empty(t, trials)
}

func TestRunSuiteVerifyFailureAborts(t *testing.T) {
	Register(identityStrategy{})

	cfg := Config{Trials: 2, Warmup: 0, VerifyOutputs: true}
	runner := NewRunner(cfg)

	_, _, err := runner.RunSuite(context.Background(), testSpecs(), []string{"identity"})
	require.Error(t, err)
	assert.True(t, errors.IsVerifyError(err))
}

func TestRunCaseTimeout(t *testing.T) {
	cfg := Config{Trials: 2, Warmup: 0, Timeout: time.Nanosecond, VerifyOutputs: false}
	runner := NewRunner(cfg)

	spec := dataset.Spec{Kind: dataset.KindRandom, Size: 1 << 16, Seed: 3}
	input, err := dataset.Generate(context.Background(), spec)
	require.NoError(t, err)

	_, _, err = runner.RunCase(context.Background(), spec, input, StrategySequential)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestRunCaseCancelled(t *testing.T) {
	runner := NewRunner(Config{Trials: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := testSpecs()[0]
	input, err := dataset.Generate(context.Background(), spec)
	require.NoError(t, err)

	_, _, err = runner.RunCase(ctx, spec, input, StrategySequential)
	require.Error(t, err)
	assert.Equal(t, errors.CodeRunError, errors.GetErrorCode(err))
}

func TestConfigFromParams(t *testing.T) {
	cfg := ConfigFromParams(model.JobParams{})

	assert.Equal(t, 10, cfg.Trials)
	assert.True(t, cfg.CollectAllocs)
	assert.False(t, cfg.VerifyOutputs)

	cfg = ConfigFromParams(model.JobParams{Trials: 5, Parallelism: 8, DepthBudget: 3, Verify: true})
	assert.Equal(t, 5, cfg.Trials)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 3, cfg.DepthBudget)
	assert.True(t, cfg.VerifyOutputs)
}

func TestEnvironment(t *testing.T) {
	env := Environment()
	assert.Greater(t, env.NumCPU, 0)
	assert.Greater(t, env.GOMAXPROCS, 0)
	assert.NotEmpty(t, env.GOOS)
	assert.NotEmpty(t, env.GoVersion)
}

// identityStrategy returns its input untouched; random inputs then fail
// verification.
type identityStrategy struct{}

func (identityStrategy) Name() string { return "identity" }

func (identityStrategy) Sort(data []int64, _ SortConfig) ([]int64, error) {
	return data, nil
}
