package benchmark

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/internal/stats"
	"github.com/sortbench/pkg/collections"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/profiling"
	"github.com/sortbench/pkg/utils"
)

// Config controls how the runner executes trials.
type Config struct {
	// Trials is the number of measured runs per case and strategy.
	Trials int

	// Warmup runs execute before measurement starts and are discarded.
	// They also absorb one-time costs like pool buffer growth.
	Warmup int

	// Parallelism is the hint passed to parallel strategies. Zero means
	// GOMAXPROCS.
	Parallelism int

	// DepthBudget, when positive, overrides the fork depth derived from
	// Parallelism.
	DepthBudget int

	// CollectAllocs reads allocation counters around every trial.
	CollectAllocs bool

	// VerifyOutputs checks every trial output for sortedness and
	// permutation of the input. A failed check aborts the run.
	VerifyOutputs bool

	// Timeout bounds each case; zero means no limit.
	Timeout time.Duration
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		Trials:        10,
		Warmup:        1,
		CollectAllocs: true,
		VerifyOutputs: true,
	}
}

// ConfigFromParams builds a runner config from job parameters.
func ConfigFromParams(p model.JobParams) Config {
	p.Normalize()
	return Config{
		Trials:        p.Trials,
		Warmup:        p.Warmup,
		Parallelism:   p.Parallelism,
		DepthBudget:   p.DepthBudget,
		CollectAllocs: true,
		VerifyOutputs: p.Verify,
	}
}

// Runner executes strategies over datasets and measures each trial.
type Runner struct {
	cfg      Config
	logger   utils.Logger
	clock    utils.Clock
	filter   *filter.CaseFilter
	verifier *Verifier
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger utils.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the clock trials are timed with.
func WithClock(clock utils.Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithFilter sets the case filter. Cases whose names the filter rejects
// are skipped entirely.
func WithFilter(f *filter.CaseFilter) RunnerOption {
	return func(r *Runner) {
		if f != nil {
			r.filter = f
		}
	}
}

// NewRunner creates a Runner. Zero-valued config fields fall back to
// defaults.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	if cfg.Trials <= 0 {
		cfg.Trials = DefaultConfig().Trials
	}
	if cfg.Warmup < 0 {
		cfg.Warmup = 0
	}

	r := &Runner{
		cfg:      cfg,
		logger:   utils.NewDefaultLogger(utils.LevelInfo, os.Stderr),
		clock:    utils.NewRealClock(),
		filter:   filter.DefaultFilter,
		verifier: NewVerifier(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Environment captures the machine shape a run executed on.
func Environment() model.MachineInfo {
	hostname, _ := os.Hostname()
	return model.MachineInfo{
		Hostname:   hostname,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
}

// RunSuite generates each dataset once and runs every strategy over it.
// It returns the aggregated result plus the individual trials for
// persistence. A run with zero matching cases is not an error; the
// caller decides how to report it.
func (r *Runner) RunSuite(ctx context.Context, specs []dataset.Spec, strategyNames []string) (*model.RunResult, []model.TrialResult, error) {
	if len(specs) == 0 {
		return nil, nil, errors.New(errors.CodeInvalidInput, "no dataset cases to run")
	}
	if len(strategyNames) == 0 {
		return nil, nil, errors.New(errors.CodeInvalidInput, "no strategies to run")
	}

	resolved := make([]Strategy, 0, len(strategyNames))
	for _, name := range strategyNames {
		s, ok := GetStrategy(name)
		if !ok {
			return nil, nil, errors.Newf(errors.CodeInvalidInput,
				"unknown strategy %q (registered: %v)", name, Strategies())
		}
		resolved = append(resolved, s)
	}

	timer := utils.NewTimer("benchmark", utils.WithLogger(r.logger))
	result := &model.RunResult{
		Machine: Environment(),
		Result:  make(map[string]model.StrategyResult, len(resolved)),
	}
	var allTrials []model.TrialResult

	for _, spec := range specs {
		caseName := spec.CaseName()
		if !r.filter.Match(caseName) {
			r.logger.Debug("case %s excluded by filter", caseName)
			continue
		}

		pt := timer.Start("generate " + caseName)
		input, err := dataset.Generate(ctx, spec)
		pt.Stop()
		if err != nil {
			return nil, nil, err
		}

		var checker *CaseChecker
		if r.cfg.VerifyOutputs {
			checker = r.verifier.NewCaseChecker(ctx, input, spec.Kind)
		}

		for _, strat := range resolved {
			pt := timer.Start("bench " + caseName + "/" + strat.Name())
			caseResult, trials, err := r.runCase(ctx, spec, input, strat, checker)
			pt.Stop()
			if err != nil {
				return nil, nil, err
			}

			sr := result.Result[strat.Name()]
			sr.Cases = append(sr.Cases, caseResult)
			sr.TotalTrials += int64(len(trials))
			result.Result[strat.Name()] = sr

			allTrials = append(allTrials, trials...)
			r.logger.Info("case %s strategy %s: mean %v over %d trials",
				caseName, strat.Name(), caseResult.Timing.Mean, caseResult.Trials)
		}
	}

	if len(allTrials) == 0 {
		r.logger.Warn("no cases matched the filter, run is empty")
	}

	result.TotalTrials = int64(len(allTrials))
	result.CompletedAt = r.clock.Now()
	timer.PrintSummary()
	return result, allTrials, nil
}

// RunCase runs one strategy over one already-generated input.
func (r *Runner) RunCase(ctx context.Context, spec dataset.Spec, input []int64, strategyName string) (model.CaseResult, []model.TrialResult, error) {
	strat, ok := GetStrategy(strategyName)
	if !ok {
		return model.CaseResult{}, nil, errors.Newf(errors.CodeInvalidInput,
			"unknown strategy %q (registered: %v)", strategyName, Strategies())
	}

	var checker *CaseChecker
	if r.cfg.VerifyOutputs {
		checker = r.verifier.NewCaseChecker(ctx, input, spec.Kind)
	}
	return r.runCase(ctx, spec, input, strat, checker)
}

func (r *Runner) runCase(ctx context.Context, spec dataset.Spec, input []int64, strat Strategy, checker *CaseChecker) (model.CaseResult, []model.TrialResult, error) {
	caseName := spec.CaseName()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	sortCfg := SortConfig{
		Parallelism: r.cfg.Parallelism,
		DepthBudget: r.cfg.DepthBudget,
	}

	trials := make([]model.TrialResult, 0, r.cfg.Trials)
	durations := make([]time.Duration, 0, r.cfg.Trials)
	var allocBytes, allocs int64
	peak := 0

	total := r.cfg.Warmup + r.cfg.Trials
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return model.CaseResult{}, nil, wrapInterrupted(caseName, strat.Name(), err)
		}

		trial, err := r.runTrial(ctx, input, strat, sortCfg, checker)
		if err != nil {
			return model.CaseResult{}, nil, errors.Wrap(errors.GetErrorCode(err),
				fmt.Sprintf("case %s strategy %s", caseName, strat.Name()), err)
		}
		if i < r.cfg.Warmup {
			continue
		}

		trial.Case = caseName
		trial.Strategy = strat.Name()
		trial.Trial = len(trials)
		trials = append(trials, trial)
		durations = append(durations, trial.WallTime)
		allocBytes += trial.AllocBytes
		allocs += trial.Allocs
		if trial.GoroutinePeak > peak {
			peak = trial.GoroutinePeak
		}
	}

	caseResult := model.CaseResult{
		Case:          caseName,
		Strategy:      strat.Name(),
		Kind:          spec.Kind,
		Size:          spec.Size,
		Trials:        len(trials),
		Timing:        stats.Summarize(durations),
		AllocBytes:    allocBytes / int64(len(trials)),
		Allocs:        allocs / int64(len(trials)),
		GoroutinePeak: peak,
		Verified:      r.cfg.VerifyOutputs,
	}
	return caseResult, trials, nil
}

// runTrial copies the input into a pooled buffer, sorts it, and records
// wall time, allocation deltas, and the goroutine peak. The sampler
// starts before the allocation counters are read so its own setup never
// shows up in the delta.
func (r *Runner) runTrial(ctx context.Context, input []int64, strat Strategy, sortCfg SortConfig, checker *CaseChecker) (model.TrialResult, error) {
	buf := collections.GetInt64Slice()
	defer collections.PutInt64Slice(buf)
	*buf = append(*buf, input...)

	sampler := profiling.NewSampler(0)
	sampler.Start()

	var before, after runtime.MemStats
	if r.cfg.CollectAllocs {
		runtime.ReadMemStats(&before)
	}

	start := r.clock.Now()
	sorted, err := strat.Sort(*buf, sortCfg)
	wall := r.clock.Since(start)

	if r.cfg.CollectAllocs {
		runtime.ReadMemStats(&after)
	}
	sample := sampler.Stop()

	if err != nil {
		return model.TrialResult{}, errors.Wrap(errors.CodeRunError, "strategy failed", err)
	}

	trial := model.TrialResult{
		WallTime:      wall,
		GoroutinePeak: sample.Goroutines,
	}
	if r.cfg.CollectAllocs {
		trial.Allocs = int64(after.Mallocs - before.Mallocs)
		trial.AllocBytes = int64(after.TotalAlloc - before.TotalAlloc)
	}

	if checker != nil {
		if err := checker.Check(ctx, sorted); err != nil {
			return model.TrialResult{}, err
		}
		trial.Verified = true
	}
	return trial, nil
}

func wrapInterrupted(caseName, strategy string, err error) error {
	msg := fmt.Sprintf("case %s strategy %s interrupted", caseName, strategy)
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.CodeTimeout, msg, err)
	}
	return errors.Wrap(errors.CodeRunError, msg, err)
}
