// Package stats turns raw trial measurements into the summaries reports
// and findings are built from: per-case timing statistics, speedups
// against a baseline strategy, and slowest-case rankings.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/sortbench/pkg/model"
)

// Defaults used when options are not given.
const (
	DefaultBaseline   = "sequential"
	DefaultPercentile = 95.0
	DefaultTopN       = 5
)

// Aggregator computes summary statistics over benchmark results.
type Aggregator struct {
	baseline   string
	percentile float64
	topN       int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithBaseline sets the strategy speedups are computed against.
func WithBaseline(name string) Option {
	return func(a *Aggregator) {
		if name != "" {
			a.baseline = name
		}
	}
}

// WithPercentile sets the upper percentile reported in timing
// summaries. Values outside (0, 100] fall back to the default.
func WithPercentile(p float64) Option {
	return func(a *Aggregator) {
		if p > 0 && p <= 100 {
			a.percentile = p
		}
	}
}

// WithTopN sets how many cases slowest-case rankings return.
func WithTopN(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}

// NewAggregator creates an Aggregator with the given options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		baseline:   DefaultBaseline,
		percentile: DefaultPercentile,
		topN:       DefaultTopN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Baseline returns the configured baseline strategy name.
func (a *Aggregator) Baseline() string {
	return a.baseline
}

// Summarize computes min/max/mean/median/percentile/stddev over trial
// durations. An empty input yields a zero summary.
func (a *Aggregator) Summarize(durations []time.Duration) model.TimingSummary {
	if len(durations) == 0 {
		return model.TimingSummary{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, d := range sorted {
		sum += float64(d)
	}
	mean := sum / float64(len(sorted))

	var varSum float64
	for _, d := range sorted {
		diff := float64(d) - mean
		varSum += diff * diff
	}

	return model.TimingSummary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   time.Duration(mean),
		Median: percentileOf(sorted, 50),
		P95:    percentileOf(sorted, a.percentile),
		StdDev: time.Duration(math.Sqrt(varSum / float64(len(sorted)))),
	}
}

// ApplySpeedups fills the Speedup field of every case in the result,
// relative to the baseline strategy's mean for the same case name.
// Cases without a baseline counterpart keep a zero speedup; the
// baseline strategy itself reports 1.0.
func (a *Aggregator) ApplySpeedups(res *model.RunResult) {
	if res == nil {
		return
	}
	base, ok := res.Result[a.baseline]
	if !ok {
		return
	}

	baseMeans := make(map[string]time.Duration, len(base.Cases))
	for _, c := range base.Cases {
		if c.Timing.Mean > 0 {
			baseMeans[c.Case] = c.Timing.Mean
		}
	}

	for _, sr := range res.Result {
		for i := range sr.Cases {
			baseMean, ok := baseMeans[sr.Cases[i].Case]
			if !ok || sr.Cases[i].Timing.Mean <= 0 {
				continue
			}
			sr.Cases[i].Speedup = round2(float64(baseMean) / float64(sr.Cases[i].Timing.Mean))
		}
	}
}

// percentileOf returns the nearest-rank percentile of sorted durations.
func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

var defaultAggregator = NewAggregator()

// Summarize computes a timing summary with default options.
func Summarize(durations []time.Duration) model.TimingSummary {
	return defaultAggregator.Summarize(durations)
}
