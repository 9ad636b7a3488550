package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sortbench/pkg/model"
)

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, model.TimingSummary{}, Summarize(nil))
}

func TestSummarizeSingleTrial(t *testing.T) {
	s := Summarize([]time.Duration{42 * time.Millisecond})

	assert.Equal(t, 42*time.Millisecond, s.Min)
	assert.Equal(t, 42*time.Millisecond, s.Max)
	assert.Equal(t, 42*time.Millisecond, s.Mean)
	assert.Equal(t, 42*time.Millisecond, s.Median)
	assert.Equal(t, 42*time.Millisecond, s.P95)
	assert.Equal(t, time.Duration(0), s.StdDev)
}

func TestSummarize(t *testing.T) {
	durations := []time.Duration{
		50 * time.Millisecond,
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}

	s := Summarize(durations)

	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 50*time.Millisecond, s.Max)
	assert.Equal(t, 30*time.Millisecond, s.Mean)
	assert.Equal(t, 30*time.Millisecond, s.Median)
	assert.Equal(t, 50*time.Millisecond, s.P95)
	// Population stddev of 10..50ms step 10 is sqrt(200)ms.
	assert.InDelta(t, 14.14, float64(s.StdDev)/float64(time.Millisecond), 0.01)
}

func TestSummarizeIdenticalTrials(t *testing.T) {
	s := Summarize([]time.Duration{time.Second, time.Second, time.Second})

	assert.Equal(t, time.Second, s.Mean)
	assert.Equal(t, time.Duration(0), s.StdDev)
}

func TestSummarizeCustomPercentile(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[i] = time.Duration(i+1) * time.Millisecond
	}

	a := NewAggregator(WithPercentile(50))
	s := a.Summarize(durations)

	assert.Equal(t, 50*time.Millisecond, s.P95)
}

func TestAggregatorOptions(t *testing.T) {
	a := NewAggregator()
	assert.Equal(t, DefaultBaseline, a.Baseline())

	a = NewAggregator(WithBaseline("stdlib"), WithPercentile(99), WithTopN(3))
	assert.Equal(t, "stdlib", a.Baseline())
	assert.Equal(t, 99.0, a.percentile)
	assert.Equal(t, 3, a.topN)

	// Out-of-range values keep the defaults.
	a = NewAggregator(WithBaseline(""), WithPercentile(0), WithTopN(-1))
	assert.Equal(t, DefaultBaseline, a.baseline)
	assert.Equal(t, DefaultPercentile, a.percentile)
	assert.Equal(t, DefaultTopN, a.topN)
}

func makeResult(cases map[string]map[string]time.Duration) *model.RunResult {
	res := &model.RunResult{Result: make(map[string]model.StrategyResult)}
	for strategy, byCase := range cases {
		sr := model.StrategyResult{}
		for name, mean := range byCase {
			sr.Cases = append(sr.Cases, model.CaseResult{
				Case:     name,
				Strategy: strategy,
				Timing:   model.TimingSummary{Mean: mean},
			})
		}
		res.Result[strategy] = sr
	}
	return res
}

func TestApplySpeedups(t *testing.T) {
	res := makeResult(map[string]map[string]time.Duration{
		"sequential": {
			"random-1m": 400 * time.Millisecond,
			"sorted-1m": 300 * time.Millisecond,
		},
		"parallel": {
			"random-1m": 100 * time.Millisecond,
			"sorted-1m": 150 * time.Millisecond,
		},
	})

	NewAggregator().ApplySpeedups(res)

	byCase := func(strategy, name string) model.CaseResult {
		for _, c := range res.Result[strategy].Cases {
			if c.Case == name {
				return c
			}
		}
		t.Fatalf("case %s not found for %s", name, strategy)
		return model.CaseResult{}
	}

	assert.Equal(t, 4.0, byCase("parallel", "random-1m").Speedup)
	assert.Equal(t, 2.0, byCase("parallel", "sorted-1m").Speedup)
	assert.Equal(t, 1.0, byCase("sequential", "random-1m").Speedup)
}

func TestApplySpeedupsMissingBaseline(t *testing.T) {
	res := makeResult(map[string]map[string]time.Duration{
		"parallel": {"random-1m": 100 * time.Millisecond},
	})

	NewAggregator().ApplySpeedups(res)

	assert.Equal(t, 0.0, res.Result["parallel"].Cases[0].Speedup)
}

func TestApplySpeedupsNilResult(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAggregator().ApplySpeedups(nil)
	})
}
