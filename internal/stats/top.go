package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/sortbench/pkg/model"
)

// TopEntry is one case in a slowest-cases ranking.
type TopEntry struct {
	Case     string        `json:"case"`
	Strategy string        `json:"strategy"`
	Mean     time.Duration `json:"mean"`
	Share    float64       `json:"share"`
}

// TopResult holds a slowest-cases ranking. Share is each entry's
// portion of the summed mean across every case and strategy, so the
// ranking shows where run time actually went.
type TopResult struct {
	Entries   []TopEntry    `json:"entries"`
	TotalMean time.Duration `json:"total_mean"`
}

// Names returns the entries as "case/strategy" labels, ranked slowest
// first.
func (r *TopResult) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, fmt.Sprintf("%s/%s", e.Case, e.Strategy))
	}
	return names
}

// TopSlowest ranks the topN slowest cases across all strategies by mean
// wall time.
func (a *Aggregator) TopSlowest(res *model.RunResult) *TopResult {
	result := &TopResult{Entries: make([]TopEntry, 0)}
	if res == nil {
		return result
	}

	for _, sr := range res.Result {
		for _, c := range sr.Cases {
			result.TotalMean += c.Timing.Mean
			result.Entries = append(result.Entries, TopEntry{
				Case:     c.Case,
				Strategy: c.Strategy,
				Mean:     c.Timing.Mean,
			})
		}
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		if result.Entries[i].Mean != result.Entries[j].Mean {
			return result.Entries[i].Mean > result.Entries[j].Mean
		}
		if result.Entries[i].Case != result.Entries[j].Case {
			return result.Entries[i].Case < result.Entries[j].Case
		}
		return result.Entries[i].Strategy < result.Entries[j].Strategy
	})

	if len(result.Entries) > a.topN {
		result.Entries = result.Entries[:a.topN]
	}

	if result.TotalMean > 0 {
		for i := range result.Entries {
			result.Entries[i].Share = round2(float64(result.Entries[i].Mean) / float64(result.TotalMean) * 100)
		}
	}

	return result
}
