package report

import (
	"path/filepath"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/writer"
)

// ChartFileName is the artifact name of the chart payload inside a
// run's output directory.
const ChartFileName = "chart.json.gz"

// Chart is the payload the web UI plots: one label per case, one
// series per strategy, mean wall time in milliseconds.
type Chart struct {
	Title  string        `json:"title"`
	Unit   string        `json:"unit"`
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// ChartSeries is one strategy's values, index-aligned with Labels.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// BuildChart turns a run result into a chart payload. Labels keep the
// order cases first appear in; a strategy that skipped a case plots
// zero there.
func BuildChart(res *model.RunResult) *Chart {
	if res == nil {
		return nil
	}

	chart := &Chart{
		Title: "Mean sort time per case",
		Unit:  "ms",
	}

	names := strategyNames(res)
	seen := make(map[string]int)
	for _, name := range names {
		for _, c := range res.Result[name].Cases {
			if _, ok := seen[c.Case]; !ok {
				seen[c.Case] = len(chart.Labels)
				chart.Labels = append(chart.Labels, c.Case)
			}
		}
	}

	for _, name := range names {
		series := ChartSeries{
			Name:   name,
			Values: make([]float64, len(chart.Labels)),
		}
		for _, c := range res.Result[name].Cases {
			series.Values[seen[c.Case]] = durationMs(c.Timing.Mean)
		}
		chart.Series = append(chart.Series, series)
	}
	return chart
}

// WriteChart writes the gzipped chart payload into dir and returns
// the file path with compression stats.
func WriteChart(res *model.RunResult, dir string) (string, *writer.WriteResult, error) {
	chart := BuildChart(res)
	if chart == nil {
		return "", nil, errors.New(errors.CodeReportError, "no result to chart")
	}

	path := filepath.Join(dir, ChartFileName)
	stats, err := writer.NewGzipWriter[Chart]().WriteToFileWithStats(*chart, path)
	if err != nil {
		return "", nil, errors.Wrap(errors.CodeReportError, "write chart", err)
	}
	return path, stats, nil
}
