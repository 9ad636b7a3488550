package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
)

// csvHeader is the column layout of the CSV format; one row per case,
// timings in nanoseconds so spreadsheets need no unit parsing.
var csvHeader = []string{
	"case", "strategy", "kind", "size", "trials",
	"min_ns", "max_ns", "mean_ns", "median_ns", "p95_ns", "stddev_ns",
	"alloc_bytes", "allocs", "goroutine_peak", "speedup", "verified",
}

// CSVFormatter renders every case as one CSV row. Nothing is filtered.
type CSVFormatter struct{}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return FormatCSV
}

// Extension returns the artifact extension.
func (f *CSVFormatter) Extension() string {
	return ".csv"
}

// Write renders the result to w.
func (f *CSVFormatter) Write(w io.Writer, res *model.RunResult) error {
	if res == nil {
		return errors.New(errors.CodeReportError, "no result to format")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(errors.CodeReportError, "write csv header", err)
	}

	for _, name := range strategyNames(res) {
		for _, c := range res.Result[name].Cases {
			row := []string{
				c.Case,
				c.Strategy,
				c.Kind,
				strconv.Itoa(c.Size),
				strconv.Itoa(c.Trials),
				strconv.FormatInt(c.Timing.Min.Nanoseconds(), 10),
				strconv.FormatInt(c.Timing.Max.Nanoseconds(), 10),
				strconv.FormatInt(c.Timing.Mean.Nanoseconds(), 10),
				strconv.FormatInt(c.Timing.Median.Nanoseconds(), 10),
				strconv.FormatInt(c.Timing.P95.Nanoseconds(), 10),
				strconv.FormatInt(c.Timing.StdDev.Nanoseconds(), 10),
				strconv.FormatInt(c.AllocBytes, 10),
				strconv.FormatInt(c.Allocs, 10),
				strconv.Itoa(c.GoroutinePeak),
				strconv.FormatFloat(c.Speedup, 'f', 2, 64),
				strconv.FormatBool(c.Verified),
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrap(errors.CodeReportError, "write csv row", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.CodeReportError, "flush csv", err)
	}
	return nil
}
