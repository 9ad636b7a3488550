package report

import (
	"fmt"
	"io"
	"time"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/model"
)

// TextFormatter renders results as aligned plain-text tables. Smoke
// cases are hidden from the tables; the JSON and CSV formats keep them.
type TextFormatter struct{}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return FormatText
}

// Extension returns the artifact extension.
func (f *TextFormatter) Extension() string {
	return ".txt"
}

// Write renders the result to w.
func (f *TextFormatter) Write(w io.Writer, res *model.RunResult) error {
	if res == nil {
		return errors.New(errors.CodeReportError, "no result to format")
	}

	fmt.Fprintln(w, "=== Benchmark Results ===")
	if res.RunUUID != "" {
		fmt.Fprintf(w, "Run:          %s\n", res.RunUUID)
	}
	if res.JobUUID != "" {
		fmt.Fprintf(w, "Job:          %s\n", res.JobUUID)
	}
	fmt.Fprintf(w, "Machine:      %s\n", machineLine(res.Machine))
	fmt.Fprintf(w, "Total Trials: %d\n", res.TotalTrials)
	if !res.CompletedAt.IsZero() {
		fmt.Fprintf(w, "Completed:    %s\n", res.CompletedAt.Format(time.RFC3339))
	}

	hidden := 0
	for _, name := range strategyNames(res) {
		sr := res.Result[name]

		fmt.Fprintf(w, "\n=== Strategy: %s (%d trials) ===\n", name, sr.TotalTrials)
		fmt.Fprintf(w, "%-20s %10s %7s %10s %10s %10s %8s %10s %7s\n",
			"CASE", "SIZE", "TRIALS", "MEAN", "MEDIAN", "P95", "SPEEDUP", "ALLOC", "PEAK G")

		for _, c := range sr.Cases {
			if filter.ShouldExcludeFromSummary(c.Case) {
				hidden++
				continue
			}
			fmt.Fprintf(w, "%-20s %10d %7d %10s %10s %10s %8s %10s %7d\n",
				truncateString(c.Case, 20),
				c.Size,
				c.Trials,
				formatDuration(c.Timing.Mean),
				formatDuration(c.Timing.Median),
				formatDuration(c.Timing.P95),
				formatSpeedup(c.Speedup),
				formatBytes(c.AllocBytes),
				c.GoroutinePeak)
		}

		if len(sr.Findings) > 0 {
			fmt.Fprintln(w, "\nFindings:")
			for _, finding := range sr.Findings {
				fmt.Fprintf(w, "  [%s] %s\n", finding.Severity, truncateString(finding.Message, 120))
			}
		}
	}

	if hidden > 0 {
		fmt.Fprintf(w, "\n(%d smoke cases hidden, use the json or csv format for the full set)\n", hidden)
	}
	return nil
}

func machineLine(m model.MachineInfo) string {
	return fmt.Sprintf("%s/%s, %d CPUs, GOMAXPROCS %d, %s",
		m.GOOS, m.GOARCH, m.NumCPU, m.GOMAXPROCS, m.GoVersion)
}
