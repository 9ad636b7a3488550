package report

import (
	"fmt"
	"io"
	"time"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/model"
)

// MarkdownFormatter renders results as a markdown document suitable
// for pasting into an issue or a wiki page.
type MarkdownFormatter struct{}

// Name returns the format name.
func (f *MarkdownFormatter) Name() string {
	return FormatMarkdown
}

// Extension returns the artifact extension.
func (f *MarkdownFormatter) Extension() string {
	return ".md"
}

// Write renders the result to w.
func (f *MarkdownFormatter) Write(w io.Writer, res *model.RunResult) error {
	if res == nil {
		return errors.New(errors.CodeReportError, "no result to format")
	}

	fmt.Fprintln(w, "# Benchmark Report")
	fmt.Fprintln(w)
	if res.RunUUID != "" {
		fmt.Fprintf(w, "- **Run**: `%s`\n", res.RunUUID)
	}
	if res.JobUUID != "" {
		fmt.Fprintf(w, "- **Job**: `%s`\n", res.JobUUID)
	}
	fmt.Fprintf(w, "- **Machine**: %s\n", machineLine(res.Machine))
	fmt.Fprintf(w, "- **Total trials**: %d\n", res.TotalTrials)
	if !res.CompletedAt.IsZero() {
		fmt.Fprintf(w, "- **Completed**: %s\n", res.CompletedAt.Format(time.RFC3339))
	}

	for _, name := range strategyNames(res) {
		sr := res.Result[name]

		fmt.Fprintf(w, "\n## Strategy: %s\n\n", name)
		fmt.Fprintln(w, "| Case | Size | Trials | Mean | Median | P95 | Speedup | Alloc | Peak G |")
		fmt.Fprintln(w, "|------|-----:|-------:|-----:|-------:|----:|--------:|------:|-------:|")

		for _, c := range sr.Cases {
			if filter.ShouldExcludeFromSummary(c.Case) {
				continue
			}
			fmt.Fprintf(w, "| %s | %d | %d | %s | %s | %s | %s | %s | %d |\n",
				c.Case,
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
			fmt.Fprintln(w, "\n### Findings")
			fmt.Fprintln(w)
			for _, finding := range sr.Findings {
				fmt.Fprintf(w, "- **%s** %s\n", finding.Severity, finding.Message)
			}
		}
	}
	return nil
}
