// Package report renders benchmark results for humans and machines.
// Each output format is a ReportFormatter registered by name; artifacts
// land in the run's output directory.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/utils"
)

// Format names.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// ReportFormatter renders a run result in one output format.
type ReportFormatter interface {
	// Name returns the registered format name.
	Name() string

	// Extension returns the artifact file extension, dot included.
	Extension() string

	// Write renders the result to w.
	Write(w io.Writer, res *model.RunResult) error
}

// Registry manages formatter instances.
type Registry struct {
	formatters map[string]ReportFormatter
	fallback   ReportFormatter
}

// NewRegistry creates a registry with the default formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]ReportFormatter),
		fallback:   &TextFormatter{},
	}

	r.Register(&TextFormatter{})
	r.Register(&JSONFormatter{})
	r.Register(&MarkdownFormatter{})
	r.Register(&CSVFormatter{})

	return r
}

// Register registers a formatter under its name.
func (r *Registry) Register(f ReportFormatter) {
	r.formatters[f.Name()] = f
}

// Get returns the formatter for a format, falling back to text.
func (r *Registry) Get(format string) ReportFormatter {
	if f, ok := r.formatters[format]; ok {
		return f
	}
	return r.fallback
}

// Lookup returns the formatter for a format without a fallback.
func (r *Registry) Lookup(format string) (ReportFormatter, bool) {
	f, ok := r.formatters[format]
	return f, ok
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write renders the result in the named format.
func (r *Registry) Write(format string, w io.Writer, res *model.RunResult) error {
	if res == nil {
		return errors.New(errors.CodeReportError, "no result to format")
	}
	return r.Get(format).Write(w, res)
}

// WriteFile renders the result into dir as "report<ext>" and returns
// the file path.
func (r *Registry) WriteFile(format string, dir string, res *model.RunResult) (string, error) {
	f := r.Get(format)
	path := filepath.Join(dir, "report"+f.Extension())

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(errors.CodeReportError, "create report directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.CodeReportError, "create report file", err)
	}
	defer file.Close()

	if err := r.Write(format, file, res); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes the text report through the logger, one line at a time.
func Print(res *model.RunResult, log utils.Logger) {
	if res == nil || log == nil {
		return
	}
	var buf bytes.Buffer
	if err := (&TextFormatter{}).Write(&buf, res); err != nil {
		log.Error("format result: %v", err)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		log.Info("%s", line)
	}
}

// Summary flattens a run result into a serializable map. The web UI's
// summary endpoint serves this shape.
func Summary(res *model.RunResult) map[string]interface{} {
	if res == nil {
		return nil
	}

	findingsCount := 0
	strategies := make(map[string]interface{}, len(res.Result))
	for name, sr := range res.Result {
		cases := make([]map[string]interface{}, 0, len(sr.Cases))
		for _, c := range sr.Cases {
			cases = append(cases, map[string]interface{}{
				"case":           c.Case,
				"kind":           c.Kind,
				"size":           c.Size,
				"trials":         c.Trials,
				"mean_ms":        durationMs(c.Timing.Mean),
				"median_ms":      durationMs(c.Timing.Median),
				"p95_ms":         durationMs(c.Timing.P95),
				"stddev_ms":      durationMs(c.Timing.StdDev),
				"speedup":        c.Speedup,
				"alloc_bytes":    c.AllocBytes,
				"allocs":         c.Allocs,
				"goroutine_peak": c.GoroutinePeak,
				"verified":       c.Verified,
			})
		}
		findingsCount += len(sr.Findings)
		strategies[name] = map[string]interface{}{
			"cases":        cases,
			"total_trials": sr.TotalTrials,
			"findings":     sr.Findings,
			"chart_file":   sr.ChartFile,
			"report_file":  sr.ReportFile,
		}
	}

	return map[string]interface{}{
		"rid":            res.RunUUID,
		"jid":            res.JobUUID,
		"machine":        res.Machine,
		"version":        res.Version,
		"total_trials":   res.TotalTrials,
		"completed_at":   res.CompletedAt,
		"strategies":     strategies,
		"findings_count": findingsCount,
	}
}

// strategyNames returns the result's strategy names, sorted so output
// is stable across runs.
func strategyNames(res *model.RunResult) []string {
	names := make([]string, 0, len(res.Result))
	for name := range res.Result {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// formatDuration renders a duration at table-friendly precision.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// formatSpeedup renders a speedup column value; cases without a
// baseline show a dash.
func formatSpeedup(s float64) string {
	if s <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", s)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
