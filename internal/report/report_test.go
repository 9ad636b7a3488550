package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/utils"
)

func fixtureResult() *model.RunResult {
	mk := func(strategy, caseName, kind string, size int, mean time.Duration, speedup float64) model.CaseResult {
		return model.CaseResult{
			Case:     caseName,
			Strategy: strategy,
			Kind:     kind,
			Size:     size,
			Trials:   5,
			Timing: model.TimingSummary{
				Min:    mean - mean/10,
				Max:    mean + mean/10,
				Mean:   mean,
				Median: mean,
				P95:    mean + mean/20,
				StdDev: mean / 20,
			},
			AllocBytes:    8 << 20,
			Allocs:        12,
			GoroutinePeak: 9,
			Speedup:       speedup,
			Verified:      true,
		}
	}

	return &model.RunResult{
		RunUUID: "run-xyz",
		JobUUID: "job-abc",
		Machine: model.MachineInfo{
			Hostname:   "bench-01",
			GoVersion:  "go1.24.0",
			GOOS:       "linux",
			GOARCH:     "amd64",
			NumCPU:     16,
			GOMAXPROCS: 16,
		},
		Result: map[string]model.StrategyResult{
			"parallel": {
				Cases: []model.CaseResult{
					mk("parallel", "random-1m", "random", 1 << 20, 12*time.Millisecond, 4.5),
					mk("parallel", "random-1k", "random", 1 << 10, 30*time.Microsecond, 1.1),
				},
				TotalTrials: 10,
				Findings: []model.Finding{
					{
						RunUUID:  "run-xyz",
						Strategy: "parallel",
						Type:     "speedup_saturation",
						Severity: model.SeverityWarn,
						Message:  "case random-1m: speedup 4.50x is under the parallel bound",
						CaseName: "random-1m",
					},
				},
			},
			"sequential": {
				Cases: []model.CaseResult{
					mk("sequential", "random-1m", "random", 1 << 20, 54*time.Millisecond, 1.0),
				},
				TotalTrials: 5,
			},
		},
		Version:     "1.2.0",
		TotalTrials: 15,
		CompletedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestRegistryFormats(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"csv", "json", "markdown", "text"}, r.Formats())
}

func TestRegistryGetFallsBackToText(t *testing.T) {
	r := NewRegistry()

	f := r.Get("yaml")
	assert.Equal(t, FormatText, f.Name())

	_, ok := r.Lookup("yaml")
	assert.False(t, ok)

	f, ok = r.Lookup(FormatCSV)
	require.True(t, ok)
	assert.Equal(t, FormatCSV, f.Name())
}

func TestRegistryWriteNilResult(t *testing.T) {
	r := NewRegistry()
	var buf bytes.Buffer
	err := r.Write(FormatText, &buf, nil)
	assert.Error(t, err)
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Write(&buf, fixtureResult()))
	out := buf.String()

	assert.Contains(t, out, "=== Benchmark Results ===")
	assert.Contains(t, out, "Run:          run-xyz")
	assert.Contains(t, out, "linux/amd64, 16 CPUs, GOMAXPROCS 16, go1.24.0")
	assert.Contains(t, out, "Total Trials: 15")
	assert.Contains(t, out, "=== Strategy: parallel (10 trials) ===")
	assert.Contains(t, out, "=== Strategy: sequential (5 trials) ===")
	assert.Contains(t, out, "random-1m")
	assert.Contains(t, out, "12.00ms")
	assert.Contains(t, out, "4.50x")
	assert.Contains(t, out, "[warn] case random-1m")

	// Smoke cases stay out of the tables but are counted.
	assert.NotContains(t, out, "random-1k ")
	assert.Contains(t, out, "(1 smoke cases hidden")

	// Strategies render in sorted order.
	assert.Less(t, strings.Index(out, "Strategy: parallel"), strings.Index(out, "Strategy: sequential"))
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Write(&buf, fixtureResult()))
	out := buf.String()

	assert.Contains(t, out, "# Benchmark Report")
	assert.Contains(t, out, "- **Run**: `run-xyz`")
	assert.Contains(t, out, "## Strategy: parallel")
	assert.Contains(t, out, "| random-1m | 1048576 | 5 |")
	assert.Contains(t, out, "### Findings")
	assert.Contains(t, out, "- **warn** case random-1m")
	assert.NotContains(t, out, "| random-1k |")
}

func TestJSONFormatterRoundtrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, fixtureResult()))

	var decoded model.RunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-xyz", decoded.RunUUID)
	assert.Len(t, decoded.Result["parallel"].Cases, 2)
	assert.Equal(t, 4.5, decoded.Result["parallel"].Cases[0].Speedup)
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Write(&buf, fixtureResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4) // header + 3 cases, smoke cases included
	assert.Equal(t, csvHeader, rows[0])

	assert.Equal(t, "random-1m", rows[1][0])
	assert.Equal(t, "parallel", rows[1][1])
	assert.Equal(t, "1048576", rows[1][3])
	assert.Equal(t, "12000000", rows[1][7]) // mean_ns
	assert.Equal(t, "4.50", rows[1][14])
	assert.Equal(t, "true", rows[1][15])

	assert.Equal(t, "random-1k", rows[2][0])
	assert.Equal(t, "sequential", rows[3][1])
}

func TestWriteFile(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	for _, format := range r.Formats() {
		t.Run(format, func(t *testing.T) {
			path, err := r.WriteFile(format, filepath.Join(dir, format), fixtureResult())
			require.NoError(t, err)
			assert.Equal(t, "report"+r.Get(format).Extension(), filepath.Base(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

func TestPrintGoesThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	Print(fixtureResult(), log)
	out := buf.String()

	assert.Contains(t, out, "=== Benchmark Results ===")
	assert.Contains(t, out, "Strategy: parallel")

	// Nil-safe on both sides.
	Print(nil, log)
	Print(fixtureResult(), nil)
}

func TestSummary(t *testing.T) {
	s := Summary(fixtureResult())
	require.NotNil(t, s)

	assert.Equal(t, "run-xyz", s["rid"])
	assert.Equal(t, "job-abc", s["jid"])
	assert.Equal(t, int64(15), s["total_trials"])
	assert.Equal(t, 1, s["findings_count"])

	strategies, ok := s["strategies"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, strategies, "parallel")
	require.Contains(t, strategies, "sequential")

	parallel := strategies["parallel"].(map[string]interface{})
	cases := parallel["cases"].([]map[string]interface{})
	require.Len(t, cases, 2)
	assert.Equal(t, "random-1m", cases[0]["case"])
	assert.Equal(t, 12.0, cases[0]["mean_ms"])

	assert.Nil(t, Summary(nil))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "500ns", formatDuration(500*time.Nanosecond))
	assert.Equal(t, "30.0µs", formatDuration(30*time.Microsecond))
	assert.Equal(t, "12.00ms", formatDuration(12*time.Millisecond))
	assert.Equal(t, "2.50s", formatDuration(2500*time.Millisecond))

	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "8.0KB", formatBytes(8<<10))
	assert.Equal(t, "8.0MB", formatBytes(8<<20))
	assert.Equal(t, "1.5GB", formatBytes(3<<29))

	assert.Equal(t, "-", formatSpeedup(0))
	assert.Equal(t, "1.25x", formatSpeedup(1.25))

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmn", 10))
}
