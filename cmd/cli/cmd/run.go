package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sortbench/internal/advisor"
	"github.com/sortbench/internal/benchmark"
	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/internal/report"
	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/stats"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/pkg/model"
)

var (
	// Workload flags
	trials      int
	warmup      int
	parallelism int
	depthBudget int
	sizes       string
	kinds       string
	strategies  string
	seed        int64
	verify      bool

	// Reporting flags
	baseline  string
	runUUID   string
	outputDir string
	formats   string
	topN      int
	noChart   bool

	// Persistence and serve flags
	persist    bool
	serveAfter bool
	serveAddr  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark suite and report the results",
	Long: `Run every requested strategy over every requested dataset case.

The run command generates the datasets, executes the measured trials, and
produces:
  - A report in each requested format (text, json, markdown, csv)
  - Speedups of every strategy against the baseline
  - A compressed chart payload for the web UI
  - Advisory findings (speedup saturation, allocation regressions, ...)

Dataset kinds:
  - random      : uniform random values (default)
  - sorted      : already ascending
  - reversed    : strictly descending
  - sawtooth    : repeating ascending ramps
  - duplicates  : heavy value repetition
  - permutation : shuffled distinct values

Strategies:
  - sequential : depth-limited merge sort, single goroutine (default baseline)
  - parallel   : buffer-alternating parallel merge sort
  - stdlib     : slices.Sort
  - stable     : sort.SliceStable`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Set dynamic example using actual binary name
	binName := BinName()
	runCmd.Example = `  # Benchmark sequential vs parallel on random data
  ` + binName + ` run

  # Three strategies, two shapes, five trials each
  ` + binName + ` run -s sequential,parallel,stdlib -k random,reversed -t 5

  # Large inputs with a fixed parallelism and fork depth
  ` + binName + ` run --sizes 4m,16m -p 8 --depth 3

  # Persist the run and immediately explore it in the browser
  ` + binName + ` run --persist --serve

  # Custom run UUID and markdown output
  ` + binName + ` run --uuid nightly-001 --formats text,markdown`

	// Workload flags
	runCmd.Flags().IntVarP(&trials, "trials", "t", 10, "Measured trials per case and strategy")
	runCmd.Flags().IntVar(&warmup, "warmup", 1, "Warmup runs before measurement starts")
	runCmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Worker hint for parallel strategies (0 = GOMAXPROCS)")
	runCmd.Flags().IntVar(&depthBudget, "depth", 0, "Fork depth budget (0 derives it from parallelism)")
	runCmd.Flags().StringVar(&sizes, "sizes", "64k,1m", "Comma-separated input sizes, k and m suffixes allowed")
	runCmd.Flags().StringVarP(&kinds, "kinds", "k", "random", "Comma-separated dataset kinds")
	runCmd.Flags().StringVarP(&strategies, "strategies", "s", "sequential,parallel", "Comma-separated strategies to benchmark")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for dataset generation")
	runCmd.Flags().BoolVar(&verify, "verify", true, "Verify every trial output is sorted and a permutation of the input")

	// Reporting flags
	runCmd.Flags().StringVar(&baseline, "baseline", stats.DefaultBaseline, "Strategy speedups are measured against")
	runCmd.Flags().StringVar(&runUUID, "uuid", "", "Run UUID (auto-generated if empty)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "./output", "Output directory for generated files")
	runCmd.Flags().StringVar(&formats, "formats", report.FormatText, "Comma-separated report formats: text,json,markdown,csv")
	runCmd.Flags().IntVarP(&topN, "top", "n", 10, "Number of slowest cases to highlight")
	runCmd.Flags().BoolVar(&noChart, "no-chart", false, "Skip the compressed chart artifact")

	// Persistence and serve flags
	runCmd.Flags().BoolVar(&persist, "persist", false, "Save the run to the local run database")
	runCmd.Flags().BoolVar(&serveAfter, "serve", false, "Start the web UI after the run (implies --persist)")
	runCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address for the web UI (used with --serve)")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	// Build job parameters from flags
	params := model.JobParams{
		Trials:      trials,
		Warmup:      warmup,
		Parallelism: parallelism,
		DepthBudget: depthBudget,
		Seed:        seed,
		Verify:      verify,
	}
	parsedSizes, err := parseSizes(sizes)
	if err != nil {
		return err
	}
	params.Sizes = parsedSizes
	params.Kinds = splitList(kinds)
	params.Strategies = splitList(strategies)
	params.Normalize()

	// Validate kinds and strategies
	for _, kind := range params.Kinds {
		if !dataset.IsRegistered(kind) {
			return fmt.Errorf("unknown dataset kind: %s (valid: %s)", kind, strings.Join(dataset.Kinds(), ", "))
		}
	}
	for _, name := range params.Strategies {
		if !benchmark.IsRegistered(name) {
			return fmt.Errorf("unknown strategy: %s (valid: %s)", name, strings.Join(benchmark.Strategies(), ", "))
		}
	}

	// Generate run UUID if not provided
	rid := runUUID
	if rid == "" {
		rid = uuid.NewString()
	}

	// Create output directory
	runDir := filepath.Join(outputDir, rid)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	log.Info("=== sortbench ===")
	log.Info("Run UUID:   %s", rid)
	log.Info("Output dir: %s", runDir)
	log.Info("Strategies: %s", strings.Join(params.Strategies, ", "))
	log.Info("Cases:      %d kind(s) x %d size(s), seed %d", len(params.Kinds), len(params.Sizes), params.Seed)
	log.Info("Trials:     %d measured, %d warmup", params.Trials, params.Warmup)
	log.Info("")

	// Run the suite
	runner := benchmark.NewRunner(benchmark.ConfigFromParams(params), benchmark.WithLogger(log))
	specs := dataset.ExpandSpecs(params.Kinds, params.Sizes, params.Seed)

	ctx := context.Background()
	startTime := time.Now()
	res, trialResults, err := runner.RunSuite(ctx, specs, params.Strategies)
	elapsed := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	res.RunUUID = rid
	res.JobUUID = "local"

	if res.TotalTrials == 0 {
		log.Warn("Run produced no trials, nothing to report")
		return nil
	}

	// Aggregate speedups against the baseline
	agg := stats.NewAggregator(stats.WithBaseline(baseline), stats.WithTopN(topN))
	agg.ApplySpeedups(res)

	// Advise on the aggregated result
	effectiveParallelism := params.Parallelism
	if effectiveParallelism <= 0 {
		effectiveParallelism = runtime.GOMAXPROCS(0)
	}
	findings := advisor.NewAdvisor().Advise(&advisor.RuleContext{
		Result:      res,
		Baseline:    baseline,
		Parallelism: effectiveParallelism,
		DepthBudget: params.DepthBudget,
	})
	for i := range findings {
		findings[i].RunUUID = rid
	}
	attachFindings(res, findings)

	// Validate formats before rendering anything
	registry := report.NewRegistry()
	formatList, err := parseFormats(formats, registry)
	if err != nil {
		return err
	}

	// When the run is persisted, stamp the artifact keys before
	// rendering so the stored report references its own artifacts.
	if persist || serveAfter {
		resultKey := storage.RunKey(rid, "report"+registry.Get(report.FormatJSON).Extension())
		chartKey := ""
		if !noChart {
			chartKey = storage.RunKey(rid, report.ChartFileName)
		}
		for name, sr := range res.Result {
			sr.ReportFile = resultKey
			sr.ChartFile = chartKey
			res.Result[name] = sr
		}
	}

	log.Info("")
	report.Print(res, log)
	log.Info("")

	// Write report files
	var outputs []string
	for _, format := range formatList {
		path, err := registry.WriteFile(format, runDir, res)
		if err != nil {
			return fmt.Errorf("failed to write %s report: %w", format, err)
		}
		outputs = append(outputs, path)
	}
	if !noChart {
		path, _, err := report.WriteChart(res, runDir)
		if err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		outputs = append(outputs, path)
	}

	// Save run summary with metadata
	metadata := &RunMetadata{
		Baseline:    baseline,
		Seed:        params.Seed,
		Parallelism: effectiveParallelism,
		DepthBudget: params.DepthBudget,
		CreatedAt:   startTime.Format(time.RFC3339),
		ElapsedMs:   elapsed.Milliseconds(),
	}
	saveRunSummary(res, runDir, metadata)

	// Persist the run for `report` and `serve`
	if persist || serveAfter {
		repos, store, err := openRunStore(outputDir, false)
		if err != nil {
			return err
		}
		defer repos.Close()

		if err := persistRun(ctx, repos, store, res, trialResults, findings, outputs); err != nil {
			return err
		}
		log.Info("Run persisted to %s", filepath.Join(outputDir, runDBName))
	}

	log.Info("")
	log.Info("=== Benchmark Complete ===")
	log.Info("Completed %d trials in %s", res.TotalTrials, elapsed.Round(time.Millisecond))
	log.Info("Output files are in: %s", runDir)

	// If serve mode is enabled, start the web server
	if serveAfter {
		log.Info("")
		log.Info("Starting web server...")
		return startServeMode(outputDir, serveAddr, log)
	}

	return nil
}

// persistRun saves the run, its trials, and the findings, then copies
// the rendered artifacts into the store the web UI reads from. Losing
// an artifact only degrades the web view, so upload failures are
// logged and skipped.
func persistRun(ctx context.Context, repos *repository.Repositories, store storage.Storage, res *model.RunResult, trialResults []model.TrialResult, findings []model.Finding, outputs []string) error {
	log := GetLogger()

	if err := repos.Run.SaveRun(ctx, res); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if err := repos.Run.SaveTrials(ctx, res.RunUUID, trialResults); err != nil {
		return fmt.Errorf("failed to save trials: %w", err)
	}
	if len(findings) > 0 {
		if err := repos.Finding.SaveFindings(ctx, findings); err != nil {
			log.Warn("Failed to save %d findings: %v", len(findings), err)
		}
	}

	for _, path := range outputs {
		key := storage.RunKey(res.RunUUID, filepath.Base(path))
		if err := store.UploadFile(ctx, key, path); err != nil {
			log.Warn("Failed to copy %s into the artifact store: %v", filepath.Base(path), err)
		}
	}

	return nil
}

// attachFindings groups the findings onto the result by strategy.
func attachFindings(res *model.RunResult, findings []model.Finding) {
	for _, f := range findings {
		sr, ok := res.Result[f.Strategy]
		if !ok {
			continue
		}
		sr.Findings = append(sr.Findings, f)
		res.Result[f.Strategy] = sr
	}
}

func saveRunSummary(res *model.RunResult, outputDir string, metadata *RunMetadata) {
	summary := report.Summary(res)

	// Add metadata if provided
	if metadata != nil {
		summary["metadata"] = map[string]interface{}{
			"baseline":     metadata.Baseline,
			"seed":         metadata.Seed,
			"parallelism":  metadata.Parallelism,
			"depth_budget": metadata.DepthBudget,
			"created_at":   metadata.CreatedAt,
			"elapsed_ms":   metadata.ElapsedMs,
		}
	}

	summaryFile := filepath.Join(outputDir, "summary.json")
	data, _ := json.MarshalIndent(summary, "", "  ")
	os.WriteFile(summaryFile, data, 0644)
}

// RunMetadata holds metadata about the benchmark invocation
type RunMetadata struct {
	Baseline    string `json:"baseline"`
	Seed        int64  `json:"seed"`
	Parallelism int    `json:"parallelism"`
	DepthBudget int    `json:"depth_budget"`
	CreatedAt   string `json:"created_at"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// parseFormats validates the requested formats and ensures the JSON
// report is always rendered; it is the artifact the stored run and the
// web UI reference.
func parseFormats(s string, registry *report.Registry) ([]string, error) {
	requested := splitList(s)
	hasJSON := false
	for _, f := range requested {
		if _, ok := registry.Lookup(f); !ok {
			return nil, fmt.Errorf("unknown report format: %s (valid: %s)", f, strings.Join(registry.Formats(), ", "))
		}
		if f == report.FormatJSON {
			hasJSON = true
		}
	}
	if !hasJSON {
		requested = append(requested, report.FormatJSON)
	}
	return requested, nil
}

// parseSizes parses a comma-separated size list. Sizes accept k and m
// suffixes (64k = 65536).
func parseSizes(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		multiplier := 1
		value := strings.ToLower(part)
		switch {
		case strings.HasSuffix(value, "k"):
			multiplier = 1 << 10
			value = strings.TrimSuffix(value, "k")
		case strings.HasSuffix(value, "m"):
			multiplier = 1 << 20
			value = strings.TrimSuffix(value, "m")
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q (examples: 4096, 64k, 1m)", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("size must be positive, got %q", part)
		}
		out = append(out, n*multiplier)
	}
	return out, nil
}

// splitList splits a comma-separated flag value, dropping empty parts.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
