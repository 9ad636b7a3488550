package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sortbench/internal/advisor"
	"github.com/sortbench/internal/benchmark"
	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/internal/report"
	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/stats"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/utils"
)

// DefaultJobProcessor executes benchmark jobs end to end: generate the
// datasets, run the trials, aggregate, advise, render and upload the
// artifacts, and persist everything.
type DefaultJobProcessor struct {
	config  *config.Config
	storage storage.Storage
	repos   *repository.Repositories
	reports *report.Registry
	filter  *filter.CaseFilter
	logger  utils.Logger
}

// ProcessorConfig holds processor configuration.
type ProcessorConfig struct {
	Config  *config.Config
	Storage storage.Storage
	Repos   *repository.Repositories
	Filter  *filter.CaseFilter // optional, defaults to filter.DefaultFilter
	Logger  utils.Logger
}

// NewDefaultJobProcessor creates a new DefaultJobProcessor.
func NewDefaultJobProcessor(cfg *ProcessorConfig) *DefaultJobProcessor {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	f := cfg.Filter
	if f == nil {
		f = filter.DefaultFilter
	}

	return &DefaultJobProcessor{
		config:  cfg.Config,
		storage: cfg.Storage,
		repos:   cfg.Repos,
		reports: report.NewRegistry(),
		filter:  f,
		logger:  cfg.Logger,
	}
}

// Process executes a single benchmark job. On success the job row (when
// the job is database-tracked, ID > 0) is completed with its run status
// and result file; a returned error means no terminal state was
// recorded and the caller should nack the event.
func (p *DefaultJobProcessor) Process(ctx context.Context, job *Job, rules []model.FindingRule) error {
	job.Params.Normalize()
	rid := uuid.NewString()

	p.logger.Info("Starting run %s for job %s (type: %s, trials: %d)",
		rid, job.UUID, job.Type, job.Params.Trials)

	// Run directory holds artifacts until they are uploaded
	runDir := p.config.GetRunDir(rid)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return errors.Wrap(errors.CodeRunError, "create run directory", err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			p.logger.Warn("Failed to clean up run directory %s: %v", runDir, err)
		}
	}()

	// Execute the trials
	res, trials, err := p.executeRun(ctx, job)
	if err != nil {
		return err
	}
	res.RunUUID = rid
	res.JobUUID = job.UUID

	// A job whose filter matched nothing is not a failure; record the
	// empty run so the jid->rid mapping survives, and complete the job
	// with the empty status.
	if res.TotalTrials == 0 {
		p.logger.Warn("Run %s produced no trials, marking job %s empty", rid, job.UUID)
		if err := p.repos.Run.SaveRun(ctx, res); err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "save empty run", err)
		}
		if err := p.completeJob(ctx, job, model.RunStatusEmpty, ""); err != nil {
			return err
		}
		p.notifyWebhook(ctx, webhookPayload{
			JobUUID: job.UUID,
			RunUUID: rid,
			Status:  "empty",
		})
		return nil
	}

	// Aggregate: speedups against the baseline, slowest cases for the log
	baseline := p.baselineFor(job)
	agg := stats.NewAggregator(stats.WithBaseline(baseline), stats.WithTopN(p.config.Report.TopN))
	agg.ApplySpeedups(res)
	p.logTopCases(agg, res)

	// Advise: built-in rules plus the stored ones the scheduler caches
	findings := p.generateFindings(job, res, rules)

	// Render and upload artifacts; keys are set on the result before it
	// is rendered so the stored JSON references them.
	resultFile, err := p.publishArtifacts(ctx, rid, runDir, res)
	if err != nil {
		return err
	}

	// Persist the run, its trials, and the findings
	if err := p.repos.Run.SaveRun(ctx, res); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "save run", err)
	}
	if err := p.repos.Run.SaveTrials(ctx, rid, trials); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "save trials", err)
	}
	if len(findings) > 0 {
		if err := p.repos.Finding.SaveFindings(ctx, findings); err != nil {
			// Findings are advisory, losing them does not fail the run
			p.logger.Warn("Failed to save %d findings for run %s: %v", len(findings), rid, err)
		}
	}

	if err := p.completeJob(ctx, job, model.RunStatusCompleted, resultFile); err != nil {
		return err
	}

	p.notifyWebhook(ctx, webhookPayload{
		JobUUID:     job.UUID,
		RunUUID:     rid,
		Status:      "completed",
		TotalTrials: res.TotalTrials,
		ResultFile:  resultFile,
	})

	p.logger.Info("Run %s for job %s completed: %d trials, %d findings",
		rid, job.UUID, res.TotalTrials, len(findings))
	return nil
}

// executeRun dispatches on the job type.
func (p *DefaultJobProcessor) executeRun(ctx context.Context, job *Job) (*model.RunResult, []model.TrialResult, error) {
	if job.Type == model.JobTypeSweep {
		return p.runSweep(ctx, job)
	}
	return p.runSuite(ctx, job)
}

// runSuite runs every requested strategy over every requested case.
// Single jobs take this path too, their parameter lists just have one
// entry each.
func (p *DefaultJobProcessor) runSuite(ctx context.Context, job *Job) (*model.RunResult, []model.TrialResult, error) {
	cfg := benchmark.ConfigFromParams(job.Params)
	runner := benchmark.NewRunner(cfg,
		benchmark.WithLogger(p.logger),
		benchmark.WithFilter(p.filter),
	)

	specs := dataset.ExpandSpecs(job.Params.Kinds, job.Params.Sizes, job.Params.Seed)
	return runner.RunSuite(ctx, specs, job.Params.Strategies)
}

// runSweep benchmarks the parallel strategy over one case at increasing
// parallelism. Each sweep point lands under its own strategy key
// (parallel-p1, parallel-p2, ...) so the aggregation and the chart
// treat it as its own series.
func (p *DefaultJobProcessor) runSweep(ctx context.Context, job *Job) (*model.RunResult, []model.TrialResult, error) {
	specs := dataset.ExpandSpecs(job.Params.Kinds, job.Params.Sizes, job.Params.Seed)
	spec := specs[0]
	if len(specs) > 1 {
		p.logger.Warn("Sweep job %s requested %d cases, sweeping only %s",
			job.UUID, len(specs), spec.CaseName())
	}

	input, err := dataset.Generate(ctx, spec)
	if err != nil {
		return nil, nil, err
	}

	maxParallelism := job.Params.Parallelism
	if maxParallelism <= 0 {
		maxParallelism = runtime.GOMAXPROCS(0)
	}

	res := &model.RunResult{
		Machine: benchmark.Environment(),
		Result:  make(map[string]model.StrategyResult),
	}
	var allTrials []model.TrialResult

	for _, point := range sweepPoints(maxParallelism) {
		cfg := benchmark.ConfigFromParams(job.Params)
		cfg.Parallelism = point
		runner := benchmark.NewRunner(cfg, benchmark.WithLogger(p.logger))

		caseRes, trials, err := runner.RunCase(ctx, spec, input, benchmark.StrategyParallel)
		if err != nil {
			return nil, nil, err
		}

		name := sweepStrategyName(point)
		caseRes.Strategy = name
		for i := range trials {
			trials[i].Strategy = name
		}

		res.Result[name] = model.StrategyResult{
			Cases:       []model.CaseResult{caseRes},
			TotalTrials: int64(len(trials)),
		}
		allTrials = append(allTrials, trials...)

		p.logger.Info("sweep point %s: mean %v over %d trials",
			name, caseRes.Timing.Mean, caseRes.Trials)
	}

	res.TotalTrials = int64(len(allTrials))
	res.CompletedAt = time.Now()
	return res, allTrials, nil
}

// sweepPoints returns the parallelism values a sweep visits: powers of
// two up to the maximum, and the maximum itself.
func sweepPoints(maxParallelism int) []int {
	var points []int
	for p := 1; p < maxParallelism; p *= 2 {
		points = append(points, p)
	}
	return append(points, maxParallelism)
}

// sweepStrategyName names one sweep point.
func sweepStrategyName(parallelism int) string {
	return "parallel-p" + strconv.Itoa(parallelism)
}

// baselineFor picks the speedup baseline for a job.
func (p *DefaultJobProcessor) baselineFor(job *Job) string {
	if job.Type == model.JobTypeSweep {
		return sweepStrategyName(1)
	}
	return stats.DefaultBaseline
}

// logTopCases logs the slowest cases of the run.
func (p *DefaultJobProcessor) logTopCases(agg *stats.Aggregator, res *model.RunResult) {
	top := agg.TopSlowest(res)
	for _, entry := range top.Entries {
		p.logger.Info("slow case %s/%s: mean %v (%.1f%% of run time)",
			entry.Case, entry.Strategy, entry.Mean, entry.Share)
	}
}

// generateFindings runs the advisor and groups the findings onto the
// result by strategy.
func (p *DefaultJobProcessor) generateFindings(job *Job, res *model.RunResult, rules []model.FindingRule) []model.Finding {
	parallelism := job.Params.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	adv := advisor.NewAdvisorWithStoredRules(rules)
	findings := adv.Advise(&advisor.RuleContext{
		Result:      res,
		Baseline:    p.baselineFor(job),
		Parallelism: parallelism,
		DepthBudget: job.Params.DepthBudget,
	})

	for i := range findings {
		findings[i].RunUUID = res.RunUUID
	}

	for _, f := range findings {
		sr, ok := res.Result[f.Strategy]
		if !ok {
			continue
		}
		sr.Findings = append(sr.Findings, f)
		res.Result[f.Strategy] = sr
	}

	return findings
}

// publishArtifacts renders the configured report formats plus the
// canonical JSON report and the chart into runDir, then uploads them
// under the run's storage prefix. It returns the storage key of the
// JSON report, which becomes the job's result file.
func (p *DefaultJobProcessor) publishArtifacts(ctx context.Context, rid, runDir string, res *model.RunResult) (string, error) {
	formats := withCanonicalFormat(p.config.Report.Formats)

	// Keys are deterministic, stamp them before rendering so the stored
	// report references its own artifacts.
	resultFile := storage.RunKey(rid, "report"+p.reports.Get(report.FormatJSON).Extension())
	chartKey := ""
	if p.config.Report.Charts {
		chartKey = storage.RunKey(rid, report.ChartFileName)
	}
	for name, sr := range res.Result {
		sr.ReportFile = resultFile
		sr.ChartFile = chartKey
		res.Result[name] = sr
	}

	var outputs []model.OutputFile
	for _, format := range formats {
		path, err := p.reports.WriteFile(format, runDir, res)
		if err != nil {
			return "", err
		}
		outputs = append(outputs, outputFile(path, "report"))
	}

	if p.config.Report.Charts {
		path, stats, err := report.WriteChart(res, runDir)
		if err != nil {
			return "", err
		}
		p.logger.Debug("chart %s: %d bytes json, %d compressed (%.1f%% saved)",
			path, stats.JSONSize, stats.CompressedSize, stats.CompressionPct)
		outputs = append(outputs, outputFile(path, "chart"))
	}

	for _, out := range outputs {
		key := storage.RunKey(rid, out.Name)
		if err := p.storage.UploadFile(ctx, key, out.Path); err != nil {
			// Keep going, a lost artifact only degrades the web view
			p.logger.Error("Failed to upload %s: %v", out.Name, err)
			continue
		}
		p.logger.Debug("uploaded %s (%d bytes) to %s", out.Name, out.SizeBytes, key)
	}

	return resultFile, nil
}

// outputFile describes one artifact on disk.
func outputFile(path string, kind string) model.OutputFile {
	out := model.OutputFile{
		Name: filepath.Base(path),
		Path: path,
		Kind: kind,
	}
	if info, err := os.Stat(path); err == nil {
		out.SizeBytes = info.Size()
	}
	return out
}

// withCanonicalFormat ensures the JSON report is always rendered; it is
// the machine-readable artifact the job's result file points at.
func withCanonicalFormat(formats []string) []string {
	for _, f := range formats {
		if f == report.FormatJSON {
			return formats
		}
	}
	return append(append([]string{}, formats...), report.FormatJSON)
}

// completeJob records the terminal state for database-tracked jobs.
// Jobs submitted over HTTP or the in-process queue have no row (ID 0),
// their run record is the only trace.
func (p *DefaultJobProcessor) completeJob(ctx context.Context, job *Job, runStatus model.RunStatus, resultFile string) error {
	if job.ID <= 0 {
		return nil
	}
	if err := p.repos.Job.CompleteJob(ctx, job.ID, runStatus, resultFile); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "complete job", err)
	}
	return nil
}

// webhookPayload is the completion callback body.
type webhookPayload struct {
	JobUUID     string `json:"jid"`
	RunUUID     string `json:"rid"`
	Status      string `json:"status"`
	TotalTrials int64  `json:"total_trials,omitempty"`
	ResultFile  string `json:"result_file,omitempty"`
}

// notifyWebhook posts the run outcome to the configured callback URL.
// Failures are logged, never fatal.
func (p *DefaultJobProcessor) notifyWebhook(ctx context.Context, payload webhookPayload) {
	cfg := p.config.Webhook
	if !cfg.Enabled || cfg.URL == "" {
		return
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("Failed to encode webhook payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("Failed to build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		p.logger.Warn("Webhook to %s failed: %v", cfg.URL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("Webhook to %s returned %d", cfg.URL, resp.StatusCode)
		return
	}
	p.logger.Debug("Webhook delivered for run %s (%s)", payload.RunUUID, payload.Status)
}
