package model

import (
	"time"
)

// RunResult represents the aggregated result of a benchmark run.
type RunResult struct {
	RunUUID     string                    `json:"rid"`
	JobUUID     string                    `json:"jid"`
	Machine     MachineInfo               `json:"machine"`
	Result      map[string]StrategyResult `json:"result"`
	Version     string                    `json:"version"`
	TotalTrials int64                     `json:"total_trials"`
	CompletedAt time.Time                 `json:"completed_at"`
}

// MachineInfo records the environment a run executed on. Results are
// only comparable within the same machine shape.
type MachineInfo struct {
	Hostname   string `json:"hostname,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
	GOOS       string `json:"goos,omitempty"`
	GOARCH     string `json:"goarch,omitempty"`
	NumCPU     int    `json:"num_cpu,omitempty"`
	GOMAXPROCS int    `json:"gomaxprocs,omitempty"`
}

// StrategyResult holds the run result for one sorting strategy.
type StrategyResult struct {
	Cases       []CaseResult `json:"cases"`
	ChartFile   string       `json:"chart_file"`
	ReportFile  string       `json:"report_file"`
	Findings    []Finding    `json:"findings"`
	TotalTrials int64        `json:"total_trials"`
}

// CaseResult aggregates the trials of one case under one strategy.
type CaseResult struct {
	Case     string `json:"case"`
	Strategy string `json:"strategy"`
	Kind     string `json:"kind"`
	Size     int    `json:"size"`
	Trials   int    `json:"trials"`

	Timing TimingSummary `json:"timing"`

	AllocBytes    int64 `json:"alloc_bytes"`
	Allocs        int64 `json:"allocs"`
	GoroutinePeak int   `json:"goroutine_peak,omitempty"`

	Speedup float64 `json:"speedup,omitempty"`

	Verified    bool   `json:"verified"`
	VerifyError string `json:"verify_error,omitempty"`
}

// TimingSummary summarizes wall times across trials.
type TimingSummary struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	P95    time.Duration `json:"p95"`
	StdDev time.Duration `json:"stddev"`
}

// TrialResult represents a single timed execution.
type TrialResult struct {
	Case          string        `json:"case"`
	Strategy      string        `json:"strategy"`
	Trial         int           `json:"trial"`
	WallTime      time.Duration `json:"wall_time"`
	AllocBytes    int64         `json:"alloc_bytes"`
	Allocs        int64         `json:"allocs"`
	GoroutinePeak int           `json:"goroutine_peak,omitempty"`
	Verified      bool          `json:"verified"`
	Err           string        `json:"error,omitempty"`
}

// BenchRequest represents a request to execute a benchmark job.
type BenchRequest struct {
	JobID      int64
	JobUUID    string
	JobType    JobType
	DatasetDir string
	OutputDir  string
	ResultFile string
	UserName   string
	COSBucket  string
	Params     JobParams
}

// BenchResponse represents the response from an executed job.
type BenchResponse struct {
	JobUUID     string        `json:"job_uuid"`
	JobType     JobType       `json:"job_type"`
	TotalTrials int64         `json:"total_trials"`
	OutputFiles []OutputFile  `json:"output_files"`
	Result      RunResult     `json:"result"`
	Findings    []FindingItem `json:"findings"`
	Error       string        `json:"error,omitempty"`
}

// OutputFile describes an artifact produced by a run.
type OutputFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Kind      string `json:"kind"` // report, chart, dataset
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// FindingItem is the transport form of a finding.
type FindingItem struct {
	Type     string `json:"type"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
	Case     string `json:"case,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// RunContext carries state through the run pipeline from execution to
// persistence.
type RunContext struct {
	ChartFile   string         `json:"chart_file"`
	ReportFile  string         `json:"report_file"`
	Findings    []Finding      `json:"findings"`
	TopCases    string         `json:"top_cases"`
	TotalTrials int64          `json:"total_trials"`
	RID         string         `json:"rid"`
	Type        JobType        `json:"type"`
	Status      JobStatus      `json:"status"`
	StatusInfo  string         `json:"status_info"`
	CreateTime  int64          `json:"create_time"`
	BeginTime   int64          `json:"begin_time"`
	EndTime     int64          `json:"end_time"`
	RunStatus   RunStatus      `json:"run_status"`
	Extra       map[string]any `json:"extra"`
}

// NewRunContext creates a new RunContext with default values.
func NewRunContext() *RunContext {
	return &RunContext{
		Findings:  make([]Finding, 0),
		Extra:     make(map[string]any),
		RunStatus: RunStatusPending,
	}
}

// SetFromStrategyResult updates context from a strategy result.
func (ctx *RunContext) SetFromStrategyResult(sr *StrategyResult) {
	ctx.ChartFile = sr.ChartFile
	ctx.ReportFile = sr.ReportFile
	ctx.Findings = sr.Findings
	ctx.TotalTrials = sr.TotalTrials
}
