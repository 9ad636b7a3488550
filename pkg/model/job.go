// Package model defines the core data structures used throughout the application.
package model

import (
	"time"
)

// JobType represents the type of benchmark job.
type JobType int

const (
	JobTypeSuite  JobType = 0 // Full case suite across strategies
	JobTypeSingle JobType = 1 // One case, one strategy
	JobTypeSweep  JobType = 2 // Parallelism sweep over one case
)

// String returns the string representation of JobType.
func (t JobType) String() string {
	switch t {
	case JobTypeSuite:
		return "suite"
	case JobTypeSingle:
		return "single"
	case JobTypeSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// JobStatus represents the status of a job.
type JobStatus int

const (
	JobStatusPending   JobStatus = 0 // Pending
	JobStatusRunning   JobStatus = 1 // Running (trials executing)
	JobStatusCompleted JobStatus = 2 // Completed
	JobStatusFailed    JobStatus = 3 // Failed
)

// RunStatus represents the status of result aggregation and reporting.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Not started
	RunStatusRunning   RunStatus = 1 // Aggregating
	RunStatusCompleted RunStatus = 2 // Completed
	RunStatusFailed    RunStatus = 3 // Failed
	RunStatusEmpty     RunStatus = 4 // No trials matched the job's filter
)

// Job represents a benchmark job.
type Job struct {
	ID         int64      `json:"id" db:"id"`
	JobUUID    string     `json:"jid" db:"jid"`
	Type       JobType    `json:"type" db:"type"`
	Status     JobStatus  `json:"status" db:"status"`
	RunStatus  RunStatus  `json:"run_status" db:"run_status"`
	StatusInfo string     `json:"status_info" db:"status_info"`
	ResultFile string     `json:"result_file" db:"result_file"`
	UserName   string     `json:"user_name" db:"user_name"`
	COSBucket  string     `json:"cos_bucket" db:"cos_bucket"`
	Params     JobParams  `json:"params" db:"params"`
	CreateTime time.Time  `json:"create_time" db:"create_time"`
	BeginTime  *time.Time `json:"begin_time" db:"begin_time"`
	EndTime    *time.Time `json:"end_time" db:"end_time"`
}

// JobParams holds job request parameters.
type JobParams struct {
	Trials      int      `json:"trials,omitempty"`
	Warmup      int      `json:"warmup,omitempty"`
	Parallelism int      `json:"parallelism,omitempty"`
	DepthBudget int      `json:"depth_budget,omitempty"`
	Sizes       []int    `json:"sizes,omitempty"`
	Kinds       []string `json:"kinds,omitempty"`
	Strategies  []string `json:"strategies,omitempty"`
	Seed        int64    `json:"seed,omitempty"`
	Verify      bool     `json:"verify,omitempty"`
}

// Normalize fills zero-valued fields with defaults. Jobs arriving from
// the database or an HTTP source often carry partial parameters.
func (p *JobParams) Normalize() {
	if p.Trials <= 0 {
		p.Trials = 10
	}
	if p.Warmup < 0 {
		p.Warmup = 0
	}
	if len(p.Sizes) == 0 {
		p.Sizes = []int{1 << 16, 1 << 20}
	}
	if len(p.Kinds) == 0 {
		p.Kinds = []string{"random"}
	}
	if len(p.Strategies) == 0 {
		p.Strategies = []string{"sequential", "parallel"}
	}
}

// TotalWork estimates the element-trials a job will execute. The
// scheduler uses it to order the queue.
func (p *JobParams) TotalWork() int64 {
	var elements int64
	for _, size := range p.Sizes {
		elements += int64(size)
	}
	trials := int64(p.Trials + p.Warmup)
	strategies := int64(len(p.Strategies))
	kinds := int64(len(p.Kinds))
	if trials <= 0 {
		trials = 1
	}
	if strategies == 0 {
		strategies = 1
	}
	if kinds == 0 {
		kinds = 1
	}
	return elements * trials * strategies * kinds
}

// IsQuick returns true if the job is small enough to jump the queue.
func (j *Job) IsQuick() bool {
	if j.Type == JobTypeSingle {
		return true
	}
	return j.Params.TotalWork() > 0 && j.Params.TotalWork() <= 1<<24
}

// QueueClass returns the scheduler queue class for the job.
func (j *Job) QueueClass() string {
	if j.IsQuick() {
		return "interactive"
	}
	return "batch"
}

// NewJob creates a new Job instance.
func NewJob(id int64, jobUUID string, jobType JobType) *Job {
	return &Job{
		ID:         id,
		JobUUID:    jobUUID,
		Type:       jobType,
		Status:     JobStatusPending,
		RunStatus:  RunStatusPending,
		CreateTime: time.Now(),
	}
}
