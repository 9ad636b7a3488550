// Package repository provides database persistence for benchmark jobs,
// runs, trials and findings.
package repository

import (
	"context"

	"github.com/sortbench/pkg/model"
)

// JobRepository defines job queue operations for the daemon.
type JobRepository interface {
	// GetPendingJobs retrieves jobs waiting to be executed.
	GetPendingJobs(ctx context.Context, limit int) ([]*model.Job, error)

	// GetJobByID retrieves a job by its ID.
	GetJobByID(ctx context.Context, id int64) (*model.Job, error)

	// GetJobByUUID retrieves a job by its UUID.
	GetJobByUUID(ctx context.Context, jid string) (*model.Job, error)

	// CreateJob inserts a new pending job and fills its ID.
	CreateJob(ctx context.Context, job *model.Job) error

	// ClaimJob attempts to move a pending job to running. It returns
	// false when another worker already took it.
	ClaimJob(ctx context.Context, id int64) (bool, error)

	// CompleteJob marks a job completed with its run status and the
	// artifact it produced.
	CompleteJob(ctx context.Context, id int64, runStatus model.RunStatus, resultFile string) error

	// FailJob marks a job failed with a reason.
	FailJob(ctx context.Context, id int64, info string) error
}

// RunRepository defines run result operations.
type RunRepository interface {
	// SaveRun saves an aggregated run result.
	SaveRun(ctx context.Context, res *model.RunResult) error

	// GetRunByUUID retrieves a run result by its run UUID.
	GetRunByUUID(ctx context.Context, rid string) (*model.RunResult, error)

	// ListRuns retrieves the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*model.RunResult, error)

	// SaveTrials saves the per-trial measurements of a run.
	SaveTrials(ctx context.Context, rid string, trials []model.TrialResult) error

	// GetTrials retrieves the per-trial measurements of a run.
	GetTrials(ctx context.Context, rid string) ([]model.TrialResult, error)
}

// FindingRepository defines finding and finding-rule operations.
type FindingRepository interface {
	// SaveFindings saves advisor findings for a run.
	SaveFindings(ctx context.Context, findings []model.Finding) error

	// GetFindingsByRunUUID retrieves findings for a run.
	GetFindingsByRunUUID(ctx context.Context, rid string) ([]model.Finding, error)

	// GetFindingRules retrieves all active threshold rules.
	GetFindingRules(ctx context.Context) ([]model.FindingRule, error)
}
