package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/sortbench/internal/benchmark"
	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/internal/repository"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
)

// JobSubmitter enqueues benchmark jobs into the job table, where the
// database source of a running daemon picks them up.
type JobSubmitter struct {
	jobRepo repository.JobRepository
}

// NewJobSubmitter creates a new JobSubmitter.
func NewJobSubmitter(jobRepo repository.JobRepository) *JobSubmitter {
	return &JobSubmitter{jobRepo: jobRepo}
}

// Submit validates the parameters, assigns a job UUID, and creates the
// pending job row.
func (s *JobSubmitter) Submit(ctx context.Context, jobType model.JobType, params model.JobParams, userName string) (*model.Job, error) {
	params.Normalize()
	if err := validateParams(params); err != nil {
		return nil, err
	}

	job := model.NewJob(0, uuid.NewString(), jobType)
	job.Params = params
	job.UserName = userName

	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// validateParams rejects parameters the runner would refuse anyway, so
// bad jobs fail at submission instead of after a poll cycle.
func validateParams(params model.JobParams) error {
	for _, size := range params.Sizes {
		if size <= 0 {
			return errors.Newf(errors.CodeInvalidInput, "invalid case size %d", size)
		}
	}
	for _, name := range params.Strategies {
		if _, ok := benchmark.GetStrategy(name); !ok {
			return errors.Newf(errors.CodeInvalidInput,
				"unknown strategy %q (registered: %v)", name, benchmark.Strategies())
		}
	}
	for _, kind := range params.Kinds {
		if !dataset.IsRegistered(kind) {
			return errors.Newf(errors.CodeInvalidInput,
				"unknown dataset kind %q (known: %v)", kind, dataset.Kinds())
		}
	}
	return nil
}
