package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
)

// GormJobRepository implements JobRepository using GORM.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// GetPendingJobs retrieves jobs waiting to be executed, oldest first so
// the queue drains in submission order.
func (r *GormJobRepository) GetPendingJobs(ctx context.Context, limit int) ([]*model.Job, error) {
	var jobs []BenchmarkJob

	err := r.db.WithContext(ctx).
		Where("status = ?", model.JobStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "query pending jobs", err)
	}

	result := make([]*model.Job, len(jobs))
	for i, j := range jobs {
		result[i] = j.ToModel()
	}

	return result, nil
}

// GetJobByID retrieves a job by its ID.
func (r *GormJobRepository) GetJobByID(ctx context.Context, id int64) (*model.Job, error) {
	var job BenchmarkJob

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "job not found: %d", id)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "get job", err)
	}

	return job.ToModel(), nil
}

// GetJobByUUID retrieves a job by its UUID.
func (r *GormJobRepository) GetJobByUUID(ctx context.Context, jid string) (*model.Job, error) {
	var job BenchmarkJob

	err := r.db.WithContext(ctx).Where("jid = ?", jid).First(&job).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "job not found: %s", jid)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "get job", err)
	}

	return job.ToModel(), nil
}

// CreateJob inserts a new pending job and fills the model's ID.
func (r *GormJobRepository) CreateJob(ctx context.Context, job *model.Job) error {
	record, err := JobFromModel(job)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "marshal job params", err)
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "create job", err)
	}

	job.ID = record.ID
	return nil
}

// ClaimJob attempts to move a pending job to running using FOR UPDATE,
// so concurrent daemons cannot execute the same job twice.
func (r *GormJobRepository) ClaimJob(ctx context.Context, id int64) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job BenchmarkJob

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.JobStatusPending).
			First(&job).Error

		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&BenchmarkJob{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     model.JobStatusRunning,
				"begin_time": time.Now(),
			}).Error
	})

	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errors.Wrap(errors.CodeDatabaseError, "claim job", err)
	}

	return true, nil
}

// CompleteJob marks a job completed with its run status and artifact.
func (r *GormJobRepository) CompleteJob(ctx context.Context, id int64, runStatus model.RunStatus, resultFile string) error {
	result := r.db.WithContext(ctx).
		Model(&BenchmarkJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.JobStatusCompleted,
			"run_status":  runStatus,
			"result_file": resultFile,
			"end_time":    time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(errors.CodeDatabaseError, "complete job", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.CodeNotFound, "job not found: %d", id)
	}

	return nil
}

// FailJob marks a job failed with a reason.
func (r *GormJobRepository) FailJob(ctx context.Context, id int64, info string) error {
	result := r.db.WithContext(ctx).
		Model(&BenchmarkJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.JobStatusFailed,
			"run_status":  model.RunStatusFailed,
			"status_info": info,
			"end_time":    time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(errors.CodeDatabaseError, "fail job", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.CodeNotFound, "job not found: %d", id)
	}

	return nil
}

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db      *gorm.DB
	version string
}

// NewGormRunRepository creates a new GormRunRepository. The version is
// stamped into every saved run.
func NewGormRunRepository(db *gorm.DB, version string) *GormRunRepository {
	return &GormRunRepository{db: db, version: version}
}

// SaveRun saves an aggregated run result.
func (r *GormRunRepository) SaveRun(ctx context.Context, res *model.RunResult) error {
	machineJSON, err := json.Marshal(res.Machine)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "marshal machine info", err)
	}

	resultJSON, err := json.Marshal(res.Result)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidInput, "marshal run result", err)
	}

	record := &BenchmarkRun{
		RID:         res.RunUUID,
		JID:         res.JobUUID,
		Machine:     machineJSON,
		Result:      resultJSON,
		Version:     r.version,
		TotalTrials: res.TotalTrials,
	}
	if !res.CompletedAt.IsZero() {
		completed := res.CompletedAt
		record.CompletedAt = &completed
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "save run", err)
	}

	return nil
}

// GetRunByUUID retrieves a run result by its run UUID.
func (r *GormRunRepository) GetRunByUUID(ctx context.Context, rid string) (*model.RunResult, error) {
	var record BenchmarkRun

	err := r.db.WithContext(ctx).Where("rid = ?", rid).First(&record).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "run not found: %s", rid)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "get run", err)
	}

	res, err := record.ToModel()
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "decode stored run", err)
	}
	return res, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.RunResult, error) {
	var records []BenchmarkRun

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "list runs", err)
	}

	runs := make([]*model.RunResult, 0, len(records))
	for i := range records {
		res, err := records[i].ToModel()
		if err != nil {
			return nil, errors.Wrap(errors.CodeDatabaseError, "decode stored run", err)
		}
		runs = append(runs, res)
	}

	return runs, nil
}

// SaveTrials saves the per-trial measurements of a run in one
// transaction.
func (r *GormRunRepository) SaveTrials(ctx context.Context, rid string, trials []model.TrialResult) error {
	if len(trials) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tr := range trials {
			if err := tx.Create(TrialFromModel(rid, tr)).Error; err != nil {
				return errors.Wrap(errors.CodeDatabaseError, "insert trial", err)
			}
		}
		return nil
	})
}

// GetTrials retrieves the per-trial measurements of a run in execution
// order.
func (r *GormRunRepository) GetTrials(ctx context.Context, rid string) ([]model.TrialResult, error) {
	var records []TrialRecord

	err := r.db.WithContext(ctx).
		Where("rid = ?", rid).
		Order("id ASC").
		Find(&records).Error

	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "query trials", err)
	}

	trials := make([]model.TrialResult, len(records))
	for i, rec := range records {
		trials[i] = rec.ToModel()
	}

	return trials, nil
}

// GormFindingRepository implements FindingRepository using GORM.
type GormFindingRepository struct {
	db *gorm.DB
}

// NewGormFindingRepository creates a new GormFindingRepository.
func NewGormFindingRepository(db *gorm.DB) *GormFindingRepository {
	return &GormFindingRepository{db: db}
}

// SaveFindings saves advisor findings. Findings without a message are
// skipped.
func (r *GormFindingRepository) SaveFindings(ctx context.Context, findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for _, f := range findings {
			if f.Message == "" {
				continue
			}

			details := JSONField("{}")
			if f.Details != nil {
				details = JSONField(f.Details)
			}

			record := &FindingRecord{
				RID:       f.RunUUID,
				Strategy:  f.Strategy,
				Type:      f.Type,
				Severity:  f.Severity,
				Message:   f.Message,
				CaseName:  f.CaseName,
				Details:   details,
				CreatedAt: now,
				UpdatedAt: now,
			}

			if err := tx.Create(record).Error; err != nil {
				return errors.Wrap(errors.CodeDatabaseError, "insert finding", err)
			}
		}

		return nil
	})
}

// GetFindingsByRunUUID retrieves findings for a run.
func (r *GormFindingRepository) GetFindingsByRunUUID(ctx context.Context, rid string) ([]model.Finding, error) {
	var records []FindingRecord

	err := r.db.WithContext(ctx).Where("rid = ?", rid).Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "query findings", err)
	}

	findings := make([]model.Finding, len(records))
	for i, rec := range records {
		findings[i] = rec.ToModel()
	}

	return findings, nil
}

// GetFindingRules retrieves all active threshold rules.
func (r *GormFindingRepository) GetFindingRules(ctx context.Context) ([]model.FindingRule, error) {
	var records []FindingRuleRecord

	err := r.db.WithContext(ctx).Where("deleted IS NULL").Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "query finding rules", err)
	}

	rules := make([]model.FindingRule, len(records))
	for i, rec := range records {
		rules[i] = rec.ToModel()
	}

	return rules, nil
}
