package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	return db
}

func insertPendingJob(t *testing.T, db *gorm.DB, jid string) *BenchmarkJob {
	t.Helper()

	job := &BenchmarkJob{
		JID:      jid,
		Type:     model.JobTypeSuite,
		Status:   model.JobStatusPending,
		UserName: "tester",
		Params:   JSONField(`{"trials":3,"sizes":[1024]}`),
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestGormJobRepository_GetPendingJobs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	t.Run("GetPendingJobs_Empty", func(t *testing.T) {
		jobs, err := repo.GetPendingJobs(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("GetPendingJobs_OldestFirst", func(t *testing.T) {
		insertPendingJob(t, db, "job-1")
		insertPendingJob(t, db, "job-2")

		jobs, err := repo.GetPendingJobs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "job-1", jobs[0].JobUUID)
		assert.Equal(t, "job-2", jobs[1].JobUUID)
		assert.Equal(t, 3, jobs[0].Params.Trials)
	})

	t.Run("GetPendingJobs_SkipsNonPending", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-3")
		require.NoError(t, db.Model(job).Update("status", model.JobStatusRunning).Error)

		jobs, err := repo.GetPendingJobs(ctx, 10)
		require.NoError(t, err)
		for _, j := range jobs {
			assert.NotEqual(t, "job-3", j.JobUUID)
		}
	})
}

func TestGormJobRepository_GetJob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	t.Run("GetJobByID_NotFound", func(t *testing.T) {
		job, err := repo.GetJobByID(ctx, 999)
		assert.Error(t, err)
		assert.Nil(t, job)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("GetJobByID_Success", func(t *testing.T) {
		created := insertPendingJob(t, db, "job-by-id")

		job, err := repo.GetJobByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "job-by-id", job.JobUUID)
	})

	t.Run("GetJobByUUID_NotFound", func(t *testing.T) {
		job, err := repo.GetJobByUUID(ctx, "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, job)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("GetJobByUUID_Success", func(t *testing.T) {
		created := insertPendingJob(t, db, "job-by-uuid")

		job, err := repo.GetJobByUUID(ctx, "job-by-uuid")
		require.NoError(t, err)
		assert.Equal(t, created.ID, job.ID)
	})
}

func TestGormJobRepository_CreateJob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	job := model.NewJob(0, "job-created", model.JobTypeSingle)
	job.UserName = "tester"
	job.Params = model.JobParams{Trials: 5, Sizes: []int{1 << 10}, Strategies: []string{"parallel"}}

	require.NoError(t, repo.CreateJob(ctx, job))
	assert.NotZero(t, job.ID)

	stored, err := repo.GetJobByUUID(ctx, "job-created")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, stored.Status)
	assert.Equal(t, 5, stored.Params.Trials)
	assert.Equal(t, []string{"parallel"}, stored.Params.Strategies)
}

func TestGormJobRepository_ClaimJob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	t.Run("Claim_NotFound", func(t *testing.T) {
		claimed, err := repo.ClaimJob(ctx, 999)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("Claim_Success", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-claim")

		claimed, err := repo.ClaimJob(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, claimed)

		var updated BenchmarkJob
		require.NoError(t, db.First(&updated, job.ID).Error)
		assert.Equal(t, model.JobStatusRunning, updated.Status)
		assert.NotNil(t, updated.BeginTime)
	})

	t.Run("Claim_AlreadyClaimed", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-claim-twice")

		claimed, err := repo.ClaimJob(ctx, job.ID)
		require.NoError(t, err)
		require.True(t, claimed)

		claimed, err = repo.ClaimJob(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestGormJobRepository_CompleteJob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	t.Run("Complete_NotFound", func(t *testing.T) {
		err := repo.CompleteJob(ctx, 999, model.RunStatusCompleted, "result.json")
		assert.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("Complete_Success", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-complete")

		err := repo.CompleteJob(ctx, job.ID, model.RunStatusCompleted, "runs/job-complete/report.json")
		require.NoError(t, err)

		var updated BenchmarkJob
		require.NoError(t, db.First(&updated, job.ID).Error)
		assert.Equal(t, model.JobStatusCompleted, updated.Status)
		assert.Equal(t, model.RunStatusCompleted, updated.RunStatus)
		assert.Equal(t, "runs/job-complete/report.json", updated.ResultFile)
		assert.NotNil(t, updated.EndTime)
	})

	t.Run("Complete_EmptyRun", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-empty-run")

		err := repo.CompleteJob(ctx, job.ID, model.RunStatusEmpty, "")
		require.NoError(t, err)

		var updated BenchmarkJob
		require.NoError(t, db.First(&updated, job.ID).Error)
		assert.Equal(t, model.RunStatusEmpty, updated.RunStatus)
	})
}

func TestGormJobRepository_FailJob(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()

	t.Run("Fail_NotFound", func(t *testing.T) {
		err := repo.FailJob(ctx, 999, "boom")
		assert.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("Fail_Success", func(t *testing.T) {
		job := insertPendingJob(t, db, "job-fail")

		require.NoError(t, repo.FailJob(ctx, job.ID, "dataset generation cancelled"))

		var updated BenchmarkJob
		require.NoError(t, db.First(&updated, job.ID).Error)
		assert.Equal(t, model.JobStatusFailed, updated.Status)
		assert.Equal(t, model.RunStatusFailed, updated.RunStatus)
		assert.Equal(t, "dataset generation cancelled", updated.StatusInfo)
	})
}

func sampleRun(rid, jid string) *model.RunResult {
	return &model.RunResult{
		RunUUID: rid,
		JobUUID: jid,
		Machine: model.MachineInfo{
			Hostname:   "bench-01",
			GoVersion:  "go1.24.0",
			GOOS:       "linux",
			GOARCH:     "amd64",
			NumCPU:     8,
			GOMAXPROCS: 8,
		},
		Result: map[string]model.StrategyResult{
			"parallel": {
				Cases: []model.CaseResult{{
					Case:     "random-1m",
					Strategy: "parallel",
					Kind:     "random",
					Size:     1 << 20,
					Trials:   5,
					Timing:   model.TimingSummary{Mean: 12 * time.Millisecond},
					Verified: true,
				}},
				TotalTrials: 5,
			},
		},
		TotalTrials: 5,
		CompletedAt: time.Now(),
	}
}

func TestGormRunRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db, "1.2.0")
	ctx := context.Background()

	t.Run("SaveRun_Success", func(t *testing.T) {
		require.NoError(t, repo.SaveRun(ctx, sampleRun("run-1", "job-1")))
	})

	t.Run("GetRunByUUID_Success", func(t *testing.T) {
		res, err := repo.GetRunByUUID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "run-1", res.RunUUID)
		assert.Equal(t, "job-1", res.JobUUID)
		assert.Equal(t, "1.2.0", res.Version)
		assert.Equal(t, int64(5), res.TotalTrials)
		assert.Equal(t, "linux", res.Machine.GOOS)
		require.Contains(t, res.Result, "parallel")
		assert.Equal(t, 12*time.Millisecond, res.Result["parallel"].Cases[0].Timing.Mean)
		assert.False(t, res.CompletedAt.IsZero())
	})

	t.Run("GetRunByUUID_NotFound", func(t *testing.T) {
		res, err := repo.GetRunByUUID(ctx, "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("ListRuns_NewestFirst", func(t *testing.T) {
		require.NoError(t, repo.SaveRun(ctx, sampleRun("run-2", "job-2")))
		require.NoError(t, repo.SaveRun(ctx, sampleRun("run-3", "job-3")))

		runs, err := repo.ListRuns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-3", runs[0].RunUUID)
		assert.Equal(t, "run-2", runs[1].RunUUID)
	})
}

func TestGormRunRepository_Trials(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db, "1.2.0")
	ctx := context.Background()

	t.Run("SaveTrials_Empty", func(t *testing.T) {
		require.NoError(t, repo.SaveTrials(ctx, "run-1", nil))
	})

	t.Run("SaveTrials_Roundtrip", func(t *testing.T) {
		trials := []model.TrialResult{
			{Case: "random-1m", Strategy: "parallel", Trial: 0, WallTime: 11 * time.Millisecond, AllocBytes: 8 << 20, Allocs: 10, GoroutinePeak: 9, Verified: true},
			{Case: "random-1m", Strategy: "parallel", Trial: 1, WallTime: 13 * time.Millisecond, AllocBytes: 8 << 20, Allocs: 11, GoroutinePeak: 8, Verified: true},
		}

		require.NoError(t, repo.SaveTrials(ctx, "run-1", trials))

		stored, err := repo.GetTrials(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, trials[0], stored[0])
		assert.Equal(t, trials[1], stored[1])
	})

	t.Run("GetTrials_EmptyRun", func(t *testing.T) {
		stored, err := repo.GetTrials(ctx, "no-such-run")
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}

func TestGormFindingRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormFindingRepository(db)
	ctx := context.Background()

	t.Run("SaveFindings_Empty", func(t *testing.T) {
		require.NoError(t, repo.SaveFindings(ctx, []model.Finding{}))
	})

	t.Run("SaveFindings_SkipEmptyMessage", func(t *testing.T) {
		findings := []model.Finding{
			{RunUUID: "run-f1", Strategy: "parallel", Message: ""},
			{
				RunUUID:  "run-f1",
				Strategy: "parallel",
				Type:     "speedup_saturation",
				Severity: model.SeverityWarn,
				Message:  "case random-1m: speedup 1.30x is under the parallel bound",
				CaseName: "random-1m",
				Details:  json.RawMessage(`{"speedup":1.3}`),
			},
		}

		require.NoError(t, repo.SaveFindings(ctx, findings))

		stored, err := repo.GetFindingsByRunUUID(ctx, "run-f1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "speedup_saturation", stored[0].Type)
		assert.Equal(t, model.SeverityWarn, stored[0].Severity)
		assert.JSONEq(t, `{"speedup":1.3}`, string(stored[0].Details))
	})

	t.Run("GetFindingRules_ActiveOnly", func(t *testing.T) {
		deleted := int64(1)
		require.NoError(t, db.Create(&FindingRuleRecord{
			Type:      "mean_regression",
			Operation: ">",
			Target:    "mean_ms",
			Threshold: 100,
			Message:   "mean above 100ms",
		}).Error)
		require.NoError(t, db.Create(&FindingRuleRecord{
			Type:      "old_rule",
			Operation: ">",
			Target:    "mean_ms",
			Threshold: 50,
			Message:   "retired",
			Deleted:   &deleted,
		}).Error)

		rules, err := repo.GetFindingRules(ctx)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "mean_regression", rules[0].Type)
	})
}
