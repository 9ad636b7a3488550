package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	benchmock "github.com/sortbench/internal/mock"
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

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := repository.NewGormDB(&repository.DBConfig{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	repos := repository.NewRepositories(db, "sqlite", "test")
	t.Cleanup(func() { repos.Close() })
	return repos
}

// newTestProcessor builds a processor over an in-memory database and a
// local storage root. Tests may tweak the returned config before
// calling Process.
func newTestProcessor(t *testing.T) (*DefaultJobProcessor, *repository.Repositories, storage.Storage, *config.Config) {
	t.Helper()
	repos := newTestRepos(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Benchmark: config.BenchmarkConfig{DataDir: t.TempDir()},
		Report:    config.ReportConfig{Formats: []string{"text"}, TopN: 3, Charts: true},
	}

	proc := NewDefaultJobProcessor(&ProcessorConfig{
		Config:  cfg,
		Storage: store,
		Repos:   repos,
		Logger:  utils.NewDefaultLogger(utils.LevelDebug, io.Discard),
	})
	return proc, repos, store, cfg
}

// suiteParams keeps test jobs small enough to finish in milliseconds.
func suiteParams() model.JobParams {
	return model.JobParams{
		Trials:     2,
		Sizes:      []int{256, 1024},
		Kinds:      []string{"random"},
		Strategies: []string{"sequential", "parallel"},
		Seed:       42,
		Verify:     true,
	}
}

func TestProcessor_Process_SuiteJob(t *testing.T) {
	proc, repos, store, cfg := newTestProcessor(t)
	ctx := context.Background()

	dbJob := model.NewJob(0, "jid-suite-1", model.JobTypeSuite)
	dbJob.Params = suiteParams()
	dbJob.UserName = "tester"
	require.NoError(t, repos.Job.CreateJob(ctx, dbJob))
	require.NotZero(t, dbJob.ID)

	job := &Job{ID: dbJob.ID, UUID: dbJob.JobUUID, Type: dbJob.Type, Params: dbJob.Params}
	require.NoError(t, proc.Process(ctx, job, nil))

	// The job row reached its terminal state.
	stored, err := repos.Job.GetJobByID(ctx, dbJob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.Equal(t, model.RunStatusCompleted, stored.RunStatus)

	// The run row carries the aggregated result.
	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "jid-suite-1", run.JobUUID)
	assert.Equal(t, int64(8), run.TotalTrials) // 2 cases x 2 strategies x 2 trials
	require.Contains(t, run.Result, "sequential")
	require.Contains(t, run.Result, "parallel")

	rid := run.RunUUID
	require.NotEmpty(t, rid)
	assert.Equal(t, storage.RunKey(rid, "report.json"), stored.ResultFile)

	// Baseline cases aggregate with speedup 1.0 and verify clean.
	for _, c := range run.Result["sequential"].Cases {
		assert.InDelta(t, 1.0, c.Speedup, 1e-9)
		assert.True(t, c.Verified)
	}

	// Artifacts were uploaded under the run prefix, and the stored
	// result references them.
	for _, name := range []string{"report.json", "report.txt", report.ChartFileName} {
		ok, err := store.Exists(ctx, storage.RunKey(rid, name))
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	assert.Equal(t, stored.ResultFile, run.Result["sequential"].ReportFile)
	assert.Equal(t, storage.RunKey(rid, report.ChartFileName), run.Result["sequential"].ChartFile)

	// One trial row per measurement.
	trials, err := repos.Run.GetTrials(ctx, rid)
	require.NoError(t, err)
	assert.Len(t, trials, 8)

	// The scratch directory is gone.
	_, err = os.Stat(cfg.GetRunDir(rid))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessor_Process_EmptyRun(t *testing.T) {
	repos := newTestRepos(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// A filter that rejects every case makes the run empty.
	f := filter.NewCaseFilter()
	f.AddExcludeContains("random")

	cfg := &config.Config{
		Benchmark: config.BenchmarkConfig{DataDir: t.TempDir()},
		Report:    config.ReportConfig{Formats: []string{"text"}, TopN: 3},
	}
	proc := NewDefaultJobProcessor(&ProcessorConfig{
		Config:  cfg,
		Storage: store,
		Repos:   repos,
		Filter:  f,
		Logger:  utils.NewDefaultLogger(utils.LevelDebug, io.Discard),
	})

	ctx := context.Background()
	dbJob := model.NewJob(0, "jid-empty-1", model.JobTypeSuite)
	dbJob.Params = suiteParams()
	require.NoError(t, repos.Job.CreateJob(ctx, dbJob))

	job := &Job{ID: dbJob.ID, UUID: dbJob.JobUUID, Type: dbJob.Type, Params: dbJob.Params}
	require.NoError(t, proc.Process(ctx, job, nil))

	stored, err := repos.Job.GetJobByID(ctx, dbJob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.Equal(t, model.RunStatusEmpty, stored.RunStatus)
	assert.Empty(t, stored.ResultFile)

	// The empty run is still recorded so the jid->rid mapping survives.
	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "jid-empty-1", runs[0].JobUUID)
	assert.Equal(t, int64(0), runs[0].TotalTrials)
}

func TestProcessor_Process_SweepJob(t *testing.T) {
	proc, repos, _, _ := newTestProcessor(t)
	ctx := context.Background()

	dbJob := model.NewJob(0, "jid-sweep-1", model.JobTypeSweep)
	dbJob.Params = model.JobParams{
		Trials:      1,
		Sizes:       []int{512},
		Kinds:       []string{"random"},
		Parallelism: 2,
		Seed:        7,
	}
	require.NoError(t, repos.Job.CreateJob(ctx, dbJob))

	job := &Job{ID: dbJob.ID, UUID: dbJob.JobUUID, Type: model.JobTypeSweep, Params: dbJob.Params}
	require.NoError(t, proc.Process(ctx, job, nil))

	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]

	// Each sweep point lands under its own strategy key.
	require.Contains(t, run.Result, "parallel-p1")
	require.Contains(t, run.Result, "parallel-p2")
	assert.Equal(t, int64(2), run.TotalTrials)

	p1 := run.Result["parallel-p1"]
	require.Len(t, p1.Cases, 1)
	assert.Equal(t, "parallel-p1", p1.Cases[0].Strategy)
	assert.InDelta(t, 1.0, p1.Cases[0].Speedup, 1e-9)

	p2 := run.Result["parallel-p2"]
	require.Len(t, p2.Cases, 1)
	assert.Greater(t, p2.Cases[0].Speedup, 0.0)

	stored, err := repos.Job.GetJobByID(ctx, dbJob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, stored.RunStatus)
}

func TestProcessor_Process_UntrackedJob(t *testing.T) {
	proc, repos, _, _ := newTestProcessor(t)
	ctx := context.Background()

	// Jobs submitted over HTTP or the in-process queue have no row.
	job := &Job{
		ID:   0,
		UUID: "jid-http-1",
		Type: model.JobTypeSuite,
		Params: model.JobParams{
			Trials:     1,
			Sizes:      []int{256},
			Kinds:      []string{"random"},
			Strategies: []string{"sequential"},
		},
	}
	require.NoError(t, proc.Process(ctx, job, nil))

	// No job row was created; the run record is the only trace.
	_, err := repos.Job.GetJobByUUID(ctx, "jid-http-1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "jid-http-1", runs[0].JobUUID)
}

func TestProcessor_Process_Webhook(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	proc, _, _, cfg := newTestProcessor(t)
	cfg.Webhook = config.WebhookConfig{URL: server.URL, Enabled: true, Timeout: 5}

	job := &Job{
		UUID: "jid-hook-1",
		Type: model.JobTypeSuite,
		Params: model.JobParams{
			Trials:     1,
			Sizes:      []int{256},
			Kinds:      []string{"random"},
			Strategies: []string{"sequential"},
		},
	}
	require.NoError(t, proc.Process(context.Background(), job, nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 1)
	assert.Equal(t, "jid-hook-1", payloads[0]["jid"])
	assert.Equal(t, "completed", payloads[0]["status"])
	assert.NotEmpty(t, payloads[0]["rid"])
	assert.EqualValues(t, 1, payloads[0]["total_trials"])
}

func TestSweepPoints(t *testing.T) {
	tests := []struct {
		max      int
		expected []int
	}{
		{1, []int{1}},
		{2, []int{1, 2}},
		{3, []int{1, 2, 3}},
		{4, []int{1, 2, 4}},
		{6, []int{1, 2, 4, 6}},
		{8, []int{1, 2, 4, 8}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sweepPoints(tt.max), "max=%d", tt.max)
	}
}

func TestWithCanonicalFormat(t *testing.T) {
	t.Run("AppendsJSON", func(t *testing.T) {
		formats := []string{"text"}
		assert.Equal(t, []string{"text", "json"}, withCanonicalFormat(formats))
		// The input slice is not mutated.
		assert.Equal(t, []string{"text"}, formats)
	})

	t.Run("KeepsExistingJSON", func(t *testing.T) {
		formats := []string{"json", "csv"}
		assert.Equal(t, formats, withCanonicalFormat(formats))
	})

	t.Run("EmptyFormats", func(t *testing.T) {
		assert.Equal(t, []string{"json"}, withCanonicalFormat(nil))
	})
}

func TestBaselineFor(t *testing.T) {
	proc, _, _, _ := newTestProcessor(t)

	assert.Equal(t, stats.DefaultBaseline, proc.baselineFor(&Job{Type: model.JobTypeSuite}))
	assert.Equal(t, stats.DefaultBaseline, proc.baselineFor(&Job{Type: model.JobTypeSingle}))
	assert.Equal(t, "parallel-p1", proc.baselineFor(&Job{Type: model.JobTypeSweep}))
}

func TestProcessor_Process_UploadFailureDoesNotFailJob(t *testing.T) {
	repos := newTestRepos(t)

	// Every artifact upload fails; the run is still recorded and the
	// job still completes, only the web view is degraded.
	store := &benchmock.MockStorage{}
	store.ExpectAnyUploadFile(assert.AnError)

	cfg := &config.Config{
		Benchmark: config.BenchmarkConfig{DataDir: t.TempDir()},
		Report:    config.ReportConfig{Formats: []string{"text"}, TopN: 3, Charts: true},
	}
	proc := NewDefaultJobProcessor(&ProcessorConfig{
		Config:  cfg,
		Storage: store,
		Repos:   repos,
		Logger:  utils.NewDefaultLogger(utils.LevelDebug, io.Discard),
	})

	ctx := context.Background()
	dbJob := model.NewJob(0, "jid-upload-1", model.JobTypeSuite)
	dbJob.Params = model.JobParams{
		Trials:     1,
		Sizes:      []int{256},
		Kinds:      []string{"random"},
		Strategies: []string{"sequential"},
		Seed:       3,
		Verify:     true,
	}
	require.NoError(t, repos.Job.CreateJob(ctx, dbJob))

	job := &Job{ID: dbJob.ID, UUID: dbJob.JobUUID, Type: dbJob.Type, Params: dbJob.Params}
	require.NoError(t, proc.Process(ctx, job, nil))

	stored, err := repos.Job.GetJobByID(ctx, dbJob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.Equal(t, model.RunStatusCompleted, stored.RunStatus)
	assert.NotEmpty(t, stored.ResultFile)

	store.AssertExpectations(t)
}
