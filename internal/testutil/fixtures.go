// Package testutil provides shared fixtures for tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/pkg/model"
)

// OpenRepositories opens an in-memory database with the full schema
// migrated. The connection is closed when the test completes.
func OpenRepositories(t *testing.T) *repository.Repositories {
	t.Helper()

	gormDB, err := repository.NewGormDB(&repository.DBConfig{Type: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repos := repository.NewRepositories(gormDB, "sqlite", "test")
	t.Cleanup(func() {
		repos.Close()
	})
	return repos
}

// OpenLocalStorage opens an artifact store rooted in a temp directory.
func OpenLocalStorage(t *testing.T) storage.Storage {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test storage: %v", err)
	}
	return store
}

// SampleRun builds a two-strategy run result shaped like the
// aggregation output: a sequential baseline at speedup 1.0 and a
// parallel strategy at 2.0 over the same case.
func SampleRun(rid string, completedAt time.Time) *model.RunResult {
	return &model.RunResult{
		RunUUID: rid,
		JobUUID: "job-" + rid,
		Machine: model.MachineInfo{Hostname: "bench-01", GOOS: "linux", NumCPU: 8},
		Version: "test",
		Result: map[string]model.StrategyResult{
			"sequential": {
				Cases:       []model.CaseResult{SampleCase("sequential", 2*time.Millisecond, 1.0, 1)},
				TotalTrials: 3,
			},
			"parallel": {
				Cases:       []model.CaseResult{SampleCase("parallel", time.Millisecond, 2.0, 9)},
				TotalTrials: 3,
			},
		},
		TotalTrials: 6,
		CompletedAt: completedAt,
	}
}

// SampleCase builds one aggregated case result for the random-1k case.
func SampleCase(strategy string, mean time.Duration, speedup float64, allocs int64) model.CaseResult {
	return model.CaseResult{
		Case:     "random-1k",
		Strategy: strategy,
		Kind:     "random",
		Size:     1024,
		Trials:   3,
		Timing: model.TimingSummary{
			Min:    mean / 2,
			Max:    mean * 2,
			Mean:   mean,
			Median: mean,
			P95:    mean * 3 / 2,
		},
		AllocBytes: 8192,
		Allocs:     allocs,
		Speedup:    speedup,
		Verified:   true,
	}
}

// SampleTrials builds the per-trial rows matching SampleRun.
func SampleTrials() []model.TrialResult {
	trials := make([]model.TrialResult, 0, 6)
	for _, strategy := range []string{"sequential", "parallel"} {
		mean := 2 * time.Millisecond
		if strategy == "parallel" {
			mean = time.Millisecond
		}
		for i := 0; i < 3; i++ {
			trials = append(trials, model.TrialResult{
				Case:       "random-1k",
				Strategy:   strategy,
				Trial:      i,
				WallTime:   mean,
				AllocBytes: 8192,
				Allocs:     1,
				Verified:   true,
			})
		}
	}
	return trials
}

// WriteSpoolJob drops a job file into a spool directory the way the
// queue source expects it, named after the job UUID.
func WriteSpoolJob(t *testing.T, dir string, job *model.Job) string {
	t.Helper()

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("failed to marshal job: %v", err)
	}
	path := filepath.Join(dir, job.JobUUID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write spool job: %v", err)
	}
	return path
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}
