package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/scheduler"
	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/model"
)

var (
	// Submit command flags
	submitType        string
	submitUser        string
	submitTrials      int
	submitWarmup      int
	submitParallelism int
	submitDepth       int
	submitSeed        int64
	submitSizes       []int
	submitKinds       []string
	submitStrategies  []string
	submitVerify      bool
)

// submitCmd queues a benchmark job for a running daemon
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a benchmark job in the daemon's database",
	Long: `Queue a benchmark job by inserting a pending row into the job table.

A daemon polling the same database picks the job up on its next poll and
runs it. The command prints the job UUID, which later identifies the run.`,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	// Set dynamic example
	bin := binName()
	submitCmd.Example = `  # Queue a default suite
  ` + bin + ` submit -c ./config.yaml

  # Queue a sweep over one large case
  ` + bin + ` submit -c ./config.yaml --type sweep --sizes 4194304 --parallelism 16

  # Queue a suite for specific shapes and strategies
  ` + bin + ` submit -c ./config.yaml --kinds random,reversed --strategies sequential,parallel,stdlib`

	submitCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	submitCmd.MarkFlagRequired("config")

	submitCmd.Flags().StringVar(&submitType, "type", "suite", "Job type: suite, single or sweep")
	submitCmd.Flags().StringVar(&submitUser, "user", "cli", "User name recorded on the job")
	submitCmd.Flags().IntVar(&submitTrials, "trials", 0, "Measured trials per case (0 = default)")
	submitCmd.Flags().IntVar(&submitWarmup, "warmup", 0, "Warmup runs before measurement")
	submitCmd.Flags().IntVar(&submitParallelism, "parallelism", 0, "Worker hint for parallel strategies (0 = GOMAXPROCS)")
	submitCmd.Flags().IntVar(&submitDepth, "depth", 0, "Fork depth budget (0 derives it from parallelism)")
	submitCmd.Flags().Int64Var(&submitSeed, "seed", 42, "Seed for dataset generation")
	submitCmd.Flags().IntSliceVar(&submitSizes, "sizes", nil, "Input sizes (defaults to 64k and 1m)")
	submitCmd.Flags().StringSliceVar(&submitKinds, "kinds", nil, "Dataset kinds (defaults to random)")
	submitCmd.Flags().StringSliceVar(&submitStrategies, "strategies", nil, "Strategies to benchmark (defaults to sequential and parallel)")
	submitCmd.Flags().BoolVar(&submitVerify, "verify", true, "Verify every trial output")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	jobType, err := parseJobType(submitType)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	repos, err := openRepositories(cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	params := model.JobParams{
		Trials:      submitTrials,
		Warmup:      submitWarmup,
		Parallelism: submitParallelism,
		DepthBudget: submitDepth,
		Sizes:       submitSizes,
		Kinds:       submitKinds,
		Strategies:  submitStrategies,
		Seed:        submitSeed,
		Verify:      submitVerify,
	}

	submitter := scheduler.NewJobSubmitter(repos.Job)
	job, err := submitter.Submit(context.Background(), jobType, params, submitUser)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	fmt.Printf("Job %s queued (type: %s, user: %s)\n", job.JobUUID, job.Type, job.UserName)
	return nil
}

func parseJobType(s string) (model.JobType, error) {
	switch strings.ToLower(s) {
	case "suite", "0":
		return model.JobTypeSuite, nil
	case "single", "1":
		return model.JobTypeSingle, nil
	case "sweep", "2":
		return model.JobTypeSweep, nil
	default:
		return 0, fmt.Errorf("unknown job type: %s (valid: suite, single, sweep)", s)
	}
}

// openRepositories connects to the database named by the configuration.
func openRepositories(cfg *config.Config) (*repository.Repositories, error) {
	gormDB, err := repository.NewGormDB(&repository.DBConfig{
		Type:     cfg.Database.Type,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Path:     cfg.Database.Path,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repository.NewRepositories(gormDB, cfg.Database.Type, cfg.Benchmark.Version), nil
}
