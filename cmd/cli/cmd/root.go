package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sortbench/pkg/profiling"
	"github.com/sortbench/pkg/utils"
)

var (
	// Global flags
	verbose bool
	logger  utils.Logger

	// Profiling flags
	profEnabled     bool
	profMode        string
	profDir         string
	profTypes       string
	profInterval    string
	profCPUDuration string
	profMaxFiles    int
	profAddr        string

	// Profile collector
	profCollector *profiling.Collector
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sortbench",
	Short: "A parallel merge sort benchmarking tool",
	Long: `sortbench measures a buffer-alternating parallel merge sort against
sequential and standard-library baselines.

It generates datasets of configurable shapes, times every trial, aggregates
speedups against a baseline strategy, and renders reports in several formats.
Results can be persisted to a local run database and explored in a web UI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger based on verbose flag
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)

		// Start profile collection if enabled
		if profEnabled {
			cfg, err := buildProfilingConfig()
			if err != nil {
				return err
			}

			collector, err := profiling.NewCollector(cfg)
			if err != nil {
				return err
			}

			if err := collector.Start(); err != nil {
				return err
			}

			profCollector = collector
			logger.Info("profile collection started (mode: %s, dir: %s)", cfg.Mode, cfg.OutputDir)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Stop profile collector
		if profCollector != nil {
			logger.Info("Stopping profile collection...")
			if err := profCollector.Stop(); err != nil {
				logger.Warn("Failed to stop profile collector: %v", err)
			}
			logger.Info("profile data saved to: %s", profCollector.Writer().OutputDir())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Profiling flags
	rootCmd.PersistentFlags().BoolVar(&profEnabled, "profile", false, "Enable pprof profiling of the tool itself")
	rootCmd.PersistentFlags().StringVar(&profMode, "profile-mode", "file", "Profiling mode: file (periodic snapshots) or http (on-demand)")
	rootCmd.PersistentFlags().StringVar(&profDir, "profile-dir", "./profiles", "Output directory for profile data")
	rootCmd.PersistentFlags().StringVar(&profTypes, "profile-types", "cpu,heap,goroutine", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")
	rootCmd.PersistentFlags().StringVar(&profInterval, "profile-interval", "30s", "Snapshot interval for file mode")
	rootCmd.PersistentFlags().StringVar(&profCPUDuration, "profile-cpu-duration", "10s", "CPU profile duration per snapshot")
	rootCmd.PersistentFlags().IntVar(&profMaxFiles, "profile-max-files", 10, "Snapshot files kept per profile type before rotation")
	rootCmd.PersistentFlags().StringVar(&profAddr, "profile-addr", ":6060", "HTTP listen address for http mode")

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Benchmark the default strategies on random data
  ` + binName + ` run

  # Compare three strategies over two dataset shapes
  ` + binName + ` run -s sequential,parallel,stdlib -k random,sawtooth --sizes 64k,1m

  # Persist the run and explore it in the browser
  ` + binName + ` run --persist --serve

  # Re-render a stored run as markdown
  ` + binName + ` report --format markdown

  # Serve previously persisted runs
  ` + binName + ` serve -d ./output --addr :8080

  # Profile the benchmark harness while it runs
  ` + binName + ` run --profile --profile-types cpu,heap`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// buildProfilingConfig builds profiling configuration from command line flags.
func buildProfilingConfig() (*profiling.Config, error) {
	cfg := profiling.DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = profDir

	// Parse mode
	switch profMode {
	case "file":
		cfg.Mode = profiling.ModeFile
	case "http":
		cfg.Mode = profiling.ModeHTTP
	default:
		return nil, fmt.Errorf("invalid profiling mode: %q (valid: file, http)", profMode)
	}

	// Parse profile types
	profiles, err := profiling.ParseProfileTypes(profTypes)
	if err != nil {
		return nil, err
	}
	cfg.Profiles = profiles

	// Parse interval
	interval, err := time.ParseDuration(profInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid profile interval: %w", err)
	}
	cfg.FileConfig.Interval = interval

	// Parse CPU duration
	cpuDuration, err := time.ParseDuration(profCPUDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid profile CPU duration: %w", err)
	}
	cfg.FileConfig.CPUDuration = cpuDuration
	cfg.FileConfig.MaxFiles = profMaxFiles

	// HTTP config
	cfg.HTTPConfig.Addr = profAddr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
