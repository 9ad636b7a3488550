package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sortbench/internal/service"
	"github.com/sortbench/internal/webui"
	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/telemetry"
	"github.com/sortbench/pkg/utils"
)

// Version information (injected by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configPath string
	logDir     string
	verbose    bool
)

// binName returns the base name of the current executable
func binName() string {
	return filepath.Base(os.Args[0])
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sortbench-daemon",
	Short: "A benchmark job processing service",
	Long: `sortbench-daemon is a background service for running sort benchmark jobs.

It pulls jobs from a configurable source (database table, HTTP intake, or
spool directory), executes the benchmark trials, and persists the aggregated
results, findings, and report artifacts. An optional embedded web UI serves
the persisted runs.`,
	RunE: runService,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", binName(), Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// Set dynamic example
	bin := binName()
	rootCmd.Example = `  # Start service with config file
  ` + bin + ` -c /etc/sortbench/config.yaml

  # Start with a log directory and verbose output
  ` + bin + ` -c ./config.yaml -d /var/log/sortbench -v

  # Queue a suite job for a running daemon
  ` + bin + ` submit -c ./config.yaml --kinds random,sawtooth`

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Root command flags
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	rootCmd.Flags().StringVarP(&logDir, "log-dir", "d", "", "Directory for log files (stdout only if empty)")

	// Mark required flags
	rootCmd.MarkFlagRequired("config")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	utils.SetGlobalLogger(logger)

	logger.Info("Starting sortbench daemon...")
	logger.Info("Version: %s, Commit: %s, Built: %s", Version, GitCommit, BuildTime)
	logger.Info("Benchmark version: %s", cfg.Benchmark.Version)
	logger.Info("Job source: %s", cfg.Scheduler.Source)
	logger.Info("Workers: %d (%d interactive slots)", cfg.Scheduler.WorkerCount, cfg.Scheduler.InteractiveSlots)
	logger.Info("Database: %s", describeDatabase(&cfg.Database))
	logger.Info("Storage: %s", cfg.Storage.Type)

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing stays a no-op unless enabled through OTEL_* variables
	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		logger.Warn("Telemetry init failed, traces disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown error: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create and initialize service
	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	// Start service
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	// Mount the web UI on the service's repositories and storage
	var web *webui.Server
	if cfg.WebUI.Enabled {
		web = webui.NewServer(svc.Repositories().Run, svc.Storage(), cfg.WebUI.ListenAddr, logger)
		go func() {
			logger.Info("Web UI listening on %s", cfg.WebUI.ListenAddr)
			if err := web.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Web UI error: %v", err)
			}
		}()
	}

	logger.Info("Service started, waiting for jobs...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	// Stop web UI first so in-flight requests finish against live repos
	if web != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := web.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Web UI shutdown error: %v", err)
		}
		cancelShutdown()
	}

	// Stop service
	if err := svc.Stop(); err != nil {
		logger.Error("Error during shutdown: %v", err)
	}

	logger.Info("Service stopped")
	return nil
}

// buildLogger builds the daemon logger: stdout, plus a log file when a
// log directory is given. The verbose flag overrides the configured
// level.
func buildLogger(cfg *config.Config) (utils.Logger, error) {
	level := utils.ParseLogLevel(cfg.Log.Level)
	if verbose {
		level = utils.LevelDebug
	}

	var out io.Writer = os.Stdout
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(filepath.Join(logDir, "sortbench-daemon.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	return utils.NewDefaultLogger(level, out), nil
}

// describeDatabase renders a connection summary without credentials.
func describeDatabase(cfg *config.DatabaseConfig) string {
	if cfg.Type == "sqlite" || cfg.Type == "" {
		return fmt.Sprintf("sqlite (%s)", cfg.Path)
	}
	return fmt.Sprintf("%s://%s:%d/%s", cfg.Type, cfg.Host, cfg.Port, cfg.Database)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
