package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sortbench/internal/report"
	"github.com/sortbench/internal/repository"
	"github.com/sortbench/pkg/model"
)

var (
	// Report command flags
	reportDataDir string
	reportRun     string
	reportFormat  string
	reportOut     string
	listStored    bool
	listLimit     int
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render a persisted run in another format",
	Long: `Re-render a run from the local run database without re-executing it.

The report command loads a persisted run and renders it in any supported
format. With no run UUID it renders the most recent run. With --list it
prints the persisted runs instead.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Set dynamic example using actual binary name
	binName := BinName()
	reportCmd.Example = `  # Render the latest run as text
  ` + binName + ` report

  # Render a specific run as markdown into a file
  ` + binName + ` report --run 9b2e4a31 --format markdown -o report.md

  # List persisted runs
  ` + binName + ` report --list`

	reportCmd.Flags().StringVarP(&reportDataDir, "data-dir", "d", "./output", "Data directory containing persisted runs")
	reportCmd.Flags().StringVar(&reportRun, "run", "", "Run UUID (defaults to the latest run)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatText, "Report format: text,json,markdown,csv")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "Output file (defaults to stdout)")
	reportCmd.Flags().BoolVar(&listStored, "list", false, "List persisted runs instead of rendering one")
	reportCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum runs to list (used with --list)")
}

func runReport(cmd *cobra.Command, args []string) error {
	repos, _, err := openRunStore(reportDataDir, true)
	if err != nil {
		return err
	}
	defer repos.Close()

	ctx := context.Background()

	if listStored {
		return printRunList(ctx, repos.Run)
	}

	res, err := loadRun(ctx, repos.Run, reportRun)
	if err != nil {
		return err
	}

	registry := report.NewRegistry()
	formatter, ok := registry.Lookup(reportFormat)
	if !ok {
		return fmt.Errorf("unknown report format: %s (valid: %s)", reportFormat, strings.Join(registry.Formats(), ", "))
	}

	out := os.Stdout
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := formatter.Write(out, res); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if reportOut != "" {
		GetLogger().Info("Report written to %s", reportOut)
	}
	return nil
}

// loadRun fetches one run, or the latest when rid is empty.
func loadRun(ctx context.Context, runs repository.RunRepository, rid string) (*model.RunResult, error) {
	if rid != "" {
		res, err := runs.GetRunByUUID(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", rid, err)
		}
		return res, nil
	}

	list, err := runs.ListRuns(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no runs recorded in %s", reportDataDir)
	}
	return list[0], nil
}

// printRunList prints the persisted runs, newest first.
func printRunList(ctx context.Context, runs repository.RunRepository) error {
	list, err := runs.ListRuns(ctx, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-9s  %7s  %-24s  %s\n",
		"RUN", "JOB", "VERSION", "TRIALS", "STRATEGIES", "COMPLETED")
	for _, res := range list {
		completed := "-"
		if !res.CompletedAt.IsZero() {
			completed = res.CompletedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-10s  %-9s  %7d  %-24s  %s\n",
			res.RunUUID, res.JobUUID, res.Version, res.TotalTrials,
			strings.Join(storedStrategies(res), ","), completed)
	}
	return nil
}

// storedStrategies returns the strategy names of a run, sorted.
func storedStrategies(res *model.RunResult) []string {
	names := make([]string, 0, len(res.Result))
	for name := range res.Result {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
