package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/internal/webui"
	"github.com/sortbench/pkg/utils"
)

// Data layout under a sortbench output directory.
const (
	runDBName        = "sortbench.db"
	artifactsDirName = "artifacts"
)

var (
	// Serve command flags
	dataDir    string
	listenAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start web server to view benchmark results",
	Long: `Start an HTTP server to interactively view and explore persisted runs.

The serve command starts a lightweight web server that provides:
  - The list of persisted runs, newest first
  - Per-run speedup charts and case tables
  - Advisory findings per strategy

It reads the run database and artifact store that 'run --persist' writes
under the data directory.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Set dynamic example using actual binary name
	binName := BinName()
	serveCmd.Example = `  # Start server with default settings (:8080, ./output directory)
  ` + binName + ` serve

  # Specify data directory and listen address
  ` + binName + ` serve -d ./my-output --addr 127.0.0.1:9090

  # Start server with verbose logging
  ` + binName + ` serve -d ./output -v`

	serveCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "./output", "Data directory containing persisted runs")
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address for the web server")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	return startServeMode(dataDir, listenAddr, log)
}

// startServeMode is shared between run --serve and serve command
func startServeMode(dataDirectory string, addr string, log utils.Logger) error {
	repos, store, err := openRunStore(dataDirectory, true)
	if err != nil {
		return err
	}
	defer repos.Close()

	server := webui.NewServer(repos.Run, store, addr, log)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("Shutdown error: %v", err)
		}
	}()

	log.Info("")
	log.Info("sortbench results viewer")
	log.Info("  Open in browser: %s", browserURL(addr))
	log.Info("  Run database:    %s", filepath.Join(dataDirectory, runDBName))
	log.Info("  Press Ctrl+C to stop")
	log.Info("")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// openRunStore opens the run database and the artifact store under
// dataDir. With requireDB set, a missing database file is an error
// instead of being created empty.
func openRunStore(dataDir string, requireDB bool) (*repository.Repositories, storage.Storage, error) {
	dbPath := filepath.Join(dataDir, runDBName)
	if requireDB {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("no run database at %s (run `%s run --persist` first)", dbPath, BinName())
		}
	}

	gormDB, err := repository.NewGormDB(&repository.DBConfig{Type: "sqlite", Path: dbPath})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run database: %w", err)
	}
	repos := repository.NewRepositories(gormDB, "sqlite", Version)

	store, err := storage.NewLocalStorage(filepath.Join(dataDir, artifactsDirName))
	if err != nil {
		repos.Close()
		return nil, nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	return repos, store, nil
}

// browserURL renders a clickable URL for a listen address like ":8080".
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
