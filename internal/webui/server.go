// Package webui serves stored benchmark runs over HTTP: a small embedded
// dashboard plus JSON endpoints for run listings, summaries and charts.
package webui

import (
	"compress/gzip"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/sortbench/internal/report"
	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/utils"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// defaultRunLimit caps /api/runs responses when no limit is given.
const defaultRunLimit = 50

// Server represents the web UI server.
type Server struct {
	runs   repository.RunRepository
	store  storage.Storage
	addr   string
	logger utils.Logger
	server *http.Server
}

// NewServer creates a new web UI server reading runs from the repository
// and chart artifacts from storage.
func NewServer(runs repository.RunRepository, store storage.Storage, addr string, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Server{
		runs:   runs,
		store:  store,
		addr:   addr,
		logger: logger,
	}
}

// buildMux assembles the route table.
func (s *Server) buildMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	// Static file server (CSS, JS)
	// Use fs.Sub to strip the "static" prefix from the embedded filesystem
	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	staticHandler := http.FileServer(http.FS(staticSubFS))
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

	// API routes
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/chart", s.handleChart)

	// Page routes
	mux.HandleFunc("/", s.handleIndex)

	return mux, nil
}

// Start starts the web server and blocks until it shuts down.
func (s *Server) Start() error {
	mux, err := s.buildMux()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting web server at http://%s", s.addr)
	s.logger.Info("Press Ctrl+C to stop")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleIndex serves the main HTML page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
		s.logger.Error("Failed to parse template: %v", err)
		return
	}

	data := map[string]interface{}{
		"Addr": s.addr,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute template: %v", err)
	}
}

// RunInfo is the compact run listing returned by /api/runs.
type RunInfo struct {
	RID         string   `json:"rid"`
	JID         string   `json:"jid"`
	Version     string   `json:"version"`
	Hostname    string   `json:"hostname"`
	Strategies  []string `json:"strategies"`
	TotalTrials int64    `json:"total_trials"`
	CompletedAt string   `json:"completed_at"`
}

// handleListRuns lists the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	results, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		s.logger.Error("Failed to list runs: %v", err)
		return
	}

	runs := make([]RunInfo, 0, len(results))
	for _, res := range results {
		strategies := make([]string, 0, len(res.Result))
		for name := range res.Result {
			strategies = append(strategies, name)
		}
		sort.Strings(strategies)

		runs = append(runs, RunInfo{
			RID:         res.RunUUID,
			JID:         res.JobUUID,
			Version:     res.Version,
			Hostname:    res.Machine.Hostname,
			Strategies:  strategies,
			TotalTrials: res.TotalTrials,
			CompletedAt: res.CompletedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, runs)
}

// handleSummary returns the summary of one run.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rid, ok := s.resolveRun(w, r)
	if !ok {
		return
	}

	res, err := s.runs.GetRunByUUID(r.Context(), rid)
	if err != nil {
		if errors.IsNotFound(err) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		s.logger.Error("Failed to load run %s: %v", rid, err)
		return
	}

	writeJSON(w, report.Summary(res))
}

// handleChart streams the decompressed chart payload of one run.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rid, ok := s.resolveRun(w, r)
	if !ok {
		return
	}

	key := storage.RunKey(rid, report.ChartFileName)
	rc, err := s.store.Download(r.Context(), key)
	if err != nil {
		if errors.IsNotFound(err) {
			http.Error(w, "Chart not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load chart", http.StatusInternalServerError)
		s.logger.Error("Failed to download %s: %v", key, err)
		return
	}
	defer rc.Close()

	gzReader, err := gzip.NewReader(rc)
	if err != nil {
		http.Error(w, "Failed to decompress chart", http.StatusInternalServerError)
		s.logger.Error("Failed to decompress %s: %v", key, err)
		return
	}
	defer gzReader.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := io.Copy(w, gzReader); err != nil {
		s.logger.Error("Failed to stream chart %s: %v", key, err)
	}
}

// resolveRun extracts the run UUID from the request, falling back to the
// most recent run. It writes the error response itself on failure.
func (s *Server) resolveRun(w http.ResponseWriter, r *http.Request) (string, bool) {
	rid := r.URL.Query().Get("run")
	if rid != "" {
		return rid, true
	}

	results, err := s.runs.ListRuns(r.Context(), 1)
	if err != nil {
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		s.logger.Error("Failed to resolve default run: %v", err)
		return "", false
	}
	if len(results) == 0 {
		http.Error(w, "No runs recorded", http.StatusNotFound)
		return "", false
	}

	return results[0].RunUUID, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out, nothing more to do.
		return
	}
}
