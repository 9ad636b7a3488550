package profiling

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HTTPMode serves pprof endpoints for on-demand collection. It suits
// the daemon, which runs long enough for someone to come asking.
type HTTPMode struct {
	config    *HTTPConfig
	collector *Collector

	server *http.Server
	mux    *http.ServeMux

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHTTPMode creates an HTTPMode. Handlers are registered up front so
// Handler can be mounted on an existing server without calling Start.
func NewHTTPMode(config *HTTPConfig) *HTTPMode {
	if config == nil {
		config = DefaultConfig().HTTPConfig
	}
	m := &HTTPMode{
		config: config,
		mux:    http.NewServeMux(),
	}
	m.registerHandlers()
	return m
}

// Name returns the mode name.
func (m *HTTPMode) Name() string {
	return "http"
}

// Bind attaches the collector the handlers collect through. Start
// calls it; callers mounting Handler on their own server must call it
// themselves.
func (m *HTTPMode) Bind(collector *Collector) {
	m.collector = collector
}

// Start binds the collector and serves the endpoints on the configured
// address.
func (m *HTTPMode) Start(ctx context.Context, collector *Collector) error {
	m.Bind(collector)
	m.ctx, m.cancel = context.WithCancel(ctx)

	enableRuntimeProfiles(collector.Config())

	m.server = &http.Server{
		Addr:         m.config.Addr,
		Handler:      m.mux,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("profiling HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop shuts the server down.
func (m *HTTPMode) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}

	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	disableRuntimeProfiles()

	m.wg.Wait()
	return nil
}

// Handler returns the mode's handler for mounting on another server.
func (m *HTTPMode) Handler() http.Handler {
	return m.mux
}

func (m *HTTPMode) registerHandlers() {
	path := strings.TrimSuffix(m.config.Path, "/")

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		if m.config.Auth != nil && m.config.Auth.Enabled {
			return m.authMiddleware(h)
		}
		return h
	}

	if m.config.EnableUI {
		m.mux.HandleFunc(path+"/", wrap(pprof.Index))
		m.mux.HandleFunc(path+"/cmdline", wrap(pprof.Cmdline))
		m.mux.HandleFunc(path+"/symbol", wrap(pprof.Symbol))
		m.mux.HandleFunc(path+"/trace", wrap(pprof.Trace))
	}

	m.mux.HandleFunc(path+"/profile", wrap(m.handleCPUProfile))
	m.mux.HandleFunc(path+"/heap", wrap(m.profileHandler(ProfileHeap)))
	m.mux.HandleFunc(path+"/goroutine", wrap(m.profileHandler(ProfileGoroutine)))
	m.mux.HandleFunc(path+"/block", wrap(m.profileHandler(ProfileBlock)))
	m.mux.HandleFunc(path+"/mutex", wrap(m.profileHandler(ProfileMutex)))
	m.mux.HandleFunc(path+"/allocs", wrap(m.profileHandler(ProfileAllocs)))
	m.mux.HandleFunc(path+"/threadcreate", wrap(func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("threadcreate").ServeHTTP(w, r)
	}))

	m.mux.HandleFunc(path+"/status", wrap(m.handleStatus))
	m.mux.HandleFunc(path+"/snapshot", wrap(m.handleSnapshot))
}

func (m *HTTPMode) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := m.config.Auth

		if auth.Token != "" {
			token := r.Header.Get("Authorization")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			token = strings.TrimPrefix(token, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(auth.Token)) == 1 {
				next(w, r)
				return
			}
		}

		if auth.Username != "" && auth.Password != "" {
			user, pass, ok := r.BasicAuth()
			if ok &&
				subtle.ConstantTimeCompare([]byte(user), []byte(auth.Username)) == 1 &&
				subtle.ConstantTimeCompare([]byte(pass), []byte(auth.Password)) == 1 {
				next(w, r)
				return
			}
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="profiling"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
}

func (m *HTTPMode) requireCollector(w http.ResponseWriter) *Collector {
	if m.collector == nil {
		http.Error(w, "collector not bound", http.StatusServiceUnavailable)
		return nil
	}
	return m.collector
}

func (m *HTTPMode) handleCPUProfile(w http.ResponseWriter, r *http.Request) {
	c := m.requireCollector(w)
	if c == nil {
		return
	}

	seconds := m.config.DefaultSeconds
	if s := r.URL.Query().Get("seconds"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			seconds = n
		}
	}
	if seconds > 300 {
		seconds = 300
	}

	data, err := c.SnapshotCPU(r.Context(), time.Duration(seconds)*time.Second)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if m.config.SaveToFile {
		go func() {
			_, _ = c.WriteSnapshot(ProfileCPU, data)
		}()
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=cpu_%s.pprof", time.Now().Format("20060102_150405")))
	w.Write(data)
}

func (m *HTTPMode) profileHandler(pt ProfileType) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		c := m.requireCollector(w)
		if c == nil {
			return
		}

		data, err := c.Snapshot(pt)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if m.config.SaveToFile {
			go func() {
				_, _ = c.WriteSnapshot(pt, data)
			}()
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.pprof", pt, time.Now().Format("20060102_150405")))
		w.Write(data)
	}
}

func (m *HTTPMode) handleStatus(w http.ResponseWriter, _ *http.Request) {
	c := m.requireCollector(w)
	if c == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.Status())
}

// handleSnapshot writes the requested profile types to files in one
// shot. CPU is skipped; it needs a duration and its own endpoint.
func (m *HTTPMode) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := m.requireCollector(w)
	if c == nil {
		return
	}

	profiles := c.Config().Profiles
	if s := r.URL.Query().Get("profiles"); s != "" {
		var err error
		profiles, err = ParseProfileTypes(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	files := make(map[string]string)
	errs := make(map[string]string)

	for _, pt := range profiles {
		if pt == ProfileCPU {
			continue
		}

		data, err := c.Snapshot(pt)
		if err != nil {
			errs[string(pt)] = err.Error()
			continue
		}

		filePath, err := c.WriteSnapshot(pt, data)
		if err != nil {
			errs[string(pt)] = err.Error()
			continue
		}

		files[string(pt)] = filePath
	}

	response := map[string]interface{}{
		"files":  files,
		"errors": errs,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
