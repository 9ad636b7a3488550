// Package profiling collects runtime profiles of the benchmark process
// itself, so a surprising result can be chased into the scheduler or
// the allocator without rerunning anything.
//
// Two modes are supported:
//   - File mode: profiles are snapshotted on a timer and written under
//     the output directory. Suits one-shot CLI runs.
//   - HTTP mode: pprof endpoints are served for on-demand collection.
//     Suits the daemon.
//
// File mode around a CLI run:
//
//	cfg := profiling.DefaultConfig()
//	cfg.Enabled = true
//	cfg.OutputDir = "./data/profiles"
//
//	err := profiling.RunWithProfiling(cfg, func(ctx context.Context) error {
//	    return runner.Run(ctx, job)
//	})
//
// HTTP mode in the daemon:
//
//	cfg := profiling.DefaultConfig()
//	cfg.Enabled = true
//	cfg.Mode = profiling.ModeHTTP
//
//	if err := profiling.StartGlobal(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer profiling.StopGlobal()
//
// The package also provides Sampler, a lightweight poller the runner
// wraps around individual trials to record goroutine and heap peaks.
package profiling

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	globalMu        sync.Mutex
	globalCollector *Collector
)

// StartGlobal starts a process-wide collector and installs signal
// handling so SIGINT and SIGTERM stop it cleanly. A nil or disabled
// config is a no-op.
func StartGlobal(cfg *Config) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	collector, err := NewCollector(cfg)
	if err != nil {
		return err
	}

	if err := collector.Start(); err != nil {
		return err
	}

	globalMu.Lock()
	globalCollector = collector
	globalMu.Unlock()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		StopGlobal()
	}()

	return nil
}

// StopGlobal stops the process-wide collector if one is running.
func StopGlobal() error {
	globalMu.Lock()
	collector := globalCollector
	globalCollector = nil
	globalMu.Unlock()

	if collector == nil {
		return nil
	}
	return collector.Stop()
}

// GetGlobal returns the process-wide collector, or nil.
func GetGlobal() *Collector {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalCollector
}

// RunWithProfiling runs fn with profile collection around it. The
// collector starts first, fn receives the collector's context, and
// collection stops when fn returns. A nil or disabled config runs fn
// directly.
func RunWithProfiling(cfg *Config, fn func(ctx context.Context) error) error {
	if cfg == nil || !cfg.Enabled {
		return fn(context.Background())
	}

	collector, err := NewCollector(cfg)
	if err != nil {
		return err
	}

	if err := collector.Start(); err != nil {
		return err
	}
	defer collector.Stop()

	return fn(collector.Context())
}
