package profiling

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// FileMode collects profiles on a timer and writes them to files. It
// suits one-shot benchmark runs where no server sticks around to ask.
type FileMode struct {
	config    *FileConfig
	collector *Collector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onSnapshot func(pt ProfileType, filePath string, err error)
}

// NewFileMode creates a FileMode.
func NewFileMode(config *FileConfig) *FileMode {
	if config == nil {
		config = DefaultConfig().FileConfig
	}
	return &FileMode{
		config: config,
	}
}

// Name returns the mode name.
func (m *FileMode) Name() string {
	return "file"
}

// SetSnapshotCallback registers a callback invoked after every snapshot
// attempt, successful or not.
func (m *FileMode) SetSnapshotCallback(fn func(pt ProfileType, filePath string, err error)) {
	m.onSnapshot = fn
}

// Start begins periodic collection.
func (m *FileMode) Start(ctx context.Context, collector *Collector) error {
	m.collector = collector
	m.ctx, m.cancel = context.WithCancel(ctx)

	enableRuntimeProfiles(collector.Config())

	m.wg.Add(1)
	go m.run()

	return nil
}

// Stop ends periodic collection and takes one final snapshot of each
// non-CPU profile so the shutdown state is captured.
func (m *FileMode) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}

	m.wg.Wait()

	m.collectFinalSnapshots()

	disableRuntimeProfiles()

	return nil
}

func (m *FileMode) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// The first snapshot covers startup, often the interesting part.
	m.collectSnapshots()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.collectSnapshots()
		}
	}
}

func (m *FileMode) collectSnapshots() {
	cfg := m.collector.Config()

	for _, pt := range cfg.Profiles {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		var data []byte
		var err error

		if pt == ProfileCPU {
			data, err = m.collector.SnapshotCPU(m.ctx, m.config.CPUDuration)
		} else {
			data, err = m.collector.Snapshot(pt)
		}

		if err != nil {
			m.notifySnapshot(pt, "", err)
			continue
		}

		filePath, err := m.collector.WriteSnapshot(pt, data)
		m.notifySnapshot(pt, filePath, err)
	}
}

func (m *FileMode) collectFinalSnapshots() {
	cfg := m.collector.Config()

	for _, pt := range cfg.Profiles {
		// A final CPU profile would delay shutdown by CPUDuration.
		if pt == ProfileCPU {
			continue
		}

		data, err := m.collector.Snapshot(pt)
		if err != nil {
			m.notifySnapshot(pt, "", fmt.Errorf("final snapshot: %w", err))
			continue
		}

		filePath, err := m.collector.WriteSnapshot(pt, data)
		m.notifySnapshot(pt, filePath, err)
	}
}

func (m *FileMode) notifySnapshot(pt ProfileType, filePath string, err error) {
	if m.onSnapshot != nil {
		m.onSnapshot(pt, filePath, err)
	}
}

// enableRuntimeProfiles turns on the runtime's block and mutex
// sampling when those profiles are requested. Both default to off and
// record nothing otherwise.
func enableRuntimeProfiles(cfg *Config) {
	if cfg.HasProfile(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if cfg.HasProfile(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}
}

func disableRuntimeProfiles() {
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
