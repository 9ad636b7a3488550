package profiling

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/sortbench/pkg/collections"
)

// errorLogSize is how many recent collection errors the status keeps.
const errorLogSize = 100

// Collector owns profile collection for the current process.
type Collector struct {
	config *Config
	mode   Mode
	writer *Writer

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	running       bool
	startTime     time.Time
	snapshotCount map[ProfileType]int64
	lastSnapshot  map[ProfileType]time.Time
	errors        *collections.RingBuffer[string]

	// cpuMu serializes CPU profiles; the runtime allows only one at a time.
	cpuMu sync.Mutex
}

// Status is a point-in-time view of the collector.
type Status struct {
	Running       bool                      `json:"running"`
	Mode          ModeType                  `json:"mode"`
	OutputDir     string                    `json:"output_dir"`
	StartTime     time.Time                 `json:"start_time"`
	SnapshotCount map[ProfileType]int64     `json:"snapshot_count"`
	LastSnapshot  map[ProfileType]time.Time `json:"last_snapshot"`
	Errors        []string                  `json:"errors"`
}

// Mode is a profile collection strategy.
type Mode interface {
	// Name returns the mode name.
	Name() string
	// Start begins collection on behalf of the collector.
	Start(ctx context.Context, collector *Collector) error
	// Stop ends collection and releases resources.
	Stop() error
}

// NewCollector creates a Collector for the given config.
func NewCollector(cfg *Config) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fileConfig := cfg.FileConfig
	if fileConfig == nil {
		fileConfig = DefaultConfig().FileConfig
	}

	c := &Collector{
		config: cfg,
		writer: NewWriter(
			cfg.OutputDir,
			fileConfig.MaxFiles,
			fileConfig.MaxTotalBytes,
			fileConfig.AutoRotate,
		),
		snapshotCount: make(map[ProfileType]int64),
		lastSnapshot:  make(map[ProfileType]time.Time),
		errors:        collections.NewRingBuffer[string](errorLogSize),
	}

	switch cfg.Mode {
	case ModeFile:
		c.mode = NewFileMode(cfg.FileConfig)
	case ModeHTTP:
		c.mode = NewHTTPMode(cfg.HTTPConfig)
	default:
		return nil, fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	return c, nil
}

// Start begins collection.
func (c *Collector) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("collector is already running")
	}

	if err := c.writer.EnsureDir(c.config.Profiles); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.running = true
	c.startTime = time.Now()
	c.mu.Unlock()

	if err := c.mode.Start(c.ctx, c); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("failed to start %s mode: %w", c.mode.Name(), err)
	}

	return nil
}

// Stop ends collection gracefully. Stopping a stopped collector is a
// no-op.
func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	if err := c.mode.Stop(); err != nil {
		c.addError(fmt.Sprintf("mode stop error: %v", err))
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	return nil
}

// Status returns a copy of the collector's current state.
func (c *Collector) Status() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &Status{
		Running:       c.running,
		Mode:          c.config.Mode,
		OutputDir:     c.config.OutputDir,
		StartTime:     c.startTime,
		SnapshotCount: make(map[ProfileType]int64, len(c.snapshotCount)),
		LastSnapshot:  make(map[ProfileType]time.Time, len(c.lastSnapshot)),
		Errors:        c.errors.Snapshot(),
	}
	for k, v := range c.snapshotCount {
		status.SnapshotCount[k] = v
	}
	for k, v := range c.lastSnapshot {
		status.LastSnapshot[k] = v
	}

	return status
}

// Snapshot collects one snapshot of the given profile type. CPU
// profiles record over a duration and go through SnapshotCPU instead.
func (c *Collector) Snapshot(pt ProfileType) ([]byte, error) {
	switch pt {
	case ProfileCPU:
		return nil, fmt.Errorf("use SnapshotCPU for CPU profiles")
	case ProfileHeap:
		// Flush pending frees so the snapshot reflects live memory.
		runtime.GC()
		var buf bytes.Buffer
		if err := pprof.WriteHeapProfile(&buf); err != nil {
			return nil, fmt.Errorf("failed to write heap profile: %w", err)
		}
		return buf.Bytes(), nil
	case ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs:
		return lookupProfile(string(pt))
	default:
		return nil, fmt.Errorf("unknown profile type: %s", pt)
	}
}

func lookupProfile(name string) ([]byte, error) {
	p := pprof.Lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%s profile not found", name)
	}
	var buf bytes.Buffer
	if err := p.WriteTo(&buf, 0); err != nil {
		return nil, fmt.Errorf("failed to write %s profile: %w", name, err)
	}
	return buf.Bytes(), nil
}

// SnapshotCPU records a CPU profile for the given duration.
func (c *Collector) SnapshotCPU(ctx context.Context, duration time.Duration) ([]byte, error) {
	c.cpuMu.Lock()
	defer c.cpuMu.Unlock()

	var buf bytes.Buffer

	if err := pprof.StartCPUProfile(&buf); err != nil {
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		pprof.StopCPUProfile()
		return nil, ctx.Err()
	}

	pprof.StopCPUProfile()
	return buf.Bytes(), nil
}

// WriteSnapshot persists a snapshot and updates the status counters.
func (c *Collector) WriteSnapshot(pt ProfileType, data []byte) (string, error) {
	filePath, err := c.writer.Write(pt, data)
	if err != nil {
		c.addError(fmt.Sprintf("write %s error: %v", pt, err))
		return "", err
	}

	c.mu.Lock()
	c.snapshotCount[pt]++
	c.lastSnapshot[pt] = time.Now()
	c.mu.Unlock()

	return filePath, nil
}

// Config returns the collector configuration.
func (c *Collector) Config() *Config {
	return c.config
}

// Writer returns the snapshot writer.
func (c *Collector) Writer() *Writer {
	return c.writer
}

// Context returns the collector's lifetime context. It is cancelled
// when Stop is called.
func (c *Collector) Context() context.Context {
	return c.ctx
}

func (c *Collector) addError(err string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors.PushEvict(fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), err))
}
