package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/utils"
)

// SourceTypeQueue is the source type constant for the queue source.
const SourceTypeQueue SourceType = "queue"

func init() {
	// Register the queue source strategy
	Register(SourceTypeQueue, NewQueueSource)
}

// QueueOptions holds queue source specific configuration.
type QueueOptions struct {
	// SpoolDir, when set, is a directory scanned for job files. Each
	// file holds one model.Job as JSON and is removed once the job
	// completes. Empty disables the spool and leaves the source
	// in-process only.
	SpoolDir string

	// PollInterval is how often the spool directory is scanned.
	PollInterval time.Duration

	// BufferSize is the capacity of the in-process job channel.
	BufferSize int
}

// DefaultQueueOptions returns the default options.
func DefaultQueueOptions() *QueueOptions {
	return &QueueOptions{
		PollInterval: 2 * time.Second,
		BufferSize:   100,
	}
}

// QueueSource implements JobSource as an in-process queue with an
// optional file spool. Tests and embedding callers push jobs with
// Submit; operators can drop job files into the spool directory.
type QueueSource struct {
	name    string
	options *QueueOptions
	logger  utils.Logger

	jobChan chan *JobEvent
	stopCh  chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewQueueSource creates a new queue source from configuration.
func NewQueueSource(cfg *SourceConfig) (JobSource, error) {
	opts := &QueueOptions{
		SpoolDir:     cfg.GetString("queue_dir", ""),
		PollInterval: cfg.GetDuration("poll_interval", 2*time.Second),
		BufferSize:   cfg.GetInt("buffer_size", 100),
	}

	return NewQueueSourceWithOptions(cfg.Name, opts, nil), nil
}

// NewQueueSourceWithOptions creates a new queue source with explicit options.
func NewQueueSourceWithOptions(name string, opts *QueueOptions, logger utils.Logger) *QueueSource {
	if opts == nil {
		opts = DefaultQueueOptions()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &QueueSource{
		name:    name,
		options: opts,
		logger:  logger,
		jobChan: make(chan *JobEvent, opts.BufferSize),
		stopCh:  make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (s *QueueSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

// Type returns the source type.
func (s *QueueSource) Type() SourceType {
	return SourceTypeQueue
}

// Name returns the source instance name.
func (s *QueueSource) Name() string {
	return s.name
}

// Submit pushes a job into the queue without blocking. It fails when
// the buffer is full.
func (s *QueueSource) Submit(job *model.Job) error {
	if job == nil {
		return fmt.Errorf("queue source %s: nil job", s.name)
	}
	if job.JobUUID == "" {
		return fmt.Errorf("queue source %s: job jid is required", s.name)
	}

	event := NewJobEvent(job, SourceTypeQueue, s.name)
	select {
	case s.jobChan <- event:
		return nil
	default:
		return fmt.Errorf("queue source %s: queue is full", s.name)
	}
}

// Start starts the spool scanner when a spool directory is configured.
func (s *QueueSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.options.SpoolDir == "" {
		return nil
	}

	if err := os.MkdirAll(s.options.SpoolDir, 0755); err != nil {
		return fmt.Errorf("queue source %s: create spool dir: %w", s.name, err)
	}

	if s.logger != nil {
		s.logger.Info("Queue source %s watching spool dir %s every %v",
			s.name, s.options.SpoolDir, s.options.PollInterval)
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the queue source.
func (s *QueueSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	return nil
}

// Jobs returns the job event channel.
func (s *QueueSource) Jobs() <-chan *JobEvent {
	return s.jobChan
}

// Ack removes the spool file behind the event, if any.
func (s *QueueSource) Ack(ctx context.Context, event *JobEvent) error {
	path, ok := event.AckToken.(string)
	if !ok || path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("queue source %s: remove spool file: %w", s.name, err)
	}
	return nil
}

// Nack parks the spool file under a .failed suffix so the scanner does
// not pick it up again. In-process submissions have no file and are
// only logged.
func (s *QueueSource) Nack(ctx context.Context, event *JobEvent, reason string) error {
	path, ok := event.AckToken.(string)
	if !ok || path == "" {
		if s.logger != nil {
			s.logger.Warn("Queue source %s nacked job %s: %s", s.name, event.ID, reason)
		}
		return nil
	}

	failed := strings.TrimSuffix(path, workingSuffix) + failedSuffix
	if err := os.Rename(path, failed); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("queue source %s: park spool file: %w", s.name, err)
	}
	return nil
}

// HealthCheck verifies the source is running and the spool directory,
// when configured, is reachable.
func (s *QueueSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	if !running {
		return fmt.Errorf("queue source %s is not running", s.name)
	}
	if s.options.SpoolDir != "" {
		if _, err := os.Stat(s.options.SpoolDir); err != nil {
			return fmt.Errorf("queue source %s: spool dir: %w", s.name, err)
		}
	}
	return nil
}

const (
	workingSuffix = ".working"
	failedSuffix  = ".failed"
)

// pollLoop periodically scans the spool directory.
func (s *QueueSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	s.scanSpool(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scanSpool(ctx)
		}
	}
}

// scanSpool picks up job files from the spool directory. A file is
// claimed by renaming it to a .working name; losing the rename race
// means another instance took it.
func (s *QueueSource) scanSpool(ctx context.Context) {
	files, err := filepath.Glob(filepath.Join(s.options.SpoolDir, "*.json"))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Queue source %s failed to scan spool dir: %v", s.name, err)
		}
		return
	}

	for _, path := range files {
		working := path + workingSuffix
		if err := os.Rename(path, working); err != nil {
			continue
		}

		job, err := readSpoolFile(working)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("Queue source %s skipping bad spool file %s: %v", s.name, path, err)
			}
			if err := os.Rename(working, path+failedSuffix); err != nil && s.logger != nil {
				s.logger.Error("Queue source %s failed to park spool file %s: %v", s.name, path, err)
			}
			continue
		}

		event := NewJobEvent(job, SourceTypeQueue, s.name).
			WithAckToken(working).
			WithMetadata("spool_file", path)

		select {
		case s.jobChan <- event:
			if s.logger != nil {
				s.logger.Debug("Queue source %s emitted job %s from %s", s.name, job.JobUUID, path)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			// Channel full, release the claim for the next scan.
			if err := os.Rename(working, path); err != nil && s.logger != nil {
				s.logger.Error("Queue source %s failed to release spool file %s: %v", s.name, path, err)
			}
		}
	}
}

// readSpoolFile reads and validates one spooled job.
func readSpoolFile(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	if job.JobUUID == "" {
		return nil, fmt.Errorf("job jid is required")
	}
	return &job, nil
}
