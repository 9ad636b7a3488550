// Package scheduler runs benchmark jobs on a bounded worker pool fed by
// pluggable job sources.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/scheduler/source"
	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/utils"
)

// Job represents a benchmark job handed to the worker pool.
type Job struct {
	ID        int64
	UUID      string
	Type      model.JobType
	UserName  string
	COSBucket string
	Params    model.JobParams
	Priority  int // Higher value = higher priority
}

// JobProcessor defines the interface for processing jobs.
type JobProcessor interface {
	// Process executes a single job. Implementations record the job's
	// terminal state themselves; a returned error means the job did not
	// reach one and the event should be nacked.
	Process(ctx context.Context, job *Job, rules []model.FindingRule) error
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	PollInterval     time.Duration // How often sources poll for new jobs
	WorkerCount      int           // Number of concurrent workers
	InteractiveSlots int           // Slots reserved for interactive (quick) jobs
	JobBatchSize     int           // Max jobs to fetch per poll
}

// DefaultSchedulerConfig returns default scheduler configuration.
// Benchmark workers saturate CPUs while they run, so the defaults keep
// far fewer of them than a typical I/O-bound pool would.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:     2 * time.Second,
		WorkerCount:      2,
		InteractiveSlots: 1,
		JobBatchSize:     10,
	}
}

// FromConfig creates scheduler config from application config.
func FromConfig(cfg *config.SchedulerConfig) *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:     time.Duration(cfg.PollInterval) * time.Second,
		WorkerCount:      cfg.WorkerCount,
		InteractiveSlots: cfg.InteractiveSlots,
		JobBatchSize:     cfg.JobBatchSize,
	}
}

// Scheduler manages job scheduling and the worker pool. Worker capacity
// is split into two classes: interactive (quick) jobs may use every
// slot, batch jobs must additionally hold a batch token, which keeps
// InteractiveSlots workers free for quick jobs at all times.
type Scheduler struct {
	config    *SchedulerConfig
	processor JobProcessor
	logger    utils.Logger

	// Source-based job intake (Strategy Pattern)
	aggregator  *source.Aggregator
	findingRepo repository.FindingRepository

	workerPool chan struct{}         // Semaphore for total worker count
	batchPool  chan struct{}         // Semaphore for the batch share of the pool
	jobQueue   chan *source.JobEvent // Accepted events awaiting a worker
	wg         sync.WaitGroup        // Wait group for workers
	mu         sync.Mutex            // Mutex for rules cache
	rules      []model.FindingRule   // Cached finding rules

	running bool
	stopCh  chan struct{}
}

// New creates a new Scheduler with a source aggregator.
func New(config *SchedulerConfig, aggregator *source.Aggregator, processor JobProcessor, findingRepo repository.FindingRepository, logger utils.Logger) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	cfg := *config
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultSchedulerConfig().WorkerCount
	}
	if cfg.InteractiveSlots < 0 {
		cfg.InteractiveSlots = 0
	}
	// Batch jobs need at least one slot or they would starve.
	if cfg.InteractiveSlots >= cfg.WorkerCount {
		cfg.InteractiveSlots = cfg.WorkerCount - 1
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Scheduler{
		config:      &cfg,
		aggregator:  aggregator,
		findingRepo: findingRepo,
		processor:   processor,
		logger:      logger,
		workerPool:  make(chan struct{}, cfg.WorkerCount),
		batchPool:   make(chan struct{}, cfg.WorkerCount-cfg.InteractiveSlots),
		jobQueue:    make(chan *source.JobEvent, cfg.JobBatchSize*2),
		stopCh:      make(chan struct{}),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler with %d workers (%d interactive slots)",
		s.config.WorkerCount, s.config.InteractiveSlots)

	s.running = true

	// Fill both pools
	for i := 0; i < cap(s.workerPool); i++ {
		s.workerPool <- struct{}{}
	}
	for i := 0; i < cap(s.batchPool); i++ {
		s.batchPool <- struct{}{}
	}

	// Refresh rules initially
	s.refreshRules(ctx)

	// Start the aggregator
	if err := s.aggregator.Start(ctx); err != nil {
		return err
	}

	// Start the source event loop
	go s.sourceEventLoop(ctx)

	// Start the job processing loop
	go s.processLoop(ctx)

	return nil
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.running = false
	close(s.stopCh)

	// Wait for all workers to complete
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// processLoop hands queued events to workers.
func (s *Scheduler) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event := <-s.jobQueue:
			s.wg.Add(1)
			go func(event *source.JobEvent) {
				defer s.wg.Done()

				release, ok := s.acquireSlots(ctx, event.Priority)
				if !ok {
					return
				}
				defer release()

				s.processJob(ctx, event)
			}(event)
		}
	}
}

// acquireSlots blocks until the event's class may run. Batch jobs hold
// a batch token in addition to a worker slot; interactive jobs skip the
// batch pool entirely. Returns false when the scheduler is shutting
// down before a slot freed up.
func (s *Scheduler) acquireSlots(ctx context.Context, priority int) (release func(), ok bool) {
	batch := priority <= 0
	if batch {
		select {
		case <-s.batchPool:
		case <-ctx.Done():
			return nil, false
		case <-s.stopCh:
			return nil, false
		}
	}

	select {
	case <-s.workerPool:
	case <-ctx.Done():
		if batch {
			s.batchPool <- struct{}{}
		}
		return nil, false
	case <-s.stopCh:
		if batch {
			s.batchPool <- struct{}{}
		}
		return nil, false
	}

	return func() {
		s.workerPool <- struct{}{}
		if batch {
			s.batchPool <- struct{}{}
		}
	}, true
}

// processJob processes a single job and acknowledges its event.
func (s *Scheduler) processJob(ctx context.Context, event *source.JobEvent) {
	job := convertEventToJob(event)
	s.logger.Info("Processing job %s (type: %s, class: %s, work: %d)",
		job.UUID, job.Type, queueClass(event.Priority), job.Params.TotalWork())

	// Get cached rules
	s.mu.Lock()
	rules := s.rules
	s.mu.Unlock()

	startTime := time.Now()
	err := s.processor.Process(ctx, job, rules)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Job %s failed after %v: %v", job.UUID, duration, err)
		if nackErr := s.aggregator.Nack(ctx, event, err.Error()); nackErr != nil {
			s.logger.Error("Failed to nack job %s: %v", job.UUID, nackErr)
		}
		return
	}

	if ackErr := s.aggregator.Ack(ctx, event); ackErr != nil {
		s.logger.Error("Failed to ack job %s: %v", job.UUID, ackErr)
	}
	s.logger.Info("Job %s completed successfully in %v", job.UUID, duration)
}

// sourceEventLoop receives job events from the aggregator and queues them for processing.
func (s *Scheduler) sourceEventLoop(ctx context.Context) {
	// Periodically refresh rules
	rulesTicker := time.NewTicker(30 * time.Second)
	defer rulesTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-rulesTicker.C:
			s.refreshRules(ctx)
		case event, ok := <-s.aggregator.Jobs():
			if !ok {
				s.logger.Info("Aggregator channel closed")
				return
			}

			select {
			case s.jobQueue <- event:
				s.logger.Info("Queued job %s from source %s/%s (%s)",
					event.ID, event.SourceType, event.SourceName, queueClass(event.Priority))
			default:
				// Queue full, nack the event so the source can retry or park it
				s.logger.Warn("Job queue full, nacking job %s", event.ID)
				if err := s.aggregator.Nack(ctx, event, "job queue full"); err != nil {
					s.logger.Error("Failed to nack event: %v", err)
				}
			}
		}
	}
}

// refreshRules fetches and caches finding rules.
func (s *Scheduler) refreshRules(ctx context.Context) {
	if s.findingRepo == nil {
		return
	}

	rules, err := s.findingRepo.GetFindingRules(ctx)
	if err != nil {
		s.logger.Warn("Failed to refresh finding rules: %v", err)
		return
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()

	s.logger.Debug("Refreshed %d finding rules", len(rules))
}

// convertEventToJob converts a source.JobEvent to a scheduler.Job.
func convertEventToJob(event *source.JobEvent) *Job {
	j := event.Job
	return &Job{
		ID:        j.ID,
		UUID:      j.JobUUID,
		Type:      j.Type,
		UserName:  j.UserName,
		COSBucket: j.COSBucket,
		Params:    j.Params,
		Priority:  event.Priority,
	}
}

// queueClass names the scheduling class of a priority value for logs.
func queueClass(priority int) string {
	if priority > 0 {
		return "interactive"
	}
	return "batch"
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		ActiveWorkers: s.config.WorkerCount - len(s.workerPool),
		TotalWorkers:  s.config.WorkerCount,
		BatchSlots:    cap(s.batchPool),
		QueuedJobs:    len(s.jobQueue),
		Running:       s.running,
	}
}

// SchedulerStats holds scheduler statistics.
type SchedulerStats struct {
	ActiveWorkers int  `json:"active_workers"`
	TotalWorkers  int  `json:"total_workers"`
	BatchSlots    int  `json:"batch_slots"`
	QueuedJobs    int  `json:"queued_jobs"`
	Running       bool `json:"running"`
}
