// Package service provides the main application service that integrates all components.
package service

import (
	"context"
	"fmt"

	"github.com/sortbench/internal/repository"
	"github.com/sortbench/internal/scheduler"
	"github.com/sortbench/internal/scheduler/source"
	"github.com/sortbench/internal/storage"
	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/utils"
)

// Service is the main application service.
type Service struct {
	config    *config.Config
	logger    utils.Logger
	db        *repository.Repositories
	storage   storage.Storage
	scheduler *scheduler.Scheduler

	// sources holds all job sources
	sources []source.JobSource
	// aggregator aggregates multiple sources into a single channel
	aggregator *source.Aggregator

	running bool
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config: cfg,
		logger: logger,
	}, nil
}

// Initialize initializes all service components.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	// Initialize database connection
	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize storage
	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize scheduler
	if err := s.initScheduler(); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	s.logger.Info("Service components initialized successfully")
	return nil
}

// initDatabase initializes the database connection and repositories.
func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	dbConfig := &repository.DBConfig{
		Type:     s.config.Database.Type,
		Host:     s.config.Database.Host,
		Port:     s.config.Database.Port,
		Database: s.config.Database.Database,
		User:     s.config.Database.User,
		Password: s.config.Database.Password,
		Path:     s.config.Database.Path,
		MaxConns: s.config.Database.MaxConns,
	}

	gormDB, err := repository.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	s.db = repository.NewRepositories(gormDB, s.config.Database.Type, s.config.Benchmark.Version)
	s.logger.Info("Database connection established")

	return nil
}

// initStorage initializes the object storage.
func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")

	return nil
}

// initScheduler initializes the job scheduler.
func (s *Service) initScheduler() error {
	s.logger.Info("Initializing scheduler...")

	// Initialize job sources from configuration
	if err := s.initSources(); err != nil {
		return fmt.Errorf("failed to initialize sources: %w", err)
	}

	// Create job processor
	processorConfig := &scheduler.ProcessorConfig{
		Config:  s.config,
		Storage: s.storage,
		Repos:   s.db,
		Logger:  s.logger,
	}
	processor := scheduler.NewDefaultJobProcessor(processorConfig)

	// Create scheduler with aggregator
	schedulerConfig := scheduler.FromConfig(&s.config.Scheduler)
	s.scheduler = scheduler.New(schedulerConfig, s.aggregator, processor, s.db.Finding, s.logger)

	s.logger.Info("Scheduler initialized")
	return nil
}

// initSources initializes the job source selected in the scheduler
// configuration and wraps it in an aggregator.
func (s *Service) initSources() error {
	sourceConfig, err := s.sourceConfig()
	if err != nil {
		return err
	}

	s.logger.Info("Initializing job source %s (%s)...", sourceConfig.Name, sourceConfig.Type)

	sources, err := source.CreateSources([]*source.SourceConfig{sourceConfig})
	if err != nil {
		return err
	}

	// Inject dependencies the source factory cannot construct itself
	for _, src := range sources {
		if dbSource, ok := src.(*source.DatabaseSource); ok {
			dbSource.SetRepository(s.db.Job)
			dbSource.SetLogger(s.logger)
		}
		if queueSource, ok := src.(*source.QueueSource); ok {
			queueSource.SetLogger(s.logger)
		}
		if httpSource, ok := src.(*source.HTTPSource); ok {
			httpSource.SetLogger(s.logger)
		}
	}

	s.sources = sources

	// Create aggregator
	s.aggregator = source.NewAggregator(sources, s.config.Scheduler.JobBatchSize*2, s.logger)

	s.logger.Info("Initialized %d job sources", len(sources))
	for _, src := range sources {
		s.logger.Info("  - %s (%s)", src.Name(), src.Type())
	}

	return nil
}

// sourceConfig maps the scheduler configuration to a source configuration.
func (s *Service) sourceConfig() (*source.SourceConfig, error) {
	switch s.config.Scheduler.Source {
	case "", "database":
		return &source.SourceConfig{
			Type:    source.SourceTypeDB,
			Name:    "default-db",
			Enabled: true,
			Options: map[string]interface{}{
				"poll_interval": s.config.Scheduler.PollInterval,
				"batch_size":    s.config.Scheduler.JobBatchSize,
			},
		}, nil
	case "http":
		return &source.SourceConfig{
			Type:    source.SourceTypeHTTP,
			Name:    "http-intake",
			Enabled: true,
			Options: map[string]interface{}{
				"listen_addr": s.config.Scheduler.HTTPEndpoint,
			},
		}, nil
	case "queue":
		return &source.SourceConfig{
			Type:    source.SourceTypeQueue,
			Name:    "spool-queue",
			Enabled: true,
			Options: map[string]interface{}{
				"queue_dir":     s.config.Scheduler.QueueDir,
				"poll_interval": s.config.Scheduler.PollInterval,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown scheduler source %q (valid: database, http, queue)", s.config.Scheduler.Source)
	}
}

// Start starts the service.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting service...")

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	s.running = true
	s.logger.Info("Service started successfully")

	return nil
}

// Stop stops the service gracefully.
func (s *Service) Stop() error {
	s.logger.Info("Stopping service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.aggregator != nil {
		if err := s.aggregator.Stop(); err != nil {
			s.logger.Error("Failed to stop aggregator: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
		}
	}

	s.running = false
	s.logger.Info("Service stopped")

	return nil
}

// IsRunning returns whether the service is running.
func (s *Service) IsRunning() bool {
	return s.running
}

// Repositories exposes the repository aggregate, for wiring auxiliary
// components such as the web UI.
func (s *Service) Repositories() *repository.Repositories {
	return s.db
}

// Storage exposes the artifact storage.
func (s *Service) Storage() storage.Storage {
	return s.storage
}

// Stats returns service statistics.
func (s *Service) Stats() ServiceStats {
	stats := ServiceStats{
		Running: s.running,
	}

	if s.scheduler != nil {
		stats.Scheduler = s.scheduler.Stats()
	}

	return stats
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	// Check database connection
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}

	return nil
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	Running   bool                     `json:"running"`
	Scheduler scheduler.SchedulerStats `json:"scheduler"`
}
