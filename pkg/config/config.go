// Package config provides configuration management for the sortbench service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Benchmark BenchmarkConfig `mapstructure:"benchmark"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Report    ReportConfig    `mapstructure:"report"`
	WebUI     WebUIConfig     `mapstructure:"webui"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Log       LogConfig       `mapstructure:"log"`
}

// BenchmarkConfig holds benchmark execution configuration.
type BenchmarkConfig struct {
	Version     string `mapstructure:"version"`
	DataDir     string `mapstructure:"data_dir"`
	Trials      int    `mapstructure:"trials"`
	Warmup      int    `mapstructure:"warmup"`
	Parallelism int    `mapstructure:"parallelism"`  // 0 means runtime.GOMAXPROCS(0)
	DepthBudget int    `mapstructure:"depth_budget"` // -1 means derive from parallelism
	Verify      bool   `mapstructure:"verify"`
	MaxWorker   int    `mapstructure:"max_worker"` // dataset generation workers
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Path     string `mapstructure:"path"` // for sqlite
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Source           string `mapstructure:"source"`        // database, http or queue
	PollInterval     int    `mapstructure:"poll_interval"` // in seconds
	WorkerCount      int    `mapstructure:"worker_count"`
	InteractiveSlots int    `mapstructure:"interactive_slots"`
	JobBatchSize     int    `mapstructure:"job_batch_size"`
	HTTPEndpoint     string `mapstructure:"http_endpoint"` // for http source
	QueueDir         string `mapstructure:"queue_dir"`     // for queue source
}

// ReportConfig holds report generation configuration.
type ReportConfig struct {
	Formats   []string `mapstructure:"formats"`
	OutputDir string   `mapstructure:"output_dir"`
	TopN      int      `mapstructure:"top_n"`
	Charts    bool     `mapstructure:"charts"`
}

// WebUIConfig holds web UI configuration.
type WebUIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// WebhookConfig holds completion callback configuration.
type WebhookConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
	Timeout int    `mapstructure:"timeout"` // in seconds
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sortbench")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Allow environment variables to override config
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Benchmark defaults
	v.SetDefault("benchmark.version", "1.0.0")
	v.SetDefault("benchmark.data_dir", "./data")
	v.SetDefault("benchmark.trials", 10)
	v.SetDefault("benchmark.warmup", 3)
	v.SetDefault("benchmark.parallelism", 0)
	v.SetDefault("benchmark.depth_budget", -1)
	v.SetDefault("benchmark.verify", true)
	v.SetDefault("benchmark.max_worker", 4)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.path", "./data/sortbench.db")
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Scheduler defaults
	v.SetDefault("scheduler.source", "database")
	v.SetDefault("scheduler.poll_interval", 2)
	v.SetDefault("scheduler.worker_count", 2)
	v.SetDefault("scheduler.interactive_slots", 1)
	v.SetDefault("scheduler.job_batch_size", 10)

	// Report defaults
	v.SetDefault("report.formats", []string{"text"})
	v.SetDefault("report.output_dir", "./reports")
	v.SetDefault("report.top_n", 10)
	v.SetDefault("report.charts", true)

	// WebUI defaults
	v.SetDefault("webui.enabled", false)
	v.SetDefault("webui.listen_addr", ":8080")

	// Webhook defaults
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.timeout", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Benchmark.Trials < 1 {
		return fmt.Errorf("benchmark trials must be at least 1")
	}

	// Storage config validation is delegated to the storage package

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	switch c.Scheduler.Source {
	case "database", "http", "queue":
	default:
		return fmt.Errorf("unsupported scheduler source: %s", c.Scheduler.Source)
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Benchmark.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Benchmark.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path.
func (c *Config) GetRunDir(runUUID string) string {
	return filepath.Join(c.Benchmark.DataDir, runUUID)
}
