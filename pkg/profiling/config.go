package profiling

import (
	"fmt"
	"strings"
	"time"
)

// ModeType defines how profile data leaves the process.
type ModeType string

const (
	// ModeFile writes profile snapshots to files at regular intervals.
	ModeFile ModeType = "file"
	// ModeHTTP exposes pprof endpoints via HTTP for on-demand collection.
	ModeHTTP ModeType = "http"
)

// ProfileType identifies a runtime profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns every supported profile type.
func AllProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileCPU,
		ProfileHeap,
		ProfileGoroutine,
		ProfileBlock,
		ProfileMutex,
		ProfileAllocs,
	}
}

// DefaultProfileTypes returns the profile types collected when none are
// named. CPU, heap, and goroutine cover the questions benchmark runs
// usually raise.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine}
}

// ParseProfileTypes parses a comma-separated list into profile types.
// An empty string yields the defaults.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if s == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	parts := strings.Split(s, ",")
	types := make([]ProfileType, 0, len(parts))
	for _, p := range parts {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		types = append(types, pt)
	}

	return types, nil
}

// Config holds the self-profiling configuration.
type Config struct {
	// Enabled turns profile collection on.
	Enabled bool `mapstructure:"enabled"`

	// Mode selects the collection mode: file or http.
	Mode ModeType `mapstructure:"mode"`

	// Profiles lists the profile types to collect.
	Profiles []ProfileType `mapstructure:"profiles"`

	// OutputDir is the directory profile files are written under.
	OutputDir string `mapstructure:"output_dir"`

	// FileConfig holds file mode settings.
	FileConfig *FileConfig `mapstructure:"file"`

	// HTTPConfig holds HTTP mode settings.
	HTTPConfig *HTTPConfig `mapstructure:"http"`
}

// FileConfig holds settings for file mode.
type FileConfig struct {
	// Interval is the time between profile snapshots.
	Interval time.Duration `mapstructure:"interval"`

	// CPUDuration is how long each CPU profile records.
	CPUDuration time.Duration `mapstructure:"cpu_duration"`

	// MaxFiles is the maximum number of snapshot files kept per type.
	MaxFiles int `mapstructure:"max_files"`

	// MaxTotalBytes caps the combined size of kept snapshots per type.
	// Zero means no byte limit.
	MaxTotalBytes int64 `mapstructure:"max_total_bytes"`

	// AutoRotate removes old snapshots once a limit is exceeded.
	AutoRotate bool `mapstructure:"auto_rotate"`
}

// HTTPConfig holds settings for HTTP mode.
type HTTPConfig struct {
	// Addr is the listen address of the profiling server.
	Addr string `mapstructure:"addr"`

	// Path is the URL prefix the endpoints are mounted under.
	Path string `mapstructure:"path"`

	// EnableUI exposes the index, cmdline, symbol, and trace pages.
	EnableUI bool `mapstructure:"enable_ui"`

	// Auth holds optional endpoint authentication.
	Auth *AuthConfig `mapstructure:"auth"`

	// SaveToFile also writes served profiles to the output directory.
	SaveToFile bool `mapstructure:"save_to_file"`

	// DefaultSeconds is the CPU profile duration when the request
	// does not name one.
	DefaultSeconds int `mapstructure:"default_seconds"`
}

// AuthConfig holds HTTP endpoint authentication settings.
type AuthConfig struct {
	// Enabled requires every request to authenticate.
	Enabled bool `mapstructure:"enabled"`

	// Username for basic auth.
	Username string `mapstructure:"username"`

	// Password for basic auth.
	Password string `mapstructure:"password"`

	// Token for bearer token auth.
	Token string `mapstructure:"token"`
}

// DefaultConfig returns a Config with default values. Collection is
// disabled until the caller opts in.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   false,
		Mode:      ModeFile,
		Profiles:  DefaultProfileTypes(),
		OutputDir: "./data/profiles",
		FileConfig: &FileConfig{
			Interval:      30 * time.Second,
			CPUDuration:   10 * time.Second,
			MaxFiles:      10,
			MaxTotalBytes: 256 * 1024 * 1024,
			AutoRotate:    true,
		},
		HTTPConfig: &HTTPConfig{
			Addr:           ":6060",
			Path:           "/debug/pprof",
			EnableUI:       true,
			SaveToFile:     false,
			DefaultSeconds: 30,
		},
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Mode != ModeFile && c.Mode != ModeHTTP {
		return fmt.Errorf("invalid profiling mode: %q (valid: file, http)", c.Mode)
	}

	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile type must be specified")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}

	if c.Mode == ModeFile && c.FileConfig != nil {
		if c.FileConfig.Interval < time.Second {
			return fmt.Errorf("interval must be at least 1 second")
		}
		if c.FileConfig.CPUDuration < time.Second {
			return fmt.Errorf("CPU duration must be at least 1 second")
		}
		if c.FileConfig.CPUDuration >= c.FileConfig.Interval {
			return fmt.Errorf("CPU duration must be less than interval")
		}
	}

	if c.Mode == ModeHTTP && c.HTTPConfig != nil {
		if c.HTTPConfig.Addr == "" {
			return fmt.Errorf("HTTP address is required")
		}
	}

	return nil
}

// HasProfile reports whether a profile type is enabled.
func (c *Config) HasProfile(pt ProfileType) bool {
	for _, p := range c.Profiles {
		if p == pt {
			return true
		}
	}
	return false
}
