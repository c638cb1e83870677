package gpu

import (
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/gpuctx/devices"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MemoryPoolType selects how the platform allocator manages device memory.
type MemoryPoolType int

const (
	// MemoryPoolNone allocates and frees device memory directly on every request.
	MemoryPoolNone MemoryPoolType = iota

	// MemoryPoolCaching keeps freed blocks in power-of-two size classes for reuse.
	MemoryPoolCaching
)

// Environment variables that override the configuration, see LoadConfig and ConfigFromEnv.
const (
	PlatformEnv       = "GPUCTX_PLATFORM"
	MemoryPoolEnv     = "GPUCTX_MEMORY_POOL"
	MemoryTrackingEnv = "GPUCTX_MEMORY_TRACKING"
)

// Config of a Runtime and of the Platform it creates.
type Config struct {
	// Platform is the name of a registered platform, see RegisterPlatform.
	Platform string `yaml:"platform"`

	// NumDevices and StreamPoolSize are used by simulated platforms.
	NumDevices     int `yaml:"num_devices"`
	StreamPoolSize int `yaml:"stream_pool_size"`

	MemoryPool MemoryPoolType `yaml:"memory_pool"`

	// MemoryTracking enables Runtime.TotalMemoryByDevice and Runtime.MaxMemoryByDevice.
	MemoryTracking bool `yaml:"memory_tracking"`

	// MemoryReportThreshold is the number of bytes allocated between memory usage reports, logged
	// at verbosity level 1 when MemoryTracking is enabled. 0 disables the reports.
	MemoryReportThreshold int64 `yaml:"memory_report_threshold"`

	// LeakHandlesOnShutdown skips the destruction of library handles after Runtime.BeginShutdown.
	// At process exit the vendor driver may already be torn down, and destroying handles then can crash.
	LeakHandlesOnShutdown bool `yaml:"leak_handles_on_shutdown"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Platform:              "sim",
		NumDevices:            2,
		StreamPoolSize:        32,
		MemoryPool:            MemoryPoolNone,
		MemoryReportThreshold: 128 << 20,
		LeakHandlesOnShutdown: true,
	}
}

// LoadConfig reads the YAML configuration file at path on top of DefaultConfig, then applies
// the environment overrides (GPUCTX_PLATFORM, GPUCTX_MEMORY_POOL, GPUCTX_MEMORY_TRACKING) and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config file %q", path)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %q", path)
	}
	if err = applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return cfg, errors.WithMessagef(err, "validating config file %q", path)
	}
	return cfg, nil
}

// ConfigFromEnv returns DefaultConfig with the environment overrides applied.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(PlatformEnv); v != "" {
		cfg.Platform = v
	}
	if v := os.Getenv(MemoryPoolEnv); v != "" {
		poolType, err := MemoryPoolTypeString(v)
		if err != nil {
			return errors.Wrapf(err, "invalid $%s", MemoryPoolEnv)
		}
		cfg.MemoryPool = poolType
	}
	if v := os.Getenv(MemoryTrackingEnv); v != "" {
		tracking, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid $%s", MemoryTrackingEnv)
		}
		cfg.MemoryTracking = tracking
	}
	return nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	var errs []string
	if c.Platform == "" {
		errs = append(errs, "platform is required")
	}
	if c.NumDevices < 0 || c.NumDevices > devices.MaxDevices {
		errs = append(errs, "num_devices must be between 0 and "+strconv.Itoa(devices.MaxDevices))
	}
	if c.StreamPoolSize < 1 {
		errs = append(errs, "stream_pool_size must be at least 1")
	}
	if !c.MemoryPool.IsAMemoryPoolType() {
		errs = append(errs, "memory_pool must be one of "+strings.Join(MemoryPoolTypeStrings(), ", "))
	}
	if c.MemoryReportThreshold < 0 {
		errs = append(errs, "memory_report_threshold can't be negative")
	}
	if len(errs) > 0 {
		return invalidArgf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
