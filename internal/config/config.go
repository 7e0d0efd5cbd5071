// Package config defines the genrun configuration, its defaults, and
// validation. Values come from a YAML config file, environment
// variables with the GENRUN prefix, and command-line flags, merged
// through viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete genrun configuration.
type Config struct {
	Admission AdmissionConfig `mapstructure:"admission"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
}

// AdmissionConfig controls the concurrent instance limit.
type AdmissionConfig struct {
	// MaxInstances is how many instances may run at once under Key.
	// Valid range: 1..admission.MaxCapacity.
	MaxInstances int `mapstructure:"max_instances"`
	// Key names the pool of instances sharing the limit. Processes
	// using different keys never contend.
	Key string `mapstructure:"key"`
	// RetryInterval is how long to wait between admission attempts
	// while the pool is full.
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	// MaxAttempts bounds the number of admission attempts.
	// 0 waits forever.
	MaxAttempts int `mapstructure:"max_attempts"`
	// LockRetries is how many times a failed table lock acquisition
	// is retried before giving up.
	LockRetries int `mapstructure:"lock_retries"`
}

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	// Level is the minimum level to log: debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Dir is the directory the JSON log file is written to.
	// Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls where the wrapped command's artifacts go.
type OutputConfig struct {
	// Directory is created before the wrapped command runs.
	Directory string `mapstructure:"directory"`
}

// Default returns a Config with all default values.
func Default() *Config {
	return &Config{
		Admission: AdmissionConfig{
			MaxInstances:  1,
			Key:           "genrun",
			RetryInterval: 10 * time.Second,
			MaxAttempts:   0,
			LockRetries:   5,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Output: OutputConfig{
			Directory: "out",
		},
	}
}

// SetDefaults registers all default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("admission.max_instances", defaults.Admission.MaxInstances)
	viper.SetDefault("admission.key", defaults.Admission.Key)
	viper.SetDefault("admission.retry_interval", defaults.Admission.RetryInterval)
	viper.SetDefault("admission.max_attempts", defaults.Admission.MaxAttempts)
	viper.SetDefault("admission.lock_retries", defaults.Admission.LockRetries)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("output.directory", defaults.Output.Directory)
}

// Load unmarshals the merged configuration and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "genrun")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".genrun"
	}
	return filepath.Join(home, ".config", "genrun")
}
