package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Output defaults
	DefaultOutputDir = "./meets"

	// Download defaults
	DefaultURLFile      = "urls.txt"
	DefaultDelay        = 5 * time.Minute
	DefaultTimeout      = 90 * time.Second
	DefaultMaxRetries   = 3
	DefaultMinValidSize = 4 * 1024

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 30 * time.Minute

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".downmeets"
	}
	return filepath.Join(home, ".downmeets")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Directory: DefaultOutputDir,
			Overwrite: false,
		},
		Download: DownloadConfig{
			URLFile:      DefaultURLFile,
			Delay:        DefaultDelay,
			Timeout:      DefaultTimeout,
			MaxRetries:   DefaultMaxRetries,
			MinValidSize: DefaultMinValidSize,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Stealth: StealthConfig{
			UserAgent: "",
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
