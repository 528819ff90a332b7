package config

import "time"

// Config represents the application configuration
type Config struct {
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Stealth  StealthConfig  `mapstructure:"stealth" yaml:"stealth"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Overwrite bool   `mapstructure:"overwrite" yaml:"overwrite"`
}

// DownloadConfig contains engine and batch settings
type DownloadConfig struct {
	URLFile      string        `mapstructure:"url_file" yaml:"url_file"`
	Delay        time.Duration `mapstructure:"delay" yaml:"delay"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	MinValidSize int64         `mapstructure:"min_valid_size" yaml:"min_valid_size"`
}

// CacheConfig contains media-URL cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// StealthConfig contains stealth mode settings
type StealthConfig struct {
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and applies defaults for
// out-of-range values.
func (c *Config) Validate() error {
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Download.URLFile == "" {
		c.Download.URLFile = DefaultURLFile
	}
	if c.Download.Delay < 0 {
		c.Download.Delay = DefaultDelay
	}
	if c.Download.Timeout < time.Second {
		c.Download.Timeout = DefaultTimeout
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = DefaultMaxRetries
	}
	if c.Download.MinValidSize <= 0 {
		c.Download.MinValidSize = DefaultMinValidSize
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	return nil
}
