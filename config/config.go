package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Port            int           `mapstructure:"port" yaml:"port" toml:"port" json:"port"`
	Backlog         int           `mapstructure:"backlog" yaml:"backlog" toml:"backlog" json:"backlog"`
	RootDir         string        `mapstructure:"root_dir" yaml:"root_dir" toml:"root_dir" json:"root_dir"`
	CacheSize       int           `mapstructure:"cache_size" yaml:"cache_size" toml:"cache_size" json:"cache_size"`
	HashSize        int           `mapstructure:"hash_size" yaml:"hash_size" toml:"hash_size" json:"hash_size"`
	HashFunc        string        `mapstructure:"hash_func" yaml:"hash_func" toml:"hash_func" json:"hash_func"`
	PoolSize        int           `mapstructure:"pool_size" yaml:"pool_size" toml:"pool_size" json:"pool_size"`
	BlockSize       int           `mapstructure:"block_size" yaml:"block_size" toml:"block_size" json:"block_size"`
	MaxRequestSize  int           `mapstructure:"max_request_size" yaml:"max_request_size" toml:"max_request_size" json:"max_request_size"`
	MaxResponseSize int           `mapstructure:"max_response_size" yaml:"max_response_size" toml:"max_response_size" json:"max_response_size"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" toml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" toml:"write_timeout" json:"write_timeout"`
	MetricsAddr     string        `mapstructure:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr" json:"metrics_addr"`
	StatsRoute      string        `mapstructure:"stats_route" yaml:"stats_route" toml:"stats_route" json:"stats_route"`
	GCProfile       string        `mapstructure:"gc_profile" yaml:"gc_profile" toml:"gc_profile" json:"gc_profile"`
	LockOSThreads   bool          `mapstructure:"lock_os_threads" yaml:"lock_os_threads" toml:"lock_os_threads" json:"lock_os_threads"`
	Env             string        `mapstructure:"env" yaml:"env" toml:"env" json:"env"`

	Log    LogConfig     `mapstructure:"log" yaml:"log" toml:"log" json:"log"`
	Routes []RouteConfig `mapstructure:"routes" yaml:"routes" toml:"routes" json:"routes"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" toml:"level" json:"level"`    // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format" toml:"format" json:"format"` // text, json
}

// RouteConfig is a static route alias: Path serves File under RootDir
type RouteConfig struct {
	Path    string   `mapstructure:"path" yaml:"path" toml:"path" json:"path"`
	File    string   `mapstructure:"file" yaml:"file" toml:"file" json:"file"`
	Methods []string `mapstructure:"methods" yaml:"methods,omitempty" toml:"methods,omitempty" json:"methods,omitempty"`
}

// Defaults
const (
	DefaultPort            = 8080
	DefaultBacklog         = 128
	DefaultRootDir         = "./static"
	DefaultCacheSize       = 128
	DefaultHashSize        = 128
	DefaultBlockSize       = 2
	DefaultMaxRequestSize  = 8 * 1024
	DefaultMaxResponseSize = 64 << 20
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:            DefaultPort,
		Backlog:         DefaultBacklog,
		RootDir:         DefaultRootDir,
		CacheSize:       DefaultCacheSize,
		HashSize:        DefaultHashSize,
		HashFunc:        "default",
		PoolSize:        runtime.NumCPU(),
		BlockSize:       DefaultBlockSize,
		MaxRequestSize:  DefaultMaxRequestSize,
		MaxResponseSize: DefaultMaxResponseSize,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		GCProfile:       "default",
		Env:             "development",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// CacheEnabled reports whether responses are cached
func (c *Config) CacheEnabled() bool {
	return c.CacheSize > 0
}

// Error is a validation failure on one field
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &Error{Field: "port", Message: fmt.Sprintf("%d is outside 0..65535", c.Port)}
	}
	if c.Backlog < 0 {
		return &Error{Field: "backlog", Message: "must not be negative"}
	}
	if c.RootDir == "" {
		return &Error{Field: "root_dir", Message: "is required"}
	}
	if c.CacheSize < 0 {
		return &Error{Field: "cache_size", Message: "must not be negative"}
	}
	if c.HashSize < 1 {
		return &Error{Field: "hash_size", Message: "must be positive"}
	}
	switch c.HashFunc {
	case "", "default", "xxhash":
	default:
		return &Error{Field: "hash_func", Message: fmt.Sprintf("unknown hash %q", c.HashFunc)}
	}
	if c.PoolSize < 1 {
		return &Error{Field: "pool_size", Message: "must be positive"}
	}
	if c.BlockSize < 1 {
		return &Error{Field: "block_size", Message: "must be positive"}
	}
	if c.MaxRequestSize < 1 {
		return &Error{Field: "max_request_size", Message: "must be positive"}
	}
	if c.MaxResponseSize < 0 {
		return &Error{Field: "max_response_size", Message: "must not be negative"}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return &Error{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	for i, r := range c.Routes {
		if r.Path == "" || r.File == "" {
			return &Error{Field: fmt.Sprintf("routes[%d]", i), Message: "path and file are required"}
		}
	}
	return nil
}
