package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. FASTSERVE_PORT
const EnvPrefix = "FASTSERVE"

// Manager layers configuration sources:
// defaults < config file < FASTSERVE_* environment < flags.
type Manager struct {
	v    *viper.Viper
	used string
}

// NewManager creates a manager seeded with Default()
func NewManager() *Manager {
	v := viper.New()
	d := Default()

	v.SetDefault("port", d.Port)
	v.SetDefault("backlog", d.Backlog)
	v.SetDefault("root_dir", d.RootDir)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("hash_size", d.HashSize)
	v.SetDefault("hash_func", d.HashFunc)
	v.SetDefault("pool_size", d.PoolSize)
	v.SetDefault("block_size", d.BlockSize)
	v.SetDefault("max_request_size", d.MaxRequestSize)
	v.SetDefault("max_response_size", d.MaxResponseSize)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("write_timeout", d.WriteTimeout)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("stats_route", d.StatsRoute)
	v.SetDefault("gc_profile", d.GCProfile)
	v.SetDefault("lock_os_threads", d.LockOSThreads)
	v.SetDefault("env", d.Env)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Manager{v: v}
}

// Flags registers the override flags on fs. Flag names use dashes;
// they bind to the underscore config keys.
func (m *Manager) Flags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int("port", d.Port, "listening port (0 picks a free port)")
	fs.Int("backlog", d.Backlog, "listen backlog")
	fs.String("root-dir", d.RootDir, "directory static files are served from")
	fs.Int("cache-size", d.CacheSize, "cached responses (0 disables the cache)")
	fs.Int("hash-size", d.HashSize, "cache index buckets")
	fs.Int("pool-size", d.PoolSize, "worker count")
	fs.Int("block-size", d.BlockSize, "workers per queue shard")
	fs.Int("max-request-size", d.MaxRequestSize, "request read buffer in bytes")
	fs.Int("max-response-size", d.MaxResponseSize, "largest response body in bytes")
	fs.String("metrics-addr", d.MetricsAddr, "address for the Prometheus endpoint (empty disables)")
	fs.String("stats-route", d.StatsRoute, "path of the built-in stats route (empty disables)")
	fs.String("gc-profile", d.GCProfile, "GC profile: default, throughput or latency")
	fs.Bool("lock-os-threads", d.LockOSThreads, "pin each worker to its own OS thread")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: text or json")
}

// flagKeys maps flag names to config keys
var flagKeys = map[string]string{
	"port":              "port",
	"backlog":           "backlog",
	"root-dir":          "root_dir",
	"cache-size":        "cache_size",
	"hash-size":         "hash_size",
	"pool-size":         "pool_size",
	"block-size":        "block_size",
	"max-request-size":  "max_request_size",
	"max-response-size": "max_response_size",
	"metrics-addr":      "metrics_addr",
	"stats-route":       "stats_route",
	"gc-profile":        "gc_profile",
	"lock-os-threads":   "lock_os_threads",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// BindFlags binds the flags registered by Flags. A flag only overrides
// lower layers when the user set it.
func (m *Manager) BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := m.v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads file (when non-empty) and returns the merged, validated config
func (m *Manager) Load(file string) (*Config, error) {
	if file != "" {
		m.v.SetConfigFile(file)
		if err := m.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		m.used = m.v.ConfigFileUsed()
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file Load read, if any
func (m *Manager) ConfigFileUsed() string {
	return m.used
}

// Set overrides a key at the highest precedence
func (m *Manager) Set(key string, value any) {
	m.v.Set(key, value)
}

// Encode renders cfg in the format named by ext (.yaml, .yml, .toml, .json)
func Encode(cfg *Config, ext string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(tomlConfig(cfg)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unsupported config format %q", ext)
}

// Save writes cfg to path, choosing the format from the extension
func Save(cfg *Config, path string) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// tomlFile mirrors Config with durations as strings, which viper decodes
// back into time.Duration
type tomlFile struct {
	Port            int           `toml:"port"`
	Backlog         int           `toml:"backlog"`
	RootDir         string        `toml:"root_dir"`
	CacheSize       int           `toml:"cache_size"`
	HashSize        int           `toml:"hash_size"`
	HashFunc        string        `toml:"hash_func"`
	PoolSize        int           `toml:"pool_size"`
	BlockSize       int           `toml:"block_size"`
	MaxRequestSize  int           `toml:"max_request_size"`
	MaxResponseSize int           `toml:"max_response_size"`
	ReadTimeout     string        `toml:"read_timeout"`
	WriteTimeout    string        `toml:"write_timeout"`
	MetricsAddr     string        `toml:"metrics_addr"`
	StatsRoute      string        `toml:"stats_route"`
	GCProfile       string        `toml:"gc_profile"`
	LockOSThreads   bool          `toml:"lock_os_threads"`
	Env             string        `toml:"env"`
	Log             LogConfig     `toml:"log"`
	Routes          []RouteConfig `toml:"routes,omitempty"`
}

func tomlConfig(c *Config) tomlFile {
	return tomlFile{
		Port:            c.Port,
		Backlog:         c.Backlog,
		RootDir:         c.RootDir,
		CacheSize:       c.CacheSize,
		HashSize:        c.HashSize,
		HashFunc:        c.HashFunc,
		PoolSize:        c.PoolSize,
		BlockSize:       c.BlockSize,
		MaxRequestSize:  c.MaxRequestSize,
		MaxResponseSize: c.MaxResponseSize,
		ReadTimeout:     c.ReadTimeout.String(),
		WriteTimeout:    c.WriteTimeout.String(),
		MetricsAddr:     c.MetricsAddr,
		StatsRoute:      c.StatsRoute,
		GCProfile:       c.GCProfile,
		LockOSThreads:   c.LockOSThreads,
		Env:             c.Env,
		Log:             c.Log,
		Routes:          c.Routes,
	}
}
