package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults when the corresponding Config field is unset.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8000
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxQueueDepth = 8
	DefaultMaxWait       = 10 * time.Minute
	DefaultMaxBodyBytes  = 1 << 20
	DefaultPullAttempts  = 3
)

// Config holds runtime tunables for the CLI and server.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Host      string `json:"host" yaml:"host" toml:"host"`
	Port      int    `json:"port" yaml:"port" toml:"port"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	DefaultModel           string `json:"default_model" yaml:"default_model" toml:"default_model"`
	MaxQueueDepth          int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds         int    `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	GenerateTimeoutSeconds int    `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`

	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	// WorkerCommand is the external inference worker and its leading arguments.
	WorkerCommand      []string `json:"worker_command" yaml:"worker_command" toml:"worker_command"`
	RequireAccelerator *bool    `json:"require_accelerator" yaml:"require_accelerator" toml:"require_accelerator"`

	PullMaxAttempts    int `json:"pull_max_attempts" yaml:"pull_max_attempts" toml:"pull_max_attempts"`
	PullTimeoutSeconds int `json:"pull_timeout_seconds" yaml:"pull_timeout_seconds" toml:"pull_timeout_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, &ConfigError{Op: "empty config path"}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &ConfigError{Op: "read " + path, Err: err}
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, &ConfigError{Op: fmt.Sprintf("unsupported config extension: %s", ext)}
	}
	if err != nil {
		return Config{}, &ConfigError{Op: "parse " + path, Err: err}
	}
	return cfg, nil
}

// LoadOptional loads path when it is non-empty and returns a zero Config otherwise.
func LoadOptional(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	return Load(path)
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWaitSeconds <= 0 {
		c.MaxWaitSeconds = int(DefaultMaxWait / time.Second)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.PullMaxAttempts <= 0 {
		c.PullMaxAttempts = DefaultPullAttempts
	}
	if c.RequireAccelerator == nil {
		v := true
		c.RequireAccelerator = &v
	}
	return c
}

// MaxWait returns the admission wait as a duration.
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitSeconds) * time.Second }

// GenerateTimeout returns the per-request generation timeout; zero disables it.
func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// PullTimeout returns the per-attempt download timeout; zero disables it.
func (c Config) PullTimeout() time.Duration {
	return time.Duration(c.PullTimeoutSeconds) * time.Second
}

// Addr returns host:port for the HTTP listener.
func (c Config) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }
