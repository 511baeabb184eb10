package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFS      = "fs"
	BackendBitcask = "bitcask"
	BackendS3      = "s3"
)

// Common errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Location     LocationConfig    `yaml:"location"`
	Pages        map[string]string `yaml:"pages"`
	ContentTypes map[string]string `yaml:"content_types"`
	Storage      StorageConfig     `yaml:"storage"`
	Logging      LogConfig         `yaml:"logging"`
}

// ServerConfig contains settings for the HTTP listeners
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	MetricsAddr       string `yaml:"metrics_addr"`
	ShutdownTimeout   int    `yaml:"shutdown_timeout"`    // in seconds
	ReadHeaderTimeout int    `yaml:"read_header_timeout"` // in seconds
}

// LocationConfig contains redirect targets
type LocationConfig struct {
	Home string `yaml:"home"`
}

// StorageConfig selects and configures the file store
type StorageConfig struct {
	Backend     string      `yaml:"backend"`
	PublicDir   string      `yaml:"public_dir"`
	BitcaskPath string      `yaml:"bitcask_path"`
	S3          S3Config    `yaml:"s3"`
	Retry       RetryConfig `yaml:"retry"`
}

// S3Config contains settings for the S3 backend
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// RetryConfig contains settings for retrying transient storage failures
type RetryConfig struct {
	MaxRetries    int     `yaml:"max_retries"`
	InitialDelay  int     `yaml:"initial_delay"` // in milliseconds
	MaxDelay      int     `yaml:"max_delay"`     // in milliseconds
	BackoffFactor float64 `yaml:"backoff_factor"`
	JitterFactor  float64 `yaml:"jitter_factor"`
}

// LogConfig contains settings for logging
type LogConfig struct {
	LogToFile   bool   `yaml:"log_to_file"`
	LogFilePath string `yaml:"log_file_path"`
	MaxSize     int    `yaml:"max_size"`    // maximum size in megabytes
	MaxBackups  int    `yaml:"max_backups"` // maximum number of old log files to retain
	MaxAge      int    `yaml:"max_age"`     // maximum number of days to retain old log files
	Compress    bool   `yaml:"compress"`
	AccessLog   bool   `yaml:"access_log"`
}

// LoadDefault returns a configuration with default values
func LoadDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":3000",
			MetricsAddr:       "",
			ShutdownTimeout:   10,
			ReadHeaderTimeout: 10,
		},
		Location: LocationConfig{
			Home: "/home",
		},
		Pages: map[string]string{
			"/home":       "home/index.html",
			"/controller": "controller/index.html",
		},
		ContentTypes: map[string]string{
			".html": "text/html",
			".css":  "text/css",
			".js":   "text/javascript",
		},
		Storage: StorageConfig{
			Backend:     BackendFS,
			PublicDir:   "public",
			BitcaskPath: "data/pages.db",
			S3: S3Config{
				Region: "us-east-1",
			},
			Retry: RetryConfig{
				MaxRetries:    2,
				InitialDelay:  100,
				MaxDelay:      1000,
				BackoffFactor: 2.0,
				JitterFactor:  0.1,
			},
		},
		Logging: LogConfig{
			LogToFile:   false,
			LogFilePath: "page-server.log",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			Compress:    true,
			AccessLog:   true,
		},
	}
}

// Load reads configuration from a file and merges it with default values
func Load(configPath string) (*Config, error) {
	cfg := LoadDefault()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// access_log defaults to on, so it is seeded before decoding to tell
	// "false" apart from "absent"
	fileCfg := Config{Logging: LogConfig{AccessLog: cfg.Logging.AccessLog}}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge server configuration
	if fileCfg.Server.Addr != "" {
		cfg.Server.Addr = fileCfg.Server.Addr
	}
	if fileCfg.Server.MetricsAddr != "" {
		cfg.Server.MetricsAddr = fileCfg.Server.MetricsAddr
	}
	if fileCfg.Server.ShutdownTimeout > 0 {
		cfg.Server.ShutdownTimeout = fileCfg.Server.ShutdownTimeout
	}
	if fileCfg.Server.ReadHeaderTimeout > 0 {
		cfg.Server.ReadHeaderTimeout = fileCfg.Server.ReadHeaderTimeout
	}

	if fileCfg.Location.Home != "" {
		cfg.Location.Home = fileCfg.Location.Home
	}

	// Page and content type maps replace the defaults as a whole
	if len(fileCfg.Pages) > 0 {
		cfg.Pages = fileCfg.Pages
	}
	if len(fileCfg.ContentTypes) > 0 {
		cfg.ContentTypes = fileCfg.ContentTypes
	}

	// Merge storage configuration
	if fileCfg.Storage.Backend != "" {
		cfg.Storage.Backend = fileCfg.Storage.Backend
	}
	if fileCfg.Storage.PublicDir != "" {
		cfg.Storage.PublicDir = fileCfg.Storage.PublicDir
	}
	if fileCfg.Storage.BitcaskPath != "" {
		cfg.Storage.BitcaskPath = fileCfg.Storage.BitcaskPath
	}
	if fileCfg.Storage.S3.Bucket != "" {
		cfg.Storage.S3.Bucket = fileCfg.Storage.S3.Bucket
	}
	if fileCfg.Storage.S3.Region != "" {
		cfg.Storage.S3.Region = fileCfg.Storage.S3.Region
	}
	if fileCfg.Storage.S3.Endpoint != "" {
		cfg.Storage.S3.Endpoint = fileCfg.Storage.S3.Endpoint
	}
	if fileCfg.Storage.S3.Prefix != "" {
		cfg.Storage.S3.Prefix = fileCfg.Storage.S3.Prefix
	}
	if fileCfg.Storage.S3.PathStyle {
		cfg.Storage.S3.PathStyle = fileCfg.Storage.S3.PathStyle
	}
	if fileCfg.Storage.Retry.MaxRetries > 0 {
		cfg.Storage.Retry.MaxRetries = fileCfg.Storage.Retry.MaxRetries
	}
	if fileCfg.Storage.Retry.InitialDelay > 0 {
		cfg.Storage.Retry.InitialDelay = fileCfg.Storage.Retry.InitialDelay
	}
	if fileCfg.Storage.Retry.MaxDelay > 0 {
		cfg.Storage.Retry.MaxDelay = fileCfg.Storage.Retry.MaxDelay
	}
	if fileCfg.Storage.Retry.BackoffFactor > 0 {
		cfg.Storage.Retry.BackoffFactor = fileCfg.Storage.Retry.BackoffFactor
	}
	if fileCfg.Storage.Retry.JitterFactor > 0 {
		cfg.Storage.Retry.JitterFactor = fileCfg.Storage.Retry.JitterFactor
	}

	// Merge logging configuration
	if fileCfg.Logging.LogToFile {
		cfg.Logging.LogToFile = fileCfg.Logging.LogToFile
	}
	if fileCfg.Logging.LogFilePath != "" {
		cfg.Logging.LogFilePath = fileCfg.Logging.LogFilePath
	}
	if fileCfg.Logging.MaxSize > 0 {
		cfg.Logging.MaxSize = fileCfg.Logging.MaxSize
	}
	if fileCfg.Logging.MaxBackups > 0 {
		cfg.Logging.MaxBackups = fileCfg.Logging.MaxBackups
	}
	if fileCfg.Logging.MaxAge > 0 {
		cfg.Logging.MaxAge = fileCfg.Logging.MaxAge
	}
	if fileCfg.Logging.Compress {
		cfg.Logging.Compress = fileCfg.Logging.Compress
	}
	cfg.Logging.AccessLog = fileCfg.Logging.AccessLog

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault attempts to load configuration from a file
// If the file doesn't exist or can't be parsed, it returns default configuration
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = LoadFromEnv()
	}
	return cfg
}

// LoadFromEnv returns the default configuration with environment overrides applied
func LoadFromEnv() *Config {
	cfg := LoadDefault()
	applyEnv(cfg)
	return cfg
}

// applyEnv lets the environment override the listen port and public directory
func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if dir := os.Getenv("PAGE_SERVER_PUBLIC_DIR"); dir != "" {
		cfg.Storage.PublicDir = dir
	}
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFS, BackendBitcask:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket is required for the s3 backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if !strings.HasPrefix(c.Location.Home, "/") {
		return fmt.Errorf("%w: location.home must start with '/', got %q", ErrInvalidConfig, c.Location.Home)
	}

	for route, file := range c.Pages {
		if !strings.HasPrefix(route, "/") {
			return fmt.Errorf("%w: page route %q must start with '/'", ErrInvalidConfig, route)
		}
		if route == "/" {
			return fmt.Errorf("%w: page route '/' is reserved for the home redirect", ErrInvalidConfig)
		}
		if file == "" {
			return fmt.Errorf("%w: page route %q has no file", ErrInvalidConfig, route)
		}
	}

	for ext, mime := range c.ContentTypes {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: content type key %q must start with '.'", ErrInvalidConfig, ext)
		}
		if mime == "" {
			return fmt.Errorf("%w: content type for %q is empty", ErrInvalidConfig, ext)
		}
	}

	return nil
}
