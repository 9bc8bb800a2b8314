package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Index       IndexConfig   `toml:"index"`
	Cleanup     CleanupConfig `toml:"cleanup"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

// StorageConfig selects and configures the blob store driver.
type StorageConfig struct {
	Driver string       `toml:"driver" validate:"oneof=badger s3 memory"` // "badger", "s3", or "memory"
	Bucket string       `toml:"bucket" validate:"required"`               // logical bucket/namespace for all job blobs
	Badger BadgerConfig `toml:"badger"`
	S3     S3Config     `toml:"s3"`
}

// BadgerConfig represents the embedded BadgerDB driver configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// S3Config represents the S3 (or S3-compatible) driver configuration
type S3Config struct {
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Endpoint        string `toml:"endpoint"` // Set for S3-compatible services (MinIO etc.)
}

// IndexConfig bounds the job index and per-job log sequences.
type IndexConfig struct {
	MaxJobs       int    `toml:"max_jobs" validate:"min=1"`        // Oldest-by-start-time evicted past this
	MaxLogEntries int    `toml:"max_log_entries" validate:"min=1"` // Oldest log entries dropped past this
	IndexKey      string `toml:"index_key" validate:"required"`    // Fixed blob key for the job index
	LogKeyPrefix  string `toml:"log_key_prefix" validate:"required"`
}

// CleanupConfig drives the scheduled retention and stuck-job sweeps.
type CleanupConfig struct {
	Enabled             bool   `toml:"enabled"`
	RetentionDays       int    `toml:"retention_days" validate:"min=1"`
	RetentionSchedule   string `toml:"retention_schedule"` // Cron schedule format
	StuckTimeoutMinutes int    `toml:"stuck_timeout_minutes" validate:"min=1"`
	StuckSchedule       string `toml:"stuck_schedule"`
	StuckScanLimit      int    `toml:"stuck_scan_limit" validate:"min=1"` // Bounds the stuck sweep scan
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// LogKey returns the blob key holding one job's log sequence.
func (c *IndexConfig) LogKey(jobID string) string {
	return c.LogKeyPrefix + jobID + ".json"
}

// NewDefaultConfig returns the configuration defaults. Files and environment
// variables layer over these.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8985,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Driver: "badger",
			Bucket: "tabula",
			Badger: BadgerConfig{
				Path:           "./data/tabula",
				ResetOnStartup: false,
			},
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Index: IndexConfig{
			MaxJobs:       100,
			MaxLogEntries: 200,
			IndexKey:      "jobs/index.json",
			LogKeyPrefix:  "jobs/logs/",
		},
		Cleanup: CleanupConfig{
			Enabled:             true,
			RetentionDays:       30,
			RetentionSchedule:   "0 3 * * *", // Daily at 03:00
			StuckTimeoutMinutes: 30,
			StuckSchedule:       "*/10 * * * *", // Every 10 minutes
			StuckScanLimit:      500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TABULA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("TABULA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TABULA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if driver := os.Getenv("TABULA_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = driver
	}
	if bucket := os.Getenv("TABULA_STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if badgerPath := os.Getenv("TABULA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if region := os.Getenv("TABULA_S3_REGION"); region != "" {
		config.Storage.S3.Region = region
	}
	if accessKey := os.Getenv("TABULA_S3_ACCESS_KEY_ID"); accessKey != "" {
		config.Storage.S3.AccessKeyID = accessKey
	}
	if secretKey := os.Getenv("TABULA_S3_SECRET_ACCESS_KEY"); secretKey != "" {
		config.Storage.S3.SecretAccessKey = secretKey
	}
	if endpoint := os.Getenv("TABULA_S3_ENDPOINT"); endpoint != "" {
		config.Storage.S3.Endpoint = endpoint
	}

	if maxJobs := os.Getenv("TABULA_INDEX_MAX_JOBS"); maxJobs != "" {
		if n, err := strconv.Atoi(maxJobs); err == nil {
			config.Index.MaxJobs = n
		}
	}
	if maxLogs := os.Getenv("TABULA_INDEX_MAX_LOG_ENTRIES"); maxLogs != "" {
		if n, err := strconv.Atoi(maxLogs); err == nil {
			config.Index.MaxLogEntries = n
		}
	}

	if retention := os.Getenv("TABULA_CLEANUP_RETENTION_DAYS"); retention != "" {
		if n, err := strconv.Atoi(retention); err == nil {
			config.Cleanup.RetentionDays = n
		}
	}
	if timeout := os.Getenv("TABULA_CLEANUP_STUCK_TIMEOUT_MINUTES"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			config.Cleanup.StuckTimeoutMinutes = n
		}
	}

	if level := os.Getenv("TABULA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("TABULA_LOG_OUTPUT"); output != "" {
		config.Logging.Output = strings.Split(output, ",")
	}
}

// validateConfig runs struct-tag validation over the merged configuration
func validateConfig(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment returns true when running in a development environment
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}
