package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/docflow/internal/tables"
)

// Config represents the complete configuration for the docflow application.
// It includes settings for all commands (extract, batch, serve, approve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Table extraction
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction" json:"extraction"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Document store and object storage
	Storage StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`

	// Downstream pipeline hand-off
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Auto-approval rules
	Approval ApprovalConfig `mapstructure:"approval" yaml:"approval" json:"approval"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// ExtractionConfig contains table extraction settings.
type ExtractionConfig struct {
	MatchThreshold float64 `mapstructure:"match_threshold" yaml:"match_threshold" json:"match_threshold"`
	FailFastRows   bool    `mapstructure:"fail_fast_rows" yaml:"fail_fast_rows" json:"fail_fast_rows"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// StorageConfig contains document store and bucket settings.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path" json:"database_path"`
	BucketDir    string `mapstructure:"bucket_dir" yaml:"bucket_dir" json:"bucket_dir"`
	BucketName   string `mapstructure:"bucket_name" yaml:"bucket_name" json:"bucket_name"`
}

// PipelineConfig contains settings for handing documents to the processing pipeline.
type PipelineConfig struct {
	ProcessTaskURL        string `mapstructure:"process_task_url" yaml:"process_task_url" json:"process_task_url"`
	StartPipelineFilename string `mapstructure:"start_pipeline_filename" yaml:"start_pipeline_filename" json:"start_pipeline_filename"`
	DefaultContext        string `mapstructure:"default_context" yaml:"default_context" json:"default_context"`
	ForwardTimeoutSec     int    `mapstructure:"forward_timeout_sec" yaml:"forward_timeout_sec" json:"forward_timeout_sec"`
}

// ApprovalConfig points at an optional rules file overriding the built-in rules.
type ApprovalConfig struct {
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file" json:"rules_file"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Extraction: ExtractionConfig{
			MatchThreshold: tables.MatchThreshold,
			FailFastRows:   false,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   1024,
			},
		},
		Storage: StorageConfig{
			DatabasePath: "docflow.db",
			BucketDir:    "data/buckets",
			BucketName:   "document-upload",
		},
		Pipeline: PipelineConfig{
			ProcessTaskURL:        "http://localhost:8081/upload_service/v1/process_task",
			StartPipelineFilename: "START_PIPELINE",
			DefaultContext:        "arizona",
			ForwardTimeoutSec:     60,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Validate output format
	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Extraction.MatchThreshold, "extraction.match_threshold"); err != nil {
		return err
	}
	if c.Extraction.MatchThreshold == 0 {
		return errors.New("invalid extraction.match_threshold: 0.00 (must be greater than 0)")
	}

	// Validate positive integers
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}

	if c.Pipeline.StartPipelineFilename == "" {
		return errors.New("pipeline.start_pipeline_filename must not be empty")
	}

	return nil
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
