package config

import (
	"strings"
	"testing"

	"github.com/MeKo-Tech/docflow/internal/tables"
)

const infoLevel = "info"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level %q, got %q", infoLevel, cfg.LogLevel)
	}
	if cfg.Extraction.MatchThreshold != tables.MatchThreshold {
		t.Errorf("Expected match threshold %.2f, got %.2f", tables.MatchThreshold, cfg.Extraction.MatchThreshold)
	}
	if cfg.Extraction.FailFastRows {
		t.Error("Expected per-table row error isolation by default")
	}
	if cfg.Pipeline.StartPipelineFilename != "START_PIPELINE" {
		t.Errorf("Unexpected trigger file name %q", cfg.Pipeline.StartPipelineFilename)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"threshold above one", func(c *Config) { c.Extraction.MatchThreshold = 1.5 }, "match_threshold"},
		{"zero threshold", func(c *Config) { c.Extraction.MatchThreshold = 0 }, "match_threshold"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"bad timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
		{"bad workers", func(c *Config) { c.Batch.Workers = 0 }, "invalid batch workers"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerHour = -1 }, "invalid rate limit"},
		{"empty trigger file", func(c *Config) { c.Pipeline.StartPipelineFilename = "" }, "start_pipeline_filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !contains([]string{"a", "b"}, "b") {
		t.Error("Expected slice to contain b")
	}
	if contains(nil, "a") {
		t.Error("Expected empty slice to contain nothing")
	}
}
