package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/docflow/internal/tables"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Extraction settings
	Directives     []tables.Directive
	MatchThreshold float64
	FailFastRows   bool

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	OutputDir  string
	Format     string
	OutputFile string
	Quiet      bool
	ShowStats  bool
}

// DefaultConfig returns a configuration that reads *.json layouts with four
// workers.
func DefaultConfig() *Config {
	return &Config{
		Workers:         4,
		IncludePatterns: []string{"*.json"},
		Format:          "text",
	}
}

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	if len(c.Directives) == 0 {
		return errors.New("no directives configured")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid worker count: %d (must be positive)", c.Workers)
	}
	switch c.Format {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, csv)", c.Format)
	}
	return nil
}

// FileResult is the extraction result of one layout file.
type FileResult struct {
	File             string                `json:"file"`
	Entities         []tables.EntityRecord `json:"entities"`
	ExtractionScore  float64               `json:"extraction_score"`
	ExtractionStatus string                `json:"extraction_status"`
	Error            string                `json:"error,omitempty"`
	Duration         time.Duration         `json:"-"`
}

// Result holds the result of batch processing.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// Stats summarizes a batch run.
type Stats struct {
	TotalFiles       int
	Processed        int
	Failed           int
	Entities         int
	Completed        int
	Partial          int
	NotExtracted     int
	WorkerCount      int
	TotalDuration    time.Duration
	AveragePerFile   time.Duration
	ThroughputPerSec float64
}

// Stats computes processing statistics.
func (r *Result) Stats() Stats {
	s := Stats{
		TotalFiles:    len(r.Files),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
	}
	for _, f := range r.Files {
		if f.Error != "" {
			s.Failed++
			continue
		}
		s.Processed++
		s.Entities += len(f.Entities)
		switch f.ExtractionStatus {
		case tables.StatusCompleted:
			s.Completed++
		case tables.StatusPartial:
			s.Partial++
		default:
			s.NotExtracted++
		}
	}
	if s.TotalFiles > 0 {
		s.AveragePerFile = r.Duration / time.Duration(s.TotalFiles)
	}
	if r.Duration > 0 {
		s.ThroughputPerSec = float64(s.TotalFiles) / r.Duration.Seconds()
	}
	return s
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", stats.TotalFiles)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Entities: %d\n", stats.Entities)
	_, _ = fmt.Fprintf(w, "  Completed/partial/failed: %d/%d/%d\n", stats.Completed, stats.Partial, stats.NotExtracted)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", stats.AveragePerFile.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", stats.ThroughputPerSec)
}
