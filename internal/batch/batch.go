// Package batch runs table directives against many layout documents.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ProcessBatch extracts entities from every layout file found under paths.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverLayoutFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover layout files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no layout files found")
	}
	slog.Debug("discovered layout files", "count", len(files), "workers", config.Workers)

	startTime := time.Now()
	results, err := processFilesParallel(ctx, files, config)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Files:       results,
		Duration:    duration,
		WorkerCount: config.Workers,
	}, nil
}
