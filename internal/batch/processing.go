package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/docflow/internal/tables"
	"golang.org/x/sync/errgroup"
)

// processSingleFile runs the configured directives against one layout file.
func processSingleFile(path string, config *Config) (FileResult, error) {
	start := time.Now()
	ext, err := tables.Open(path,
		tables.WithFailFast(config.FailFastRows),
		tables.WithMatchThreshold(config.MatchThreshold))
	if err != nil {
		return FileResult{File: path}, err
	}
	if ierr := ext.Index().Err(); ierr != nil {
		slog.Warn("layout indexed with problems", "file", path, "error", ierr)
	}

	entities := ext.ExtractAll(config.Directives)
	if entities == nil {
		entities = []tables.EntityRecord{}
	}
	res := FileResult{
		File:             path,
		Entities:         entities,
		ExtractionScore:  tables.ExtractionScore(entities),
		ExtractionStatus: tables.ExtractionStatus(entities),
		Duration:         time.Since(start),
	}

	if config.OutputDir != "" {
		if err := writeEntitiesFile(config.OutputDir, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// writeEntitiesFile stores the entities of res as <name>.entities.json in dir.
func writeEntitiesFile(dir string, res FileResult) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(res.Entities, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode entities of %s: %w", res.File, err)
	}
	base := filepath.Base(res.File)
	outPath := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".entities.json")
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}

// processFilesParallel processes files on a bounded worker pool. Results keep
// the order of files. Unless ContinueOnError is set the first failure
// cancels the remaining work.
func processFilesParallel(ctx context.Context, files []string, config *Config) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := processSingleFile(path, config)
			if err != nil {
				if !config.ContinueOnError {
					return fmt.Errorf("%s: %w", path, err)
				}
				slog.Error("failed to process layout file", "file", path, "error", err)
				res.Error = err.Error()
			} else {
				slog.Debug("processed layout file", "file", path,
					"entities", len(res.Entities), "status", res.ExtractionStatus)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
