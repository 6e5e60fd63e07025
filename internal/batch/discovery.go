package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// discoverLayoutFiles expands paths into the layout files to process.
// Explicit file arguments only go through the exclude patterns; files found
// by walking a directory must also match an include pattern. The result is
// sorted and free of duplicates.
func discoverLayoutFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var layoutFiles []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := discoverInDirectory(arg, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			layoutFiles = append(layoutFiles, files...)
		} else if !matchesAnyPattern(arg, excludePatterns) {
			layoutFiles = append(layoutFiles, arg)
		}
	}

	slices.Sort(layoutFiles)
	return slices.Compact(layoutFiles), nil
}

// discoverInDirectory walks dir, descending into subdirectories only when
// recursive is set. Hidden directories are skipped.
func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	return files, filepath.WalkDir(dir, walkFn)
}

// shouldIncludeFile determines if a file should be included based on include/exclude patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return strings.EqualFold(filepath.Ext(path), ".json")
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern checks if a file's base name matches any of the given patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
