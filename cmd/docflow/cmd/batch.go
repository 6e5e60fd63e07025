package cmd

import (
	"fmt"
	"runtime"

	"github.com/MeKo-Tech/docflow/internal/batch"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel layout extraction.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Extract table entities from many layout files in parallel",
	Long: `Run one directive file against many layout JSON files using a pool of
workers. Directories are scanned for files matching --include.

Examples:
  docflow batch layouts/ --directives w2.yaml
  docflow batch layouts/ --recursive --workers 8 --format csv --output results.csv
  docflow batch a.json b.json --directives w2.json --output-dir entities/`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values.
func configToBatchConfig(cmd *cobra.Command) *batch.Config {
	cfg := GetConfig()
	batchConfig := batch.DefaultConfig()

	batchConfig.MatchThreshold, batchConfig.FailFastRows = extractionOptions(cmd)
	batchConfig.Format, batchConfig.OutputFile = outputOptions(cmd)

	batchConfig.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	batchConfig.OutputDir = cfg.Batch.OutputDir
	if cmd.Flags().Changed("output-dir") {
		batchConfig.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}

	// File discovery and progress settings are CLI-only
	batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")

	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	directives, err := loadDirectiveFlag(cmd)
	if err != nil {
		return err
	}
	config := configToBatchConfig(cmd)
	config.Directives = directives

	result, err := batch.ProcessBatch(cmd.Context(), args, config)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), config.Format, config.OutputFile, config.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if config.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), config.Quiet)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("directives", "d", "", "directive file (JSON or YAML)")
	batchCmd.Flags().Float64("match-threshold", tables.MatchThreshold, "minimum header similarity for a table match")
	batchCmd.Flags().Bool("fail-fast-rows", false, "stop indexing a document at its first malformed row")

	// Output flags
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().String("output-dir", "", "directory to write <name>.entities.json per layout")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 4, fmt.Sprintf("number of parallel workers (CPUs: %d)", runtime.NumCPU()))
	batchCmd.Flags().Bool("continue-on-error", false, "record failed files instead of aborting the batch")

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", []string{"*.json"}, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("quiet", false, "suppress informational output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
}
