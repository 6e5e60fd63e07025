package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/docflow/internal/batch"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/spf13/cobra"
)

// extractCmd runs a directive file against one layout document.
var extractCmd = &cobra.Command{
	Use:   "extract <layout.json>",
	Short: "Extract table entities from a layout JSON file",
	Long: `Extract entities from the tables of a Document AI layout JSON file.

The directive file (JSON or YAML) names the expected table headers and the
cells to extract. Each directive can pin a table by page_num/table_num
(1-based) or leave both at 0 to search every page.

Examples:
  docflow extract layout.json --directives w2.yaml
  docflow extract layout.json --directives w2.json --format json --output entities.json
  docflow extract layout.json --directives w2.yaml --match-threshold 0.9`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runExtractCommand,
}

// extractionOptions maps configuration and flags onto extractor settings.
func extractionOptions(cmd *cobra.Command) (threshold float64, failFast bool) {
	cfg := GetConfig()
	threshold = cfg.Extraction.MatchThreshold
	if cmd.Flags().Changed("match-threshold") {
		threshold, _ = cmd.Flags().GetFloat64("match-threshold")
	}
	failFast = cfg.Extraction.FailFastRows
	if cmd.Flags().Changed("fail-fast-rows") {
		failFast, _ = cmd.Flags().GetBool("fail-fast-rows")
	}
	return threshold, failFast
}

// outputOptions maps configuration and flags onto the output format and file.
func outputOptions(cmd *cobra.Command) (format, file string) {
	cfg := GetConfig()
	format = cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	file = cfg.Output.File
	if cmd.Flags().Changed("output") {
		file, _ = cmd.Flags().GetString("output")
	}
	return format, file
}

func loadDirectiveFlag(cmd *cobra.Command) ([]tables.Directive, error) {
	path, _ := cmd.Flags().GetString("directives")
	if path == "" {
		return nil, errors.New("--directives is required")
	}
	directives, err := tables.LoadDirectives(path)
	if err != nil {
		return nil, err
	}
	if len(directives) == 0 {
		return nil, fmt.Errorf("%s contains no directives", path)
	}
	return directives, nil
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	directives, err := loadDirectiveFlag(cmd)
	if err != nil {
		return err
	}
	threshold, failFast := extractionOptions(cmd)
	format, outputFile := outputOptions(cmd)

	ext, err := tables.Open(args[0], tables.WithMatchThreshold(threshold), tables.WithFailFast(failFast))
	if err != nil {
		return err
	}
	entities := ext.ExtractAll(directives)
	if entities == nil {
		entities = []tables.EntityRecord{}
	}

	result := &batch.Result{Files: []batch.FileResult{{
		File:             args[0],
		Entities:         entities,
		ExtractionScore:  tables.ExtractionScore(entities),
		ExtractionStatus: tables.ExtractionStatus(entities),
	}}, WorkerCount: 1}
	return result.SaveResults(cmd.OutOrStdout(), format, outputFile, false)
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("directives", "d", "", "directive file (JSON or YAML)")
	extractCmd.Flags().Float64("match-threshold", tables.MatchThreshold, "minimum header similarity for a table match")
	extractCmd.Flags().Bool("fail-fast-rows", false, "stop indexing a document at its first malformed row")
	extractCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	extractCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}
