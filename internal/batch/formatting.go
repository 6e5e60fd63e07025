package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(results []FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(results)
	case "csv":
		return formatCSV(results)
	default: // text
		return formatText(results)
	}
}

// formatJSON formats results as JSON.
func formatJSON(results []FileResult) (string, error) {
	if results == nil {
		results = []FileResult{}
	}
	batchResult := struct {
		Files []FileResult `json:"files"`
	}{Files: results}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	return string(bts), err
}

// formatCSV writes one row per entity. Files without entities, and failed
// files, get a single row with empty entity columns.
func formatCSV(results []FileResult) (string, error) {
	csvData := [][]string{{
		"file", "entity", "value", "confidence", "page_no", "extraction_status", "error",
	}}

	for _, res := range results {
		if len(res.Entities) == 0 {
			csvData = append(csvData, []string{res.File, "", "", "", "", res.ExtractionStatus, res.Error})
			continue
		}
		for _, e := range res.Entities {
			value, conf, page := "", "", ""
			if e.Value != nil {
				value = *e.Value
			}
			if e.ExtractionConfidence != nil {
				conf = fmt.Sprintf("%.3f", *e.ExtractionConfidence)
			}
			if e.PageNo != nil {
				page = strconv.Itoa(*e.PageNo)
			}
			csvData = append(csvData, []string{res.File, e.Entity, value, conf, page, res.ExtractionStatus, ""})
		}
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.WriteAll(csvData); err != nil {
		return "", err
	}
	return output.String(), nil
}

// formatText formats results as plain text.
func formatText(results []FileResult) (string, error) {
	title := cases.Title(language.English)
	var output strings.Builder
	for i, res := range results {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", res.File))
		if res.Error != "" {
			output.WriteString(fmt.Sprintf("error: %s\n", res.Error))
			continue
		}
		output.WriteString(fmt.Sprintf("%s (score %.2f)\n", title.String(res.ExtractionStatus), res.ExtractionScore))
		for _, e := range res.Entities {
			if e.Value == nil {
				output.WriteString(fmt.Sprintf("  %s: -\n", e.Entity))
				continue
			}
			conf := 0.0
			if e.ExtractionConfidence != nil {
				conf = *e.ExtractionConfidence
			}
			output.WriteString(fmt.Sprintf("  %s: %s (%.2f)\n", e.Entity, *e.Value, conf))
		}
	}
	return output.String(), nil
}
