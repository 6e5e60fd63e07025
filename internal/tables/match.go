package tables

import (
	"log/slog"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// MatchThreshold is the minimum header match score for a table to be
// accepted for a directive.
const MatchThreshold = 0.70

// Score returns the fraction of expected headers accounted for by the
// candidate labels: the number of candidate labels that appear anywhere in
// expected, divided by len(expected). An empty expected list scores 0.
func Score(candidate, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	matched := 0
	for _, label := range candidate {
		if slices.Contains(expected, label) {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}

// FindTable searches every indexed table, page by page, for the first one
// whose headers reach threshold against expected.
func (idx *Index) FindTable(expected []string, threshold float64) (*TableEntry, bool) {
	return findTable(idx.pages, expected, threshold)
}

// FindTable searches the tables of a single page.
func (p *PageEntry) FindTable(expected []string, threshold float64) (*TableEntry, bool) {
	return findTable([]*PageEntry{p}, expected, threshold)
}

// findTable is first-match-wins, not best-match: a later table with a higher
// score never replaces an earlier accepted one.
func findTable(pages []*PageEntry, expected []string, threshold float64) (*TableEntry, bool) {
	expected = normalizeExpected(expected)
	for _, page := range pages {
		for _, table := range page.Tables {
			if Score(table.Labels(), expected) >= threshold {
				return table, true
			}
		}
	}
	slog.Error("expected headers do not match any table",
		"expected", expected, "threshold", threshold)
	return nil, false
}

func headersMatch(table *TableEntry, expected []string, threshold float64) bool {
	return Score(table.Labels(), normalizeExpected(expected)) >= threshold
}

func normalizeExpected(expected []string) []string {
	out := make([]string, len(expected))
	for i, h := range expected {
		out[i] = norm.NFC.String(h)
	}
	return out
}
