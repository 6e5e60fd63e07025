package tables

import (
	"testing"

	"github.com/MeKo-Tech/docflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		candidate []string
		expected  []string
		want      float64
	}{
		{"identical", []string{"Name", "DOB"}, []string{"Name", "DOB"}, 1.0},
		{"no overlap", []string{"Name", "DOB"}, []string{"Unrelated", "Fields"}, 0},
		{"partial", []string{"Name", "Phone"}, []string{"Name", "DOB"}, 0.5},
		{"empty expected", []string{"Name"}, nil, 0},
		{"empty candidate", nil, []string{"Name"}, 0},
		{"extra candidate columns", []string{"A", "B", "C", "D"}, []string{"A", "B", "C"}, 1.0},
		{"three of four", []string{"A", "B", "C"}, []string{"A", "B", "C", "X"}, 0.75},
		{"order independent", []string{"DOB", "Name"}, []string{"Name", "DOB"}, 1.0},
		{"case sensitive", []string{"name"}, []string{"Name"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.candidate, tt.expected), 1e-9)
		})
	}
}

func TestScore_SelfIsOne(t *testing.T) {
	for _, headers := range [][]string{{"a"}, {"a", "b"}, {"x", "y", "z", "w"}} {
		assert.InDelta(t, 1.0, Score(headers, headers), 1e-9)
	}
}

func TestFindTable_FirstMatchWins(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"Other"}, [][]string{{"o"}})
	b.Page(200, 200).
		Table([]string{"A", "B", "C", "Z"}, [][]string{{"1", "2", "3", "4"}}).
		Table([]string{"A", "B", "C", "D"}, [][]string{{"1", "2", "3", "4"}})
	idx := BuildIndex(b.Build(), IndexOptions{})

	// The first table scores 0.75 and is accepted although the second
	// matches exactly.
	tbl, ok := idx.FindTable([]string{"A", "B", "C", "D"}, MatchThreshold)
	require.True(t, ok)
	assert.Equal(t, 2, tbl.PageNum)
	assert.Equal(t, 1, tbl.TableNum)
}

func TestFindTable_NeverBelowThreshold(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).
		Table([]string{"A", "B", "X"}, [][]string{{"1", "2", "3"}}).
		Table([]string{"A", "Y", "Z"}, [][]string{{"1", "2", "3"}})
	idx := BuildIndex(b.Build(), IndexOptions{})

	expected := []string{"A", "B", "C"}
	_, ok := idx.FindTable(expected, MatchThreshold)
	assert.False(t, ok)

	for _, threshold := range []float64{0.1, 0.5, 0.7, 1.0} {
		tbl, ok := idx.FindTable(expected, threshold)
		if ok {
			assert.GreaterOrEqual(t, Score(tbl.Labels(), expected), threshold)
		}
	}
}

func TestPageEntry_FindTableScopedToPage(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"Name"}, [][]string{{"n"}})
	b.Page(200, 200).Table([]string{"Other"}, [][]string{{"o"}})
	idx := BuildIndex(b.Build(), IndexOptions{})

	page, ok := idx.Page(2)
	require.True(t, ok)
	_, ok = page.FindTable([]string{"Name"}, MatchThreshold)
	assert.False(t, ok)

	page, _ = idx.Page(1)
	tbl, ok := page.FindTable([]string{"Name"}, MatchThreshold)
	require.True(t, ok)
	assert.Equal(t, 1, tbl.PageNum)
}

func TestFindTable_NormalizesExpected(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"Caf\u00e9"}, [][]string{{"x"}})
	idx := BuildIndex(b.Build(), IndexOptions{})

	_, ok := idx.FindTable([]string{"Cafe\u0301"}, MatchThreshold)
	assert.True(t, ok)
}
