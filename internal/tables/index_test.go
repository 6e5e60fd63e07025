package tables

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/docflow/internal/layout"
	"github.com/MeKo-Tech/docflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex_Numbering(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(1700, 2200).
		Table([]string{"Name", "DOB"}, [][]string{{"Jane Doe", "1990-01-01"}}).
		Table([]string{"Item", "Qty"}, [][]string{{"Bolt", "4"}, {"Nut", "8"}})
	b.Page(800, 600).
		Table([]string{"Total"}, [][]string{{"12"}})

	idx := BuildIndex(b.Build(), IndexOptions{})
	require.NoError(t, idx.Err())
	assert.False(t, idx.Aborted())
	assert.Equal(t, 3, idx.TableCount())
	require.Len(t, idx.Pages(), 2)

	tbl, ok := idx.Table(1, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"Item", "Qty"}, tbl.Labels())
	assert.Len(t, tbl.Rows, 2)
	assert.Equal(t, 1, tbl.PageNum)
	assert.Equal(t, 2, tbl.TableNum)

	tbl, ok = idx.Table(2, 1)
	require.True(t, ok)
	assert.InDelta(t, 800, tbl.PageWidth, 1e-9)
	assert.InDelta(t, 600, tbl.PageHeight, 1e-9)

	_, ok = idx.Table(0, 0)
	assert.False(t, ok)
	_, ok = idx.Table(3, 1)
	assert.False(t, ok)

	w, h := idx.FallbackSize()
	assert.InDelta(t, 1700, w, 1e-9)
	assert.InDelta(t, 2200, h, 1e-9)
}

func TestBuildIndex_MissingPages(t *testing.T) {
	idx := BuildIndex(&layout.Document{Text: "x"}, IndexOptions{})

	assert.Empty(t, idx.Pages())
	assert.Zero(t, idx.TableCount())
	var structural *StructuralError
	require.ErrorAs(t, idx.Err(), &structural)
	assert.Equal(t, "pages", structural.Field)

	w, h := idx.FallbackSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestBuildIndex_NilDocument(t *testing.T) {
	idx := BuildIndex(nil, IndexOptions{})
	assert.Error(t, idx.Err())
}

func TestBuildIndex_SkipsTablesWithoutRows(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100)
	b.RawTable(layout.Table{HeaderRows: []layout.Row{b.Row("A")}})
	b.RawTable(layout.Table{BodyRows: []layout.Row{b.Row("a")}})
	b.RawTable(layout.Table{HeaderRows: []layout.Row{}, BodyRows: []layout.Row{b.Row("a")}})
	b.Table([]string{"Kept"}, [][]string{{"v"}})

	idx := BuildIndex(b.Build(), IndexOptions{})
	require.NoError(t, idx.Err())

	page, ok := idx.Page(1)
	require.True(t, ok)
	require.Len(t, page.Tables, 1)
	assert.Equal(t, 4, page.Tables[0].TableNum)
}

func TestBuildIndex_LastHeaderRowWins(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100)
	b.RawTable(layout.Table{
		HeaderRows: []layout.Row{b.Row("Group"), b.Row("Name", "DOB")},
		BodyRows:   []layout.Row{b.Row("Jane", "1990")},
	})

	idx := BuildIndex(b.Build(), IndexOptions{})
	tbl, ok := idx.Table(1, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "DOB"}, tbl.Labels())
}

func TestBuildIndex_NormalizesHeaderLabels(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"  Date of\nBirth ", "Cafe\u0301"}, [][]string{{"1990", "x"}})

	tbl, ok := BuildIndex(b.Build(), IndexOptions{}).Table(1, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"Date of Birth", "Caf\u00e9"}, tbl.Labels())
}

func TestBuildIndex_UnresolvableCells(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"A", ""}, [][]string{{"", "b"}})

	tbl, ok := BuildIndex(b.Build(), IndexOptions{}).Table(1, 1)
	require.True(t, ok)

	assert.Equal(t, "", tbl.Headers[1].Label)
	assert.Nil(t, tbl.Headers[1].Confidence)

	cell, ok := tbl.Cell(0, 0)
	require.True(t, ok)
	assert.Nil(t, cell.Value)
	assert.Nil(t, cell.ExtractionConfidence)
	assert.Nil(t, cell.ValueCoordinates)

	cell, ok = tbl.Cell(0, 1)
	require.True(t, ok)
	require.NotNil(t, cell.Value)
	assert.Equal(t, "b", *cell.Value)
	assert.False(t, cell.ManualExtraction)
	assert.Nil(t, cell.CorrectedValue)
}

func TestBuildIndex_ExtraCellsIgnored(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"A"}, [][]string{{"a", "extra"}})

	tbl, ok := BuildIndex(b.Build(), IndexOptions{}).Table(1, 1)
	require.True(t, ok)
	assert.Len(t, tbl.Rows[0], 1)
}

func shortRowLayout() *layout.Document {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"A"}, [][]string{{"a"}})
	b.Page(200, 200).
		Table([]string{"B", "C"}, [][]string{{"only-one"}}).
		Table([]string{"D"}, [][]string{{"d"}})
	b.Page(300, 300).Table([]string{"E"}, [][]string{{"e"}})
	return b.Build()
}

func TestBuildIndex_RowErrorIsolatedToTable(t *testing.T) {
	idx := BuildIndex(shortRowLayout(), IndexOptions{})

	assert.False(t, idx.Aborted())
	var rowErr *RowProcessingError
	require.ErrorAs(t, idx.Err(), &rowErr)
	assert.Equal(t, 2, rowErr.Page)
	assert.Equal(t, 1, rowErr.Table)
	assert.Equal(t, 1, rowErr.Cells)
	assert.Equal(t, 2, rowErr.Columns)

	_, ok := idx.Table(2, 1)
	assert.False(t, ok)
	_, ok = idx.Table(2, 2)
	assert.True(t, ok)
	_, ok = idx.Table(3, 1)
	assert.True(t, ok)
}

func TestBuildIndex_FailFast(t *testing.T) {
	idx := BuildIndex(shortRowLayout(), IndexOptions{FailFast: true})

	assert.True(t, idx.Aborted())
	assert.Error(t, idx.Err())
	require.Len(t, idx.Pages(), 1)
	assert.Equal(t, 1, idx.TableCount())
	_, ok := idx.Table(3, 1)
	assert.False(t, ok)
}

func TestTableEntry_CellReturnsCopy(t *testing.T) {
	b := testutil.NewLayoutBuilder()
	b.Page(100, 100).Table([]string{"A"}, [][]string{{"a"}})
	tbl, ok := BuildIndex(b.Build(), IndexOptions{}).Table(1, 1)
	require.True(t, ok)

	cell, ok := tbl.Cell(0, 0)
	require.True(t, ok)
	*cell.Value = "mutated"
	cell.ValueCoordinates[0] = -1

	again, _ := tbl.Cell(0, 0)
	assert.Equal(t, "a", *again.Value)
	assert.NotEqual(t, -1.0, again.ValueCoordinates[0])

	_, ok = tbl.Cell(1, 0)
	assert.False(t, ok)
	_, ok = tbl.Cell(0, 1)
	assert.False(t, ok)
	_, ok = tbl.Cell(-1, 0)
	assert.False(t, ok)
}

func TestBuildIndex_LargeTextScalesWithCells(t *testing.T) {
	rows := make([][]string, 1000)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("name %d", i), fmt.Sprintf("value %d", i)}
	}
	doc := testutil.NewLayoutBuilder().Page(1000, 1000).Table([]string{"Name", "Value"}, rows).Build()
	doc.Text += strings.Repeat("x", 2_000_000)

	start := time.Now()
	idx := BuildIndex(doc, IndexOptions{})
	elapsed := time.Since(start)

	table, ok := idx.Table(1, 1)
	require.True(t, ok)
	require.Len(t, table.Rows, 1000)
	cell, ok := table.Cell(999, 1)
	require.True(t, ok)
	require.NotNil(t, cell.Value)
	assert.Equal(t, "value 999", *cell.Value)
	assert.Less(t, elapsed, 2*time.Second, "indexed %d cells in %v", 2002, elapsed)
}
