package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MeKo-Tech/docflow/internal/layout"
	"github.com/stretchr/testify/require"
)

// DefaultCellConfidence is the confidence given to cells built by LayoutBuilder.
const DefaultCellConfidence = 0.9

// LayoutBuilder assembles layout documents for tests. Cell texts are appended
// to a shared text buffer and referenced through text anchors, the same way a
// layout provider lays them out.
type LayoutBuilder struct {
	text  strings.Builder
	runes int
	pages []layout.Page
}

// NewLayoutBuilder returns an empty builder.
func NewLayoutBuilder() *LayoutBuilder {
	return &LayoutBuilder{}
}

// Page starts a new page with the given size.
func (b *LayoutBuilder) Page(width, height float64) *LayoutBuilder {
	b.pages = append(b.pages, layout.Page{
		PageNumber: len(b.pages) + 1,
		Dimension:  &layout.Dimension{Width: width, Height: height, Unit: "pixels"},
	})
	return b
}

// Table adds a table with one header row and the given body rows to the
// current page. An empty cell text produces a cell without a text anchor.
func (b *LayoutBuilder) Table(headers []string, rows [][]string) *LayoutBuilder {
	tbl := layout.Table{
		HeaderRows: []layout.Row{b.Row(headers...)},
		BodyRows:   make([]layout.Row, 0, len(rows)),
	}
	for _, r := range rows {
		tbl.BodyRows = append(tbl.BodyRows, b.Row(r...))
	}
	return b.RawTable(tbl)
}

// RawTable adds a prebuilt table to the current page.
func (b *LayoutBuilder) RawTable(tbl layout.Table) *LayoutBuilder {
	if len(b.pages) == 0 {
		b.Page(1000, 1000)
	}
	p := &b.pages[len(b.pages)-1]
	p.Tables = append(p.Tables, tbl)
	return b
}

// Row builds a row whose cells reference the given texts.
func (b *LayoutBuilder) Row(texts ...string) layout.Row {
	row := layout.Row{Cells: make([]layout.Cell, len(texts))}
	for i, s := range texts {
		row.Cells[i] = b.Cell(s)
	}
	return row
}

// Cell appends s to the text buffer and returns a cell anchored on it.
func (b *LayoutBuilder) Cell(s string) layout.Cell {
	if s == "" {
		return layout.Cell{Layout: layout.Element{Confidence: DefaultCellConfidence}}
	}
	start := b.runes
	b.text.WriteString(s)
	b.runes += len([]rune(s))
	end := b.runes
	b.text.WriteString("\n")
	b.runes++

	x := float64(start%100) / 100
	return layout.Cell{Layout: layout.Element{
		TextAnchor: &layout.TextAnchor{TextSegments: []layout.TextSegment{
			{StartIndex: layout.Offset(start), EndIndex: layout.Offset(end)},
		}},
		Confidence: DefaultCellConfidence,
		BoundingPoly: &layout.BoundingPoly{NormalizedVertices: []layout.Vertex{
			{X: x, Y: 0.1}, {X: x + 0.1, Y: 0.1}, {X: x + 0.1, Y: 0.2}, {X: x, Y: 0.2},
		}},
	}}
}

// Build returns the assembled document.
func (b *LayoutBuilder) Build() *layout.Document {
	pages := b.pages
	if pages == nil {
		pages = []layout.Page{}
	}
	return &layout.Document{Text: b.text.String(), Pages: pages}
}

// JSON returns the assembled document encoded as layout JSON.
func (b *LayoutBuilder) JSON(t *testing.T) []byte {
	t.Helper()

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	return data
}
