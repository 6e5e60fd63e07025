package tables

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/docflow/internal/layout"
	"golang.org/x/text/unicode/norm"
)

// HeaderCell is one resolved header column.
type HeaderCell struct {
	Label       string    `json:"label"`
	Confidence  *float64  `json:"confidence"`
	Coordinates []float64 `json:"coordinates"`
}

// CellRecord is the extracted value of one body cell together with its
// provenance. ManualExtraction and CorrectedValue are placeholders for later
// human review and are always false/nil at extraction time.
type CellRecord struct {
	Value                *string   `json:"value"`
	ExtractionConfidence *float64  `json:"extraction_confidence"`
	ValueCoordinates     []float64 `json:"value_coordinates"`
	ManualExtraction     bool      `json:"manual_extraction"`
	CorrectedValue       *string   `json:"corrected_value"`
}

// TableEntry is the queryable form of one detected table.
type TableEntry struct {
	PageNum    int
	TableNum   int
	PageWidth  float64
	PageHeight float64
	Headers    []HeaderCell
	// Rows holds one record per header column for every body row.
	Rows [][]CellRecord
}

// Labels returns the header labels in column order.
func (t *TableEntry) Labels() []string {
	labels := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		labels[i] = h.Label
	}
	return labels
}

// Cell returns a copy of the record at the given body row and column.
func (t *TableEntry) Cell(row, col int) (CellRecord, bool) {
	if row < 0 || row >= len(t.Rows) {
		return CellRecord{}, false
	}
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return CellRecord{}, false
	}
	return cells[col].clone(), true
}

// PageEntry groups the indexed tables of one page with the page geometry.
type PageEntry struct {
	Number int
	Width  float64
	Height float64
	// Tables is ordered by TableNum. Skipped tables leave gaps in numbering.
	Tables []*TableEntry
}

// Table returns the table with the given 1-based number.
func (p *PageEntry) Table(num int) (*TableEntry, bool) {
	for _, t := range p.Tables {
		if t.TableNum == num {
			return t, true
		}
	}
	return nil, false
}

// IndexOptions tunes BuildIndex.
type IndexOptions struct {
	// FailFast stops indexing at the first malformed body row, keeping only
	// the pages completed before it. The default isolates the error to the
	// offending table and keeps indexing.
	FailFast bool
}

// Index maps page numbers to their tables.
type Index struct {
	pages   []*PageEntry
	errs    []error
	aborted bool
}

// BuildIndex walks doc once, page by page and table by table, and builds
// the table index. Problems are logged and collected on the index rather
// than returned; see Index.Err.
func BuildIndex(doc *layout.Document, opts IndexOptions) *Index {
	idx := &Index{}

	if doc == nil || !doc.HasPages() {
		err := &StructuralError{Field: "pages"}
		slog.Error("no table data found in layout", "error", err)
		idx.errs = append(idx.errs, err)
		return idx
	}

	text := layout.NewText(doc.Text)
	for i := range doc.Pages {
		page := &doc.Pages[i]
		pageNum := i + 1
		width, height := page.Size()
		if page.Dimension == nil && len(page.Tables) > 0 {
			slog.Warn("page has tables but no dimension", "page", pageNum)
		}

		entry := &PageEntry{Number: pageNum, Width: width, Height: height}

		for j := range page.Tables {
			tableNum := j + 1
			table, err := buildTable(&page.Tables[j], text, entry, tableNum)
			if err != nil {
				slog.Error("failed to index table", "page", pageNum, "table", tableNum, "error", err)
				idx.errs = append(idx.errs, err)
				if opts.FailFast {
					idx.aborted = true
					return idx
				}
				continue
			}
			if table == nil {
				slog.Debug("skipping table without header or body rows", "page", pageNum, "table", tableNum)
				continue
			}
			entry.Tables = append(entry.Tables, table)
		}

		idx.pages = append(idx.pages, entry)
	}

	slog.Debug("built table index", "pages", len(idx.pages), "tables", idx.TableCount())
	return idx
}

// buildTable indexes one raw table. It returns nil, nil when the table has
// no header or body rows to index.
func buildTable(raw *layout.Table, text *layout.Text, page *PageEntry, tableNum int) (*TableEntry, error) {
	if raw.HeaderRows == nil || raw.BodyRows == nil || len(raw.HeaderRows) == 0 {
		return nil, nil
	}

	// With several header rows the last one defines the columns.
	headerRow := raw.HeaderRows[len(raw.HeaderRows)-1]
	headers := make([]HeaderCell, len(headerRow.Cells))
	for i := range headerRow.Cells {
		span, ok := text.Resolve(&headerRow.Cells[i].Layout)
		if !ok {
			continue
		}
		conf := span.Confidence
		headers[i] = HeaderCell{
			Label:       normalizeLabel(span.Text),
			Confidence:  &conf,
			Coordinates: span.Coordinates,
		}
	}

	rows := make([][]CellRecord, len(raw.BodyRows))
	for r := range raw.BodyRows {
		cells := raw.BodyRows[r].Cells
		if len(cells) < len(headers) {
			return nil, &RowProcessingError{
				Page:    page.Number,
				Table:   tableNum,
				Row:     r,
				Cells:   len(cells),
				Columns: len(headers),
			}
		}
		row := make([]CellRecord, len(headers))
		for c := range headers {
			row[c] = newCellRecord(&cells[c].Layout, text)
		}
		rows[r] = row
	}

	return &TableEntry{
		PageNum:    page.Number,
		TableNum:   tableNum,
		PageWidth:  page.Width,
		PageHeight: page.Height,
		Headers:    headers,
		Rows:       rows,
	}, nil
}

func newCellRecord(el *layout.Element, text *layout.Text) CellRecord {
	span, ok := text.Resolve(el)
	if !ok {
		return CellRecord{}
	}
	value, conf := span.Text, span.Confidence
	return CellRecord{
		Value:                &value,
		ExtractionConfidence: &conf,
		ValueCoordinates:     span.Coordinates,
	}
}

// normalizeLabel collapses runs of whitespace and puts the label in NFC form.
func normalizeLabel(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func (c CellRecord) clone() CellRecord {
	out := c
	if c.Value != nil {
		v := *c.Value
		out.Value = &v
	}
	if c.ExtractionConfidence != nil {
		f := *c.ExtractionConfidence
		out.ExtractionConfidence = &f
	}
	if c.CorrectedValue != nil {
		v := *c.CorrectedValue
		out.CorrectedValue = &v
	}
	out.ValueCoordinates = slices.Clone(c.ValueCoordinates)
	return out
}

// Pages returns the indexed pages in ascending order.
func (idx *Index) Pages() []*PageEntry {
	return idx.pages
}

// Page returns the page with the given 1-based number.
func (idx *Index) Page(num int) (*PageEntry, bool) {
	for _, p := range idx.pages {
		if p.Number == num {
			return p, true
		}
	}
	return nil, false
}

// Table returns the table at the given 1-based page and table numbers.
func (idx *Index) Table(pageNum, tableNum int) (*TableEntry, bool) {
	page, ok := idx.Page(pageNum)
	if !ok {
		return nil, false
	}
	return page.Table(tableNum)
}

// TableCount returns the number of indexed tables.
func (idx *Index) TableCount() int {
	n := 0
	for _, p := range idx.pages {
		n += len(p.Tables)
	}
	return n
}

// FallbackSize returns the width and height of the first indexed page, or
// zeros when nothing was indexed. Placeholder records report this size.
func (idx *Index) FallbackSize() (width, height float64) {
	if len(idx.pages) == 0 {
		return 0, 0
	}
	return idx.pages[0].Width, idx.pages[0].Height
}

// Aborted reports whether indexing stopped early in fail-fast mode.
func (idx *Index) Aborted() bool {
	return idx.aborted
}

// Err returns every problem met while indexing, or nil.
func (idx *Index) Err() error {
	return errors.Join(idx.errs...)
}
