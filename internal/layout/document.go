// Package layout holds the in-memory form of a parsed document layout graph:
// the shared text buffer, pages, and the tables detected on each page.
//
// The JSON shape follows the Document AI output format, so a processor
// response can be decoded directly with Load or Parse.
package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a parsed layout graph. It is not mutated after loading.
type Document struct {
	// Text is the raw text buffer every text anchor points into.
	Text string `json:"text"`
	// Pages is nil when the source had no "pages" field at all.
	Pages []Page `json:"pages"`
}

// Page is a single page of the layout graph.
type Page struct {
	PageNumber int        `json:"pageNumber,omitempty"`
	Dimension  *Dimension `json:"dimension,omitempty"`
	Tables     []Table    `json:"tables,omitempty"`
}

// Dimension is the page size in the unit reported by the layout provider.
type Dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
}

// Table is a raw detected table. A nil row slice means the field was absent
// from the source, an empty one means it was present but empty.
type Table struct {
	HeaderRows []Row `json:"headerRows"`
	BodyRows   []Row `json:"bodyRows"`
}

// Row is one table row.
type Row struct {
	Cells []Cell `json:"cells"`
}

// Cell is one table cell.
type Cell struct {
	Layout  Element `json:"layout"`
	RowSpan int     `json:"rowSpan,omitempty"`
	ColSpan int     `json:"colSpan,omitempty"`
}

// Element is the layout of a single text-bearing element.
type Element struct {
	TextAnchor   *TextAnchor   `json:"textAnchor,omitempty"`
	Confidence   float64       `json:"confidence"`
	BoundingPoly *BoundingPoly `json:"boundingPoly,omitempty"`
}

// TextAnchor references one or more slices of Document.Text.
type TextAnchor struct {
	TextSegments []TextSegment `json:"textSegments,omitempty"`
	Content      string        `json:"content,omitempty"`
}

// TextSegment is a half-open [StartIndex, EndIndex) range. Both default to 0
// when omitted.
type TextSegment struct {
	StartIndex Offset `json:"startIndex,omitempty"`
	EndIndex   Offset `json:"endIndex,omitempty"`
}

// BoundingPoly is a polygon in normalized page coordinates.
type BoundingPoly struct {
	NormalizedVertices []Vertex `json:"normalizedVertices,omitempty"`
}

// Vertex is a normalized point; omitted coordinates are 0.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset is a text offset. Protobuf JSON renders int64 values as strings, so
// both "12" and 12 are accepted.
type Offset int64

// UnmarshalJSON implements json.Unmarshaler.
func (o *Offset) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*o = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid text offset %q: %w", s, err)
		}
		*o = Offset(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		var f float64
		if ferr := json.Unmarshal(data, &f); ferr != nil {
			return fmt.Errorf("invalid text offset %s: %w", data, err)
		}
		n = int64(f)
	}
	*o = Offset(n)
	return nil
}

// HasPages reports whether the source document carried a "pages" field.
func (d *Document) HasPages() bool {
	return d.Pages != nil
}

// Size returns the page width and height, zero when the page has no dimension.
func (p *Page) Size() (width, height float64) {
	if p.Dimension == nil {
		return 0, 0
	}
	return p.Dimension.Width, p.Dimension.Height
}
