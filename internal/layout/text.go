package layout

import "strings"

// Span is the resolved content of a layout element: its text, the element's
// confidence and its bounding polygon flattened to x0, y0, x1, y1, ...
type Span struct {
	Text        string
	Confidence  float64
	Coordinates []float64
}

// Text is a document text buffer decoded to runes once, so that resolving
// many anchors costs time proportional to the anchored spans only.
type Text struct {
	runes []rune
}

// NewText decodes s for anchor resolution.
func NewText(s string) *Text {
	return &Text{runes: []rune(s)}
}

// Len returns the number of runes in the buffer.
func (t *Text) Len() int {
	return len(t.runes)
}

// Slice returns the runes in [start, end) as a string. Offsets are clamped
// to the buffer bounds.
func (t *Text) Slice(start, end int64) string {
	s, e := clamp(start, len(t.runes)), clamp(end, len(t.runes))
	if s >= e {
		return ""
	}
	return string(t.runes[s:e])
}

// Resolve turns an element's text anchor into a Span. It returns false
// when the element has no anchor, no segments, or the segments resolve to an
// empty string; in that case no part of the Span is meaningful.
func (t *Text) Resolve(el *Element) (Span, bool) {
	if el == nil || el.TextAnchor == nil || len(el.TextAnchor.TextSegments) == 0 {
		return Span{}, false
	}

	var b strings.Builder
	for _, seg := range el.TextAnchor.TextSegments {
		b.WriteString(t.Slice(int64(seg.StartIndex), int64(seg.EndIndex)))
	}

	text := b.String()
	if text == "" {
		return Span{}, false
	}

	return Span{
		Text:        text,
		Confidence:  el.Confidence,
		Coordinates: el.BoundingPoly.Flatten(),
	}, true
}

// ResolveText resolves a single element against fullText. Offsets index
// runes of fullText. Callers resolving many elements of one document should
// use NewText once and call Resolve.
func ResolveText(el *Element, fullText string) (Span, bool) {
	return NewText(fullText).Resolve(el)
}

// Flatten returns the polygon vertices as consecutive x, y values in vertex
// order. A nil polygon yields an empty, non-nil slice.
func (p *BoundingPoly) Flatten() []float64 {
	if p == nil {
		return []float64{}
	}
	coords := make([]float64, 0, 2*len(p.NormalizedVertices))
	for _, v := range p.NormalizedVertices {
		coords = append(coords, v.X, v.Y)
	}
	return coords
}

func clamp(i int64, n int) int {
	if i < 0 {
		return 0
	}
	if i > int64(n) {
		return n
	}
	return int(i)
}
