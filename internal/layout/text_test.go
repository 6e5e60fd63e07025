package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchor(segs ...TextSegment) *TextAnchor {
	return &TextAnchor{TextSegments: segs}
}

func TestResolveText(t *testing.T) {
	poly := &BoundingPoly{NormalizedVertices: []Vertex{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.2}, {X: 0.3, Y: 0.4}}}

	tests := []struct {
		name     string
		el       *Element
		text     string
		wantOK   bool
		wantText string
	}{
		{
			name:   "nil element",
			el:     nil,
			text:   "abc",
			wantOK: false,
		},
		{
			name:   "no anchor",
			el:     &Element{Confidence: 0.9, BoundingPoly: poly},
			text:   "abc",
			wantOK: false,
		},
		{
			name:   "anchor without segments",
			el:     &Element{TextAnchor: anchor(), Confidence: 0.9, BoundingPoly: poly},
			text:   "abc",
			wantOK: false,
		},
		{
			name:     "single segment",
			el:       &Element{TextAnchor: anchor(TextSegment{StartIndex: 0, EndIndex: 4}), Confidence: 0.9, BoundingPoly: poly},
			text:     "Jane Doe",
			wantOK:   true,
			wantText: "Jane",
		},
		{
			name: "multiple segments concatenate",
			el: &Element{
				TextAnchor:   anchor(TextSegment{StartIndex: 0, EndIndex: 5}, TextSegment{StartIndex: 9, EndIndex: 12}),
				Confidence:   0.8,
				BoundingPoly: poly,
			},
			text:     "Jane Mary Doe",
			wantOK:   true,
			wantText: "Jane Doe",
		},
		{
			name:     "missing start defaults to zero",
			el:       &Element{TextAnchor: anchor(TextSegment{EndIndex: 3}), BoundingPoly: poly},
			text:     "abcdef",
			wantOK:   true,
			wantText: "abc",
		},
		{
			name:   "missing end defaults to zero and yields empty",
			el:     &Element{TextAnchor: anchor(TextSegment{StartIndex: 2}), BoundingPoly: poly},
			text:   "abcdef",
			wantOK: false,
		},
		{
			name:     "end past buffer is clamped",
			el:       &Element{TextAnchor: anchor(TextSegment{StartIndex: 4, EndIndex: 100}), BoundingPoly: poly},
			text:     "abcdef",
			wantOK:   true,
			wantText: "ef",
		},
		{
			name:     "offsets count runes",
			el:       &Element{TextAnchor: anchor(TextSegment{StartIndex: 0, EndIndex: 4}), BoundingPoly: poly},
			text:     "Müll und mehr",
			wantOK:   true,
			wantText: "Müll",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := ResolveText(tt.el, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, Span{}, span)
				return
			}
			assert.Equal(t, tt.wantText, span.Text)
			assert.Equal(t, tt.el.Confidence, span.Confidence)
			assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.2, 0.3, 0.4}, span.Coordinates)
		})
	}
}

func TestResolveText_MissingPolygon(t *testing.T) {
	el := &Element{TextAnchor: anchor(TextSegment{StartIndex: 0, EndIndex: 2}), Confidence: 0.5}
	span, ok := ResolveText(el, "hi there")
	require.True(t, ok)
	assert.Equal(t, "hi", span.Text)
	assert.NotNil(t, span.Coordinates)
	assert.Empty(t, span.Coordinates)
}

func TestBoundingPolyFlatten_PreservesVertexOrder(t *testing.T) {
	p := &BoundingPoly{NormalizedVertices: []Vertex{{X: 4, Y: 3}, {X: 2, Y: 1}}}
	assert.Equal(t, []float64{4, 3, 2, 1}, p.Flatten())
}

func TestText_Slice(t *testing.T) {
	text := NewText("héllo wörld")
	assert.Equal(t, 11, text.Len())
	assert.Equal(t, "héllo", text.Slice(0, 5))
	assert.Equal(t, "wörld", text.Slice(6, 100))
	assert.Equal(t, "", text.Slice(-3, 0))
	assert.Equal(t, "", text.Slice(5, 2))
}

func TestText_ResolveMatchesResolveText(t *testing.T) {
	full := "Name\nJane Doe\n"
	text := NewText(full)
	el := &Element{
		TextAnchor: anchor(TextSegment{StartIndex: 5, EndIndex: 9}, TextSegment{StartIndex: 9, EndIndex: 13}),
		Confidence: 0.8,
	}

	span, ok := text.Resolve(el)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", span.Text)

	again, ok := ResolveText(el, full)
	require.True(t, ok)
	assert.Equal(t, span, again)
}
