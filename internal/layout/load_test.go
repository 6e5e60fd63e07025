package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLayout = `{
  "text": "Name\nDOB\nJane Doe\n1990-01-01\n",
  "pages": [{
    "pageNumber": 1,
    "dimension": {"width": 1700, "height": 2200, "unit": "pixels"},
    "tables": [{
      "headerRows": [{"cells": [
        {"layout": {"textAnchor": {"textSegments": [{"endIndex": "4"}]}, "confidence": 0.99,
          "boundingPoly": {"normalizedVertices": [{"x": 0.1, "y": 0.1}, {"x": 0.2, "y": 0.1}]}}},
        {"layout": {"textAnchor": {"textSegments": [{"startIndex": "5", "endIndex": "8"}]}, "confidence": 0.98}}
      ]}],
      "bodyRows": [{"cells": [
        {"layout": {"textAnchor": {"textSegments": [{"startIndex": 9, "endIndex": 17}]}, "confidence": 0.95}},
        {"layout": {"textAnchor": {"textSegments": [{"startIndex": "18", "endIndex": "28"}]}, "confidence": 0.9}}
      ]}]
    }]
  }]
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleLayout))
	require.NoError(t, err)

	require.True(t, doc.HasPages())
	require.Len(t, doc.Pages, 1)

	page := doc.Pages[0]
	w, h := page.Size()
	assert.InDelta(t, 1700.0, w, 1e-9)
	assert.InDelta(t, 2200.0, h, 1e-9)
	require.Len(t, page.Tables, 1)

	tbl := page.Tables[0]
	require.Len(t, tbl.HeaderRows, 1)
	require.Len(t, tbl.BodyRows, 1)

	seg := tbl.HeaderRows[0].Cells[0].Layout.TextAnchor.TextSegments[0]
	assert.Equal(t, Offset(0), seg.StartIndex)
	assert.Equal(t, Offset(4), seg.EndIndex)

	span, ok := ResolveText(&tbl.BodyRows[0].Cells[1].Layout, doc.Text)
	require.True(t, ok)
	assert.Equal(t, "1990-01-01", span.Text)
}

func TestParse_MissingPages(t *testing.T) {
	doc, err := Parse([]byte(`{"text": "abc"}`))
	require.NoError(t, err)
	assert.False(t, doc.HasPages())

	doc, err = Parse([]byte(`{"text": "abc", "pages": []}`))
	require.NoError(t, err)
	assert.True(t, doc.HasPages())
	assert.Empty(t, doc.Pages)
}

func TestParse_AbsentRowsStayNil(t *testing.T) {
	doc, err := Parse([]byte(`{"pages": [{"tables": [{"bodyRows": []}]}]}`))
	require.NoError(t, err)
	tbl := doc.Pages[0].Tables[0]
	assert.Nil(t, tbl.HeaderRows)
	assert.NotNil(t, tbl.BodyRows)
}

func TestOffset_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Offset
		wantErr bool
	}{
		{in: `12`, want: 12},
		{in: `"12"`, want: 12},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `12.0`, want: 12},
		{in: `"abc"`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var o Offset
			err := o.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, o)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLayout), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleLayout))
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Jane Doe")
}
