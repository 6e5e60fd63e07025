package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func valued(v string, conf float64) EntityRecord {
	return EntityRecord{CellRecord: CellRecord{Value: &v, ExtractionConfidence: &conf}}
}

func TestExtractionScore(t *testing.T) {
	assert.Zero(t, ExtractionScore(nil))
	assert.Zero(t, ExtractionScore([]EntityRecord{{Entity: "x"}}))
	assert.InDelta(t, 0.7, ExtractionScore([]EntityRecord{valued("a", 0.9), valued("b", 0.5), {Entity: "missing"}}), 1e-9)
}

func TestExtractionStatus(t *testing.T) {
	tests := []struct {
		name    string
		records []EntityRecord
		want    string
	}{
		{"empty", nil, StatusFailed},
		{"all placeholders", []EntityRecord{{}, {}}, StatusFailed},
		{"some values", []EntityRecord{valued("a", 1), {}}, StatusPartial},
		{"all values", []EntityRecord{valued("a", 1), valued("b", 1)}, StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractionStatus(tt.records))
		})
	}
}
