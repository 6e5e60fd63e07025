package tables

// Extraction status values reported alongside the extraction score.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ExtractionScore is the mean confidence of the records that carry a value.
// It is 0 when no record has a value.
func ExtractionScore(records []EntityRecord) float64 {
	var sum float64
	n := 0
	for _, r := range records {
		if r.Value == nil || r.ExtractionConfidence == nil {
			continue
		}
		sum += *r.ExtractionConfidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ExtractionStatus summarizes how many records carry a value.
func ExtractionStatus(records []EntityRecord) string {
	valued := 0
	for _, r := range records {
		if r.Value != nil {
			valued++
		}
	}
	switch {
	case len(records) > 0 && valued == len(records):
		return StatusCompleted
	case valued > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
