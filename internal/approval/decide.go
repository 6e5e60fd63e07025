package approval

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision statuses.
const (
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
	StatusReview   = "Review"
)

// Scores are the stage scores of one document. A nil score was not
// produced by its stage.
type Scores struct {
	Validation *float64 `json:"validation_score"`
	Matching   *float64 `json:"matching_score"`
	Extraction *float64 `json:"extraction_score"`
}

func (s Scores) get(name string) (float64, bool) {
	var p *float64
	switch name {
	case ScoreValidation:
		p = s.Validation
	case ScoreMatching:
		p = s.Matching
	case ScoreExtraction:
		p = s.Extraction
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Decision is the outcome of evaluating a document against the rules.
type Decision struct {
	Status string `json:"autoapproved_status"`
	// Rule names the rule set that decided, empty for Review.
	Rule string `json:"rule,omitempty"`
	// IsAutoApproved is "yes" when no human review is needed.
	IsAutoApproved string `json:"is_autoapproved"`
}

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docflow_autoapproval_decisions_total",
		Help: "Auto-approval decisions by document class and status.",
	},
	[]string{"document_class", "status"},
)

// Evaluate decides a document of the given class. Accept1 then Accept2 are
// tried first: a rule accepts when every score it lists is present and at
// least its threshold. Otherwise any present score below its Reject
// threshold rejects. Everything else, including unknown classes, goes to
// review.
func (r Rules) Evaluate(documentClass string, scores Scores) Decision {
	d := r.evaluate(documentClass, scores)
	decisionsTotal.WithLabelValues(documentClass, d.Status).Inc()
	slog.Info("auto-approval decision", "document_class", documentClass, "status", d.Status, "rule", d.Rule)
	return d
}

func (r Rules) evaluate(documentClass string, scores Scores) Decision {
	cr, ok := r[documentClass]
	if !ok {
		slog.Warn("no auto-approval rules for document class", "document_class", documentClass)
		return Decision{Status: StatusReview, IsAutoApproved: "no"}
	}

	if accepts(cr.Accept1, scores) {
		return Decision{Status: StatusApproved, Rule: "Accept1", IsAutoApproved: "yes"}
	}
	if accepts(cr.Accept2, scores) {
		return Decision{Status: StatusApproved, Rule: "Accept2", IsAutoApproved: "yes"}
	}
	if rejects(cr.Reject, scores) {
		return Decision{Status: StatusRejected, Rule: "Reject", IsAutoApproved: "yes"}
	}
	return Decision{Status: StatusReview, IsAutoApproved: "no"}
}

func accepts(t Thresholds, scores Scores) bool {
	if len(t) == 0 {
		return false
	}
	for name, threshold := range t {
		v, ok := scores.get(name)
		if !ok || v < threshold {
			return false
		}
	}
	return true
}

func rejects(t Thresholds, scores Scores) bool {
	for name, threshold := range t {
		if v, ok := scores.get(name); ok && v < threshold {
			return true
		}
	}
	return false
}
