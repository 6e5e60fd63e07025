package status

import (
	"time"

	"github.com/MeKo-Tech/docflow/internal/tables"
)

// Stage statuses.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusSplit      = "split"
	StatusInProgress = "in_progress"
)

// Pipeline stages recorded on a document.
const (
	StageUpload         = "upload"
	StageUploaded       = "uploaded"
	StageClassification = "classification"
	StageExtraction     = "extraction"
	StageValidation     = "validation"
	StageMatching       = "matching"
	StageAutoApproval   = "auto_approval"
)

// ActiveState is the value of Document.Active for live records.
const ActiveState = "active"

// StageStamp records the outcome of one pipeline stage.
type StageStamp struct {
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	IsHITL    *bool     `json:"is_hitl,omitempty"`
	User      *string   `json:"user,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is the status record of one uploaded document.
type Document struct {
	UID                 string                `json:"uid"`
	CaseID              string                `json:"case_id"`
	Context             string                `json:"context"`
	URL                 string                `json:"url,omitempty"`
	DocumentClass       string                `json:"document_class,omitempty"`
	DocumentDisplayName string                `json:"document_display_name,omitempty"`
	ClassificationScore *float64              `json:"classification_score,omitempty"`
	IsHITLClassified    bool                  `json:"is_hitl_classified"`
	Entities            []tables.EntityRecord `json:"entities,omitempty"`
	ExtractionScore     *float64              `json:"extraction_score,omitempty"`
	ExtractionStatus    string                `json:"extraction_status,omitempty"`
	ValidationScore     *float64              `json:"validation_score,omitempty"`
	MatchingScore       *float64              `json:"matching_score,omitempty"`
	AutoApproval        string                `json:"auto_approval,omitempty"`
	IsAutoApproved      string                `json:"is_autoapproved,omitempty"`
	SystemStatus        []StageStamp          `json:"system_status"`
	UploadTimestamp     time.Time             `json:"upload_timestamp"`
	Active              string                `json:"active"`
}

// LastStage returns the most recent stage stamp, if any.
func (d *Document) LastStage() (StageStamp, bool) {
	if len(d.SystemStatus) == 0 {
		return StageStamp{}, false
	}
	return d.SystemStatus[len(d.SystemStatus)-1], true
}
