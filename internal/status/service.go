package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalid is returned for requests missing required fields.
var ErrInvalid = errors.New("invalid request")

// Service implements the document status operations on top of a Store.
type Service struct {
	store  *Store
	bucket string
	events events.Publisher
	newUID func() string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends stage stamps to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithUIDGenerator overrides document uid generation.
func WithUIDGenerator(gen func() string) Option { return func(s *Service) { s.newUID = gen } }

// NewService returns a service that records document URLs under bucket.
func NewService(store *Store, bucket string, opts ...Option) *Service {
	s := &Service{
		store:  store,
		bucket: bucket,
		events: events.Discard,
		newUID: newDocumentUID,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newDocumentUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Bucket returns the bucket name document URLs point into.
func (s *Service) Bucket() string {
	return s.bucket
}

// ObjectURL returns the gs:// URL of an object stored under case and uid.
func (s *Service) ObjectURL(caseID, uid, name string) string {
	return fmt.Sprintf("gs://%s/%s/%s/%s", s.bucket, caseID, uid, name)
}

// CreateDocument creates the record for a freshly uploaded file. The
// document is stamped with a successful upload stage; a non-empty user marks
// the upload as human-in-the-loop.
func (s *Service) CreateDocument(ctx context.Context, caseID, filename, docContext, user string) (*Document, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case_id is required", ErrInvalid)
	}
	now := s.now().UTC()
	hitl := user != ""
	stamp := StageStamp{Stage: StageUpload, Status: StatusSuccess, IsHITL: &hitl, Timestamp: now}
	if hitl {
		u := "User"
		stamp.User = &u
	}

	doc := &Document{
		UID:             s.newUID(),
		CaseID:          caseID,
		Context:         docContext,
		SystemStatus:    []StageStamp{stamp},
		UploadTimestamp: now,
		Active:          ActiveState,
	}
	if err := s.store.Insert(ctx, doc); err != nil {
		slog.Error("error in create document", "case_id", caseID, "filename", filename, "error", err)
		return nil, err
	}
	slog.Info("created document", "case_id", caseID, "uid", doc.UID, "filename", filename, "context", docContext)
	s.publish(doc, stamp)
	return doc, nil
}

// CreateDocumentFromJSON creates a record for structured input that skips
// classification and extraction.
func (s *Service) CreateDocumentFromJSON(ctx context.Context, caseID, documentClass string, entities []tables.EntityRecord, docContext string) (*Document, error) {
	if caseID == "" || documentClass == "" {
		return nil, fmt.Errorf("%w: case_id and document_class are required", ErrInvalid)
	}
	now := s.now().UTC()
	stamp := StageStamp{Stage: StageUploaded, Status: StatusSuccess, Timestamp: now}
	doc := &Document{
		UID:                 s.newUID(),
		CaseID:              caseID,
		Context:             docContext,
		DocumentClass:       documentClass,
		DocumentDisplayName: DisplayName(documentClass),
		Entities:            entities,
		SystemStatus:        []StageStamp{stamp},
		UploadTimestamp:     now,
		Active:              ActiveState,
	}
	doc.URL = s.ObjectURL(caseID, doc.UID, fmt.Sprintf("input_data_%s_%s.json", caseID, doc.UID))

	if err := s.store.Insert(ctx, doc); err != nil {
		slog.Error("error in creating document from json input", "case_id", caseID, "error", err)
		return nil, err
	}
	s.publish(doc, stamp)
	return doc, nil
}

// MarkUploaded records the outcome of storing a document's file. The stamp
// replaces the stage history; on success the document URL is set.
func (s *Service) MarkUploaded(ctx context.Context, uid, url string, ok bool, comment string) (*Document, error) {
	stamp := StageStamp{Stage: StageUploaded, Status: StatusSuccess, Timestamp: s.now().UTC()}
	if !ok {
		stamp.Stage, stamp.Status = StageUpload, StatusError
	}
	if comment != "" {
		stamp.Comment = &comment
	}
	doc, err := s.store.Update(ctx, uid, func(d *Document) error {
		if ok {
			d.URL = url
		}
		d.SystemStatus = []StageStamp{stamp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(doc, stamp)
	return doc, nil
}

// ClassificationUpdate is the result of classifying a document.
type ClassificationUpdate struct {
	CaseID        string   `json:"case_id"`
	UID           string   `json:"uid"`
	Status        string   `json:"status"`
	IsHITL        bool     `json:"is_hitl"`
	DocumentClass string   `json:"document_class"`
	Score         *float64 `json:"classification_score"`
}

// UpdateClassification applies a classification result. Only success and
// split outcomes change the record; others are acknowledged and ignored.
func (s *Service) UpdateClassification(ctx context.Context, u ClassificationUpdate) (*Document, error) {
	if u.Status != StatusSuccess && u.Status != StatusSplit {
		slog.Info("ignoring classification update", "uid", u.UID, "status", u.Status)
		return s.store.Get(ctx, u.UID)
	}
	hitl := u.IsHITL
	stamp := StageStamp{Stage: StageClassification, Status: u.Status, IsHITL: &hitl, Timestamp: s.now().UTC()}
	return s.update(ctx, u.UID, stamp, func(d *Document) {
		d.DocumentClass = u.DocumentClass
		d.ClassificationScore = u.Score
		d.DocumentDisplayName = DisplayName(u.DocumentClass)
		d.IsHITLClassified = u.IsHITL
	})
}

// ExtractionUpdate is the result of extracting entities from a document.
type ExtractionUpdate struct {
	CaseID           string                `json:"case_id"`
	UID              string                `json:"uid"`
	Status           string                `json:"status"`
	Entities         []tables.EntityRecord `json:"entity"`
	Score            *float64              `json:"extraction_score"`
	ExtractionStatus string                `json:"extraction_status"`
}

// UpdateExtraction records an extraction result.
func (s *Service) UpdateExtraction(ctx context.Context, u ExtractionUpdate) (*Document, error) {
	return s.stageUpdate(ctx, u.UID, StageExtraction, u.Status, func(d *Document) {
		d.Entities = u.Entities
		d.ExtractionScore = u.Score
		d.ExtractionStatus = u.ExtractionStatus
	})
}

// ScoreUpdate is the result of the validation or matching stage.
type ScoreUpdate struct {
	CaseID   string                `json:"case_id"`
	UID      string                `json:"uid"`
	Status   string                `json:"status"`
	Entities []tables.EntityRecord `json:"entities"`
	Score    *float64              `json:"score"`
}

// UpdateValidation records a validation result.
func (s *Service) UpdateValidation(ctx context.Context, u ScoreUpdate) (*Document, error) {
	return s.stageUpdate(ctx, u.UID, StageValidation, u.Status, func(d *Document) {
		d.ValidationScore = u.Score
		d.Entities = u.Entities
	})
}

// UpdateMatching records a matching result.
func (s *Service) UpdateMatching(ctx context.Context, u ScoreUpdate) (*Document, error) {
	return s.stageUpdate(ctx, u.UID, StageMatching, u.Status, func(d *Document) {
		d.MatchingScore = u.Score
		d.Entities = u.Entities
	})
}

// AutoApprovalUpdate is the outcome of the auto-approval stage.
type AutoApprovalUpdate struct {
	CaseID         string `json:"case_id"`
	UID            string `json:"uid"`
	Status         string `json:"status"`
	AutoApproval   string `json:"autoapproved_status"`
	IsAutoApproved string `json:"is_autoapproved"`
}

// UpdateAutoApproval records an auto-approval decision.
func (s *Service) UpdateAutoApproval(ctx context.Context, u AutoApprovalUpdate) (*Document, error) {
	return s.stageUpdate(ctx, u.UID, StageAutoApproval, u.Status, func(d *Document) {
		d.AutoApproval = u.AutoApproval
		d.IsAutoApproved = u.IsAutoApproved
	})
}

// Get returns the document with the given uid.
func (s *Service) Get(ctx context.Context, uid string) (*Document, error) {
	return s.store.Get(ctx, uid)
}

// ListByCase returns every document of a case.
func (s *Service) ListByCase(ctx context.Context, caseID string) ([]*Document, error) {
	return s.store.ListByCase(ctx, caseID)
}

// stageUpdate appends a success stamp and applies apply when status is
// success, and appends an error stamp alone otherwise.
func (s *Service) stageUpdate(ctx context.Context, uid, stage, status string, apply func(*Document)) (*Document, error) {
	stamp := StageStamp{Stage: stage, Status: StatusSuccess, Timestamp: s.now().UTC()}
	if status != StatusSuccess {
		stamp.Status = StatusError
		apply = nil
	}
	return s.update(ctx, uid, stamp, apply)
}

func (s *Service) update(ctx context.Context, uid string, stamp StageStamp, apply func(*Document)) (*Document, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrInvalid)
	}
	doc, err := s.store.Update(ctx, uid, func(d *Document) error {
		if apply != nil {
			apply(d)
		}
		d.SystemStatus = append(d.SystemStatus, stamp)
		return nil
	})
	if err != nil {
		slog.Error("error in updating status", "uid", uid, "stage", stamp.Stage, "error", err)
		return nil, err
	}
	s.publish(doc, stamp)
	return doc, nil
}

func (s *Service) publish(doc *Document, stamp StageStamp) {
	s.events.Publish(events.Event{
		Type:   events.TypeStage,
		CaseID: doc.CaseID,
		UID:    doc.UID,
		Stage:  stamp.Stage,
		Status: stamp.Status,
		Time:   stamp.Timestamp,
	})
}

// DisplayName turns a document class such as "driver_license" into its
// display form "Driver License".
func DisplayName(documentClass string) string {
	if documentClass == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(documentClass, "_", " "))
}
