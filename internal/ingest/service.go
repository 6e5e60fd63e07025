// Package ingest moves uploaded PDF documents into the working bucket,
// records them in the document status store and announces each batch to
// the processing pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/MeKo-Tech/docflow/internal/pdf"
	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/google/uuid"
)

// Defaults used when Options leave a field empty.
const (
	DefaultTriggerFilename = "START_PIPELINE"
	DefaultContext         = "arizona"
)

// ErrUnsupportedFile is returned when an upload is not a readable PDF.
var ErrUnsupportedFile = errors.New("unsupported file")

// ErrNotTriggered is returned by StartPipeline for events that do not name
// the trigger file.
var ErrNotTriggered = errors.New("event is not a pipeline trigger")

// Options configures a Service.
type Options struct {
	// TriggerFilename is the object name that starts a pipeline run.
	TriggerFilename string
	// DefaultContext is the context assigned to documents picked up by
	// StartPipeline.
	DefaultContext string
	Publisher      events.Publisher
}

// Service implements document upload and bucket-triggered ingestion.
type Service struct {
	docs      *status.Service
	store     ObjectStore
	trigger   string
	context   string
	events    events.Publisher
	newCaseID func() string
	now       func() time.Time
}

// NewService returns an ingest service storing files in store and records
// in docs. Objects are written to the bucket docs points its URLs at.
func NewService(docs *status.Service, store ObjectStore, opts Options) *Service {
	s := &Service{
		docs:      docs,
		store:     store,
		trigger:   opts.TriggerFilename,
		context:   opts.DefaultContext,
		events:    opts.Publisher,
		newCaseID: NewCaseID,
		now:       time.Now,
	}
	if s.trigger == "" {
		s.trigger = DefaultTriggerFilename
	}
	if s.context == "" {
		s.context = DefaultContext
	}
	if s.events == nil {
		s.events = events.Discard
	}
	return s
}

// NewCaseID returns a time-based (version 1) UUID string.
func NewCaseID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FolderCaseID derives a case id for documents found in folder: the folder
// path with "/" replaced by "_", followed by a UUID prefix that shrinks as
// the folder name grows.
func FolderCaseID(folder string) string {
	dirs := strings.ReplaceAll(folder, "/", "_")
	id := NewCaseID()
	cut := max(len(dirs), len(id)/2)
	keep := max(len(id)-cut, 0)
	return dirs + "_" + id[:keep]
}

// File is one uploaded file.
type File struct {
	Name    string
	Content io.ReadSeeker
}

// UploadRequest is a set of files uploaded together.
type UploadRequest struct {
	CaseID  string
	Context string
	Comment string
	User    string
	Files   []File
}

// UploadResult reports the documents created by an upload.
type UploadResult struct {
	Status  string              `json:"status"`
	CaseID  string              `json:"case_id"`
	UIDList []string            `json:"uid_list"`
	Configs []events.TaskConfig `json:"configs"`
}

// Upload validates every file as a PDF, then creates a document record per
// file, stores it under <case_id>/<uid>/<filename> and publishes one batch
// message for the whole upload. A missing case id is generated.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrUnsupportedFile)
	}
	for _, f := range req.Files {
		if !pdf.IsPDFName(f.Name) {
			slog.Error("uploaded file is not a pdf document", "filename", f.Name)
			return nil, fmt.Errorf("%w: %s is not a pdf document", ErrUnsupportedFile, f.Name)
		}
		info, err := pdf.Inspect(f.Content)
		if err != nil {
			slog.Error("uploaded pdf is not readable", "filename", f.Name, "error", err)
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFile, f.Name, err)
		}
		slog.Debug("inspected upload", "filename", f.Name, "pages", info.Pages, "size", info.Size)
	}

	caseID := req.CaseID
	if caseID == "" {
		caseID = s.newCaseID()
	}

	result := &UploadResult{CaseID: caseID, UIDList: []string{}, Configs: []events.TaskConfig{}}
	for _, f := range req.Files {
		name := path.Base(f.Name)
		doc, err := s.docs.CreateDocument(ctx, caseID, name, req.Context, req.User)
		if err != nil {
			return nil, fmt.Errorf("failed to create document for %s: %w", name, err)
		}
		result.UIDList = append(result.UIDList, doc.UID)

		objectName := fmt.Sprintf("%s/%s/%s", caseID, doc.UID, name)
		if _, err := s.store.Put(ctx, s.docs.Bucket(), objectName, f.Content); err != nil {
			slog.Error("error in uploading document", "case_id", caseID, "uid", doc.UID, "error", err)
			if _, merr := s.docs.MarkUploaded(ctx, doc.UID, "", false, req.Comment); merr != nil {
				slog.Error("failed to record upload failure", "uid", doc.UID, "error", merr)
			}
			return nil, fmt.Errorf("failed to store %s: %w", name, err)
		}

		url := s.docs.ObjectURL(caseID, doc.UID, name)
		if _, err := s.docs.MarkUploaded(ctx, doc.UID, url, true, req.Comment); err != nil {
			return nil, err
		}
		slog.Info("file uploaded", "case_id", caseID, "uid", doc.UID, "url", url)
		result.Configs = append(result.Configs, events.TaskConfig{
			CaseID:  caseID,
			UID:     doc.UID,
			GCSURL:  url,
			Context: req.Context,
		})
	}

	events.PublishBatch(s.events, caseID, events.BatchMessage{
		Message:     fmt.Sprintf("batch for %s moved to bucket", caseID),
		MessageList: result.Configs,
	})
	result.Status = fmt.Sprintf("Files with case id %s uploaded successfully, the document will be processed in sometime", caseID)
	slog.Info("upload complete", "case_id", caseID, "documents", len(result.UIDList))
	return result, nil
}
