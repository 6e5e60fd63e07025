package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
)

// BucketEvent is an object-finalize notification from a bucket.
type BucketEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ErrInvalidEvent is returned by ParseBucketEvent for unusable bodies.
var ErrInvalidEvent = errors.New("invalid bucket event")

// ParseBucketEvent decodes a bucket notification body. The body must be a
// JSON object naming both the bucket and the object.
func ParseBucketEvent(body []byte) (BucketEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return BucketEvent{}, fmt.Errorf("%w: request has no body", ErrInvalidEvent)
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return BucketEvent{}, fmt.Errorf("%w: unable to parse to JSON: %s", ErrInvalidEvent, body)
	}
	obj, ok := raw.(map[string]any)
	if raw == nil || (ok && len(obj) == 0) {
		return BucketEvent{}, fmt.Errorf("%w: no Pub/Sub message received", ErrInvalidEvent)
	}
	bucket, bok := obj["bucket"].(string)
	name, nok := obj["name"].(string)
	if !ok || !bok || !nok {
		return BucketEvent{}, fmt.Errorf("%w: invalid Pub/Sub message format", ErrInvalidEvent)
	}
	return BucketEvent{Bucket: bucket, Name: name}, nil
}

// PipelineResult reports the documents picked up by a pipeline run.
type PipelineResult struct {
	Status  string              `json:"status"`
	EventID string              `json:"event_id"`
	UIDList []string            `json:"uid_list"`
	Configs []events.TaskConfig `json:"configs"`
}

const pdfContentType = "application/pdf"

// StartPipeline ingests every PDF in the folder of the trigger file named by
// ev. Documents are grouped into one case per parent folder, copied into the
// working bucket and announced in a single batch message. Events for any
// other object return ErrNotTriggered.
func (s *Service) StartPipeline(ctx context.Context, ev BucketEvent) (*PipelineResult, error) {
	start := s.now()
	eventID := start.UTC().Format("2006-01-02-15-04-05")
	dirs, filename := path.Split(ev.Name)
	dirs = strings.TrimSuffix(dirs, "/")

	if filename != s.trigger {
		slog.Info("skipping action, waiting for trigger file", "trigger", s.trigger, "name", ev.Name)
		return nil, ErrNotTriggered
	}
	slog.Info("starting pipeline", "bucket", ev.Bucket, "folder", dirs, "event_id", eventID)

	prefix := ""
	if dirs != "" {
		prefix = dirs + "/"
	}
	objects, err := s.store.List(ctx, ev.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s: %w", ev.Bucket, prefix, err)
	}

	result := &PipelineResult{EventID: eventID, UIDList: []string{}, Configs: []events.TaskConfig{}}
	caseIDs := map[string]string{}
	for _, obj := range objects {
		if obj.Name == "" || strings.HasSuffix(obj.Name, "/") || path.Base(obj.Name) == s.trigger {
			continue
		}
		if obj.ContentType != pdfContentType {
			slog.Info("skipping object with unsupported mime type", "name", obj.Name, "mime_type", obj.ContentType)
			continue
		}

		dir, blobName := path.Split(obj.Name)
		dirName := path.Base(strings.TrimSuffix(dir, "/"))
		if dir == "" {
			dirName = ""
		}
		caseID, ok := caseIDs[dirName]
		if !ok {
			caseID = FolderCaseID(dirName)
			caseIDs[dirName] = caseID
		}

		doc, err := s.docs.CreateDocument(ctx, caseID, obj.Name, s.context, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create document for %s: %w", obj.Name, err)
		}
		result.UIDList = append(result.UIDList, doc.UID)

		target := fmt.Sprintf("%s/%s/%s", caseID, doc.UID, blobName)
		if err := s.store.Copy(ctx, ev.Bucket, obj.Name, s.docs.Bucket(), target); err != nil {
			slog.Error("error in copying document", "name", obj.Name, "case_id", caseID, "uid", doc.UID, "error", err)
			if _, merr := s.docs.MarkUploaded(ctx, doc.UID, "", false, ""); merr != nil {
				slog.Error("failed to record upload failure", "uid", doc.UID, "error", merr)
			}
			return nil, fmt.Errorf("failed to copy %s: %w", obj.Name, err)
		}

		url := s.docs.ObjectURL(caseID, doc.UID, blobName)
		if _, err := s.docs.MarkUploaded(ctx, doc.UID, url, true, ""); err != nil {
			return nil, err
		}
		slog.Info("document moved to working bucket", "name", obj.Name, "case_id", caseID, "uid", doc.UID, "event_id", eventID)
		result.Configs = append(result.Configs, events.TaskConfig{
			CaseID:  caseID,
			UID:     doc.UID,
			GCSURL:  url,
			Context: s.context,
		})
	}

	events.PublishBatch(s.events, "", events.BatchMessage{
		Message:     "batch moved to bucket",
		MessageList: result.Configs,
	})
	result.Status = fmt.Sprintf("Files for event_id %s uploaded successfully, the document will be processed in sometime", eventID)
	slog.Info("pipeline started",
		"event_id", eventID,
		"documents", len(result.UIDList),
		"elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}
