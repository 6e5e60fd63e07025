package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/MeKo-Tech/docflow/internal/tables"
)

// JSONInput is structured document data submitted instead of a file. Every
// key other than document_class, context and case_id becomes an entity.
type JSONInput struct {
	DocumentClass string
	Context       string
	CaseID        string
	Fields        map[string]any
}

// ParseJSONInput decodes a flat JSON object into a JSONInput.
func ParseJSONInput(data []byte) (*JSONInput, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalid, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty input", status.ErrInvalid)
	}

	in := &JSONInput{Fields: map[string]any{}}
	for key, dst := range map[string]*string{
		"document_class": &in.DocumentClass,
		"context":        &in.Context,
		"case_id":        &in.CaseID,
	} {
		v, ok := raw[key]
		delete(raw, key)
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", status.ErrInvalid, key)
		}
		*dst = s
	}
	if in.DocumentClass == "" || in.Context == "" {
		return nil, fmt.Errorf("%w: document_class and context are required", status.ErrInvalid)
	}
	for k, v := range raw {
		in.Fields[k] = v
	}
	return in, nil
}

// Entities converts the input fields to entity records with full
// confidence, ordered by field name.
func (in *JSONInput) Entities() []tables.EntityRecord {
	keys := make([]string, 0, len(in.Fields))
	for k := range in.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]tables.EntityRecord, 0, len(keys))
	for _, k := range keys {
		rec := tables.EntityRecord{Entity: k}
		conf := 1.0
		rec.ExtractionConfidence = &conf
		if v := in.Fields[k]; v != nil {
			var s string
			switch t := v.(type) {
			case string:
				s = t
			case json.Number:
				s = t.String()
			default:
				b, _ := json.Marshal(t)
				s = string(b)
			}
			rec.Value = &s
		}
		out = append(out, rec)
	}
	return out
}

// JSONResult reports a structured upload.
type JSONResult struct {
	Status    string         `json:"status"`
	InputData map[string]any `json:"input_data"`
	CaseID    string         `json:"case_id"`
	UID       string         `json:"uid"`
}

// UploadJSON records structured input as a classified document and stores
// its entities as input_data_<case_id>_<uid>.json next to it.
func (s *Service) UploadJSON(ctx context.Context, in *JSONInput) (*JSONResult, error) {
	caseID := in.CaseID
	if caseID == "" {
		caseID = s.newCaseID()
	}
	entities := in.Entities()

	doc, err := s.docs.CreateDocumentFromJSON(ctx, caseID, in.DocumentClass, entities, in.Context)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(entities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	name := fmt.Sprintf("%s/%s/input_data_%s_%s.json", caseID, doc.UID, caseID, doc.UID)
	if _, err := s.store.Put(ctx, s.docs.Bucket(), name, bytes.NewReader(data)); err != nil {
		slog.Error("error in uploading json input", "case_id", caseID, "uid", doc.UID, "error", err)
		return nil, fmt.Errorf("failed to store json input: %w", err)
	}

	slog.Info("json input uploaded", "case_id", caseID, "uid", doc.UID, "entities", len(entities))
	return &JSONResult{Status: status.StatusSuccess, InputData: in.Fields, CaseID: caseID, UID: doc.UID}, nil
}
