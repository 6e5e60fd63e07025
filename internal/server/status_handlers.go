package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/go-chi/chi/v5"
)

// Document status endpoints take their scalar arguments as query parameters
// and entity lists as a JSON array body.

func queryFloat(r *http.Request, key string) (*float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", status.ErrInvalid, key)
	}
	return &f, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", status.ErrInvalid, key)
	}
	return b, nil
}

func requireQuery(r *http.Request, keys ...string) error {
	for _, k := range keys {
		if r.URL.Query().Get(k) == "" {
			return fmt.Errorf("%w: %s is required", status.ErrInvalid, k)
		}
	}
	return nil
}

// readEntities decodes an optional JSON array of entity records.
func (s *Server) readEntities(w http.ResponseWriter, r *http.Request) ([]tables.EntityRecord, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var entities []tables.EntityRecord
	err := json.NewDecoder(r.Body).Decode(&entities)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: entities must be a JSON array: %v", status.ErrInvalid, err)
	}
	return entities, nil
}

func (s *Server) createDocumentHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "filename", "context"); err != nil {
		s.writeStatusError(w, err)
		return
	}
	doc, err := s.docs.CreateDocument(r.Context(), q.Get("case_id"), q.Get("filename"), q.Get("context"), q.Get("user"))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: status.StatusSuccess, StatusCode: http.StatusOK, UID: doc.UID})
}

func (s *Server) createDocumentJSONHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "document_class", "context"); err != nil {
		s.writeStatusError(w, err)
		return
	}
	entities, err := s.readEntities(w, r)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	doc, err := s.docs.CreateDocumentFromJSON(r.Context(), q.Get("case_id"), q.Get("document_class"), entities, q.Get("context"))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: status.StatusSuccess, UID: doc.UID})
}

func (s *Server) updateClassificationHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "uid", "status"); err != nil {
		s.writeStatusError(w, err)
		return
	}
	hitl, err := queryBool(r, "is_hitl")
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	score, err := queryFloat(r, "classification_score")
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	if _, err := s.docs.UpdateClassification(r.Context(), status.ClassificationUpdate{
		CaseID:        q.Get("case_id"),
		UID:           q.Get("uid"),
		Status:        q.Get("status"),
		IsHITL:        hitl,
		DocumentClass: q.Get("document_class"),
		Score:         score,
	}); err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeAck(w, r)
}

func (s *Server) updateExtractionHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "uid", "status"); err != nil {
		s.writeStatusError(w, err)
		return
	}
	score, err := queryFloat(r, "extraction_score")
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	entities, err := s.readEntities(w, r)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	if _, err := s.docs.UpdateExtraction(r.Context(), status.ExtractionUpdate{
		CaseID:           q.Get("case_id"),
		UID:              q.Get("uid"),
		Status:           q.Get("status"),
		Entities:         entities,
		Score:            score,
		ExtractionStatus: q.Get("extraction_status"),
	}); err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeAck(w, r)
}

// scoreUpdate reads the arguments shared by the validation and matching
// endpoints; scoreKey names the stage's score parameter.
func (s *Server) scoreUpdate(w http.ResponseWriter, r *http.Request, scoreKey string) (status.ScoreUpdate, error) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "uid", "status"); err != nil {
		return status.ScoreUpdate{}, err
	}
	score, err := queryFloat(r, scoreKey)
	if err != nil {
		return status.ScoreUpdate{}, err
	}
	entities, err := s.readEntities(w, r)
	if err != nil {
		return status.ScoreUpdate{}, err
	}
	return status.ScoreUpdate{
		CaseID:   q.Get("case_id"),
		UID:      q.Get("uid"),
		Status:   q.Get("status"),
		Entities: entities,
		Score:    score,
	}, nil
}

func (s *Server) updateValidationHandler(w http.ResponseWriter, r *http.Request) {
	u, err := s.scoreUpdate(w, r, "validation_score")
	if err == nil {
		_, err = s.docs.UpdateValidation(r.Context(), u)
	}
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeAck(w, r)
}

func (s *Server) updateMatchingHandler(w http.ResponseWriter, r *http.Request) {
	u, err := s.scoreUpdate(w, r, "matching_score")
	if err == nil {
		_, err = s.docs.UpdateMatching(r.Context(), u)
	}
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeAck(w, r)
}

func (s *Server) updateAutoApprovalHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := requireQuery(r, "case_id", "uid", "status", "autoapproved_status", "is_autoapproved"); err != nil {
		s.writeStatusError(w, err)
		return
	}
	if _, err := s.docs.UpdateAutoApproval(r.Context(), status.AutoApprovalUpdate{
		CaseID:         q.Get("case_id"),
		UID:            q.Get("uid"),
		Status:         q.Get("status"),
		AutoApproval:   q.Get("autoapproved_status"),
		IsAutoApproved: q.Get("is_autoapproved"),
	}); err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeAck(w, r)
}

func (s *Server) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listCaseHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.ListByCase(r.Context(), chi.URLParam(r, "case_id"))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	if docs == nil {
		docs = []*status.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) writeAck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:     status.StatusSuccess,
		StatusCode: http.StatusOK,
		CaseID:     q.Get("case_id"),
		UID:        q.Get("uid"),
	})
}
