package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/MeKo-Tech/docflow/internal/layout"
	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/MeKo-Tech/docflow/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// ExtractRequest is the body of an extraction request.
type ExtractRequest struct {
	Layout     *layout.Document   `json:"layout"`
	Directives []tables.Directive `json:"directives"`
}

// ExtractResponse carries the extracted entities and their score.
type ExtractResponse struct {
	Entities         []tables.EntityRecord `json:"entities"`
	ExtractionScore  float64               `json:"extraction_score"`
	ExtractionStatus string                `json:"extraction_status"`
	UID              string                `json:"uid,omitempty"`
}

// extractHandler runs table directives against a layout document. With a
// uid query parameter the result is recorded as the document's extraction
// stage.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Layout == nil {
		s.writeErrorResponse(w, "No layout provided", http.StatusBadRequest)
		return
	}
	for i := range req.Directives {
		if err := req.Directives[i].Validate(); err != nil {
			slog.Warn("directive has an unsupported configuration", "index", i, "error", err)
		}
	}

	ext := tables.NewExtractor(req.Layout,
		tables.WithFailFast(s.failFastRows),
		tables.WithMatchThreshold(s.matchThreshold))
	entities := ext.ExtractAll(req.Directives)
	if entities == nil {
		entities = []tables.EntityRecord{}
	}
	score := tables.ExtractionScore(entities)
	resp := ExtractResponse{
		Entities:         entities,
		ExtractionScore:  score,
		ExtractionStatus: tables.ExtractionStatus(entities),
	}
	extractEntities.Observe(float64(len(entities)))

	if uid := r.URL.Query().Get("uid"); uid != "" {
		_, err := s.docs.UpdateExtraction(r.Context(), status.ExtractionUpdate{
			CaseID:           r.URL.Query().Get("case_id"),
			UID:              uid,
			Status:           status.StatusSuccess,
			Entities:         entities,
			Score:            &score,
			ExtractionStatus: resp.ExtractionStatus,
		})
		if err != nil {
			extractRequestsTotal.WithLabelValues("error").Inc()
			s.writeStatusError(w, err)
			return
		}
		resp.UID = uid
	}

	extractRequestsTotal.WithLabelValues(resp.ExtractionStatus).Inc()
	writeJSON(w, http.StatusOK, resp)
}

// EvaluateRequest asks for an auto-approval decision. When UID is set the
// scores are read from the stored document and the decision is recorded.
type EvaluateRequest struct {
	UID           string          `json:"uid"`
	DocumentClass string          `json:"document_class"`
	Scores        approval.Scores `json:"scores"`
}

// evaluateHandler evaluates scores against the auto-approval rules.
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if req.UID == "" {
		if req.DocumentClass == "" {
			s.writeErrorResponse(w, "document_class or uid is required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s.rules.Evaluate(req.DocumentClass, req.Scores))
		return
	}

	doc, err := s.docs.Get(r.Context(), req.UID)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	decision := s.rules.Evaluate(doc.DocumentClass, approval.Scores{
		Validation: doc.ValidationScore,
		Matching:   doc.MatchingScore,
		Extraction: doc.ExtractionScore,
	})
	if _, err := s.docs.UpdateAutoApproval(r.Context(), status.AutoApprovalUpdate{
		CaseID:         doc.CaseID,
		UID:            doc.UID,
		Status:         status.StatusSuccess,
		AutoApproval:   decision.Status,
		IsAutoApproved: decision.IsAutoApproved,
	}); err != nil {
		s.writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// writeStatusError maps document status errors to HTTP responses.
func (s *Server) writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, status.ErrNotFound):
		s.writeErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, status.ErrInvalid):
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
