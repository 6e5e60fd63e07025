package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/docflow/internal/ingest"
	"github.com/MeKo-Tech/docflow/internal/status"
)

// uploadFilesHandler accepts a multipart upload of PDF files.
func (s *Server) uploadFilesHandler(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		uploadsTotal.WithLabelValues("files", "error").Inc()
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	q := r.URL.Query()
	if q.Get("context") == "" {
		s.writeErrorResponse(w, "context is required", http.StatusUnprocessableEntity)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeErrorResponse(w, "No files provided", http.StatusBadRequest)
		return
	}

	req := ingest.UploadRequest{
		CaseID:  q.Get("case_id"),
		Context: q.Get("context"),
		Comment: q.Get("comment"),
		User:    q.Get("user"),
	}
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Failed to read %s", h.Filename), http.StatusBadRequest)
			return
		}
		defer func() { _ = f.Close() }()
		uploadSizeBytes.Observe(float64(h.Size))
		req.Files = append(req.Files, ingest.File{Name: h.Filename, Content: f})
	}

	res, err := s.ingest.Upload(r.Context(), req)
	if err != nil {
		uploadsTotal.WithLabelValues("files", "error").Inc()
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			s.writeErrorResponse(w, "Please upload all pdf files", http.StatusUnprocessableEntity)
			return
		}
		slog.Error("error in uploading document", "error", err)
		s.writeErrorResponse(w, "Error in uploading document", http.StatusInternalServerError)
		return
	}
	uploadsTotal.WithLabelValues("files", "success").Inc()
	writeJSON(w, http.StatusOK, res)
}

// uploadJSONHandler accepts structured document data instead of a file.
func (s *Server) uploadJSONHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024))
	if err != nil {
		s.writeErrorResponse(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	in, err := ingest.ParseJSONInput(body)
	if err != nil {
		uploadsTotal.WithLabelValues("json", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	res, err := s.ingest.UploadJSON(r.Context(), in)
	if err != nil {
		uploadsTotal.WithLabelValues("json", "error").Inc()
		if errors.Is(err, status.ErrInvalid) {
			s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		slog.Error("error in uploading json input", "error", err)
		s.writeErrorResponse(w, "Error in uploading document", http.StatusInternalServerError)
		return
	}
	uploadsTotal.WithLabelValues("json", "success").Inc()
	writeJSON(w, http.StatusOK, res)
}

// startPipelineHandler handles bucket notifications. Only the trigger file
// starts a run; every other object is acknowledged with 204.
func (s *Server) startPipelineHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := ingest.ParseBucketEvent(body)
	if err != nil {
		slog.Warn("rejected bucket event", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.ingest.StartPipeline(r.Context(), ev)
	switch {
	case errors.Is(err, ingest.ErrNotTriggered):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		uploadsTotal.WithLabelValues("pipeline", "error").Inc()
		slog.Error("error in starting pipeline", "bucket", ev.Bucket, "name", ev.Name, "error", err)
		s.writeErrorResponse(w, "Error in uploading document", http.StatusInternalServerError)
		return
	}
	uploadsTotal.WithLabelValues("pipeline", "success").Inc()
	writeJSON(w, http.StatusOK, res)
}
