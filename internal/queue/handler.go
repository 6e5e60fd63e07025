package queue

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const maxPushBody = 10 << 20

// NewHandler returns the push endpoint. Invalid envelopes get 400 with the
// validation error as plain text, envelopes without data get 204 and valid
// batches are answered with the process-task status code.
func NewHandler(f *Forwarder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		configs, err := DecodePush(body)
		switch {
		case errors.Is(err, ErrNoData):
			w.WriteHeader(http.StatusNoContent)
			return
		case err != nil:
			slog.Error("rejected push delivery", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slog.Info("queue message configs", "configs", len(configs), "url", f.URL())
		code, err := f.Forward(r.Context(), configs)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(code)
	})
}
