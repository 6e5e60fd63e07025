package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var forwarded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docflow_queue_forwarded_total",
		Help: "Batches forwarded to the process-task endpoint by response code.",
	},
	[]string{"code"},
)

// Forwarder posts task configs to the process-task endpoint.
type Forwarder struct {
	url        string
	client     *http.Client
	maxRetries int
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Forwarder) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRetries retries transport failures and 5xx responses n times with
// exponential backoff. Default: 0.
func WithRetries(n int) Option {
	return func(f *Forwarder) { f.maxRetries = max(n, 0) }
}

// NewForwarder returns a forwarder targeting url.
func NewForwarder(url string, opts ...Option) *Forwarder {
	f := &Forwarder{
		url:    url,
		client: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// URL returns the process-task endpoint.
func (f *Forwarder) URL() string {
	return f.url
}

// Forward posts {"configs": configs} and returns the response status code.
func (f *Forwarder) Forward(ctx context.Context, configs []events.TaskConfig) (int, error) {
	if configs == nil {
		configs = []events.TaskConfig{}
	}
	body, err := json.Marshal(map[string]any{"configs": configs})
	if err != nil {
		return 0, fmt.Errorf("failed to encode configs: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("process task request failed", "url", f.url, "attempt", attempt+1, "error", err)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		forwarded.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		slog.Info("forwarded batch to process task",
			"url", f.url,
			"configs", len(configs),
			"status_code", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds())
		if resp.StatusCode >= 500 && attempt < f.maxRetries {
			lastErr = fmt.Errorf("process task returned status %d", resp.StatusCode)
			continue
		}
		return resp.StatusCode, nil
	}
	forwarded.WithLabelValues("error").Inc()
	return 0, fmt.Errorf("failed to forward to %s: %w", f.url, lastErr)
}

// Relay forwards the configs of every batch event received on ch until ch
// closes or ctx is done.
func Relay(ctx context.Context, ch <-chan events.Event, f *Forwarder) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Type != events.TypeBatch {
				continue
			}
			msg, ok := e.Payload.(events.BatchMessage)
			if !ok || len(msg.MessageList) == 0 {
				continue
			}
			if _, err := f.Forward(ctx, msg.MessageList); err != nil {
				slog.Error("failed to relay batch", "case_id", e.CaseID, "error", err)
			}
		}
	}
}
