// Package events fans out document lifecycle events (stage stamps and
// pipeline batch messages) to in-process subscribers such as the WebSocket
// stream.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event types.
const (
	TypeStage = "stage"
	TypeBatch = "batch"
)

// Event is one lifecycle notification.
type Event struct {
	Type    string    `json:"type"`
	CaseID  string    `json:"case_id,omitempty"`
	UID     string    `json:"uid,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Status  string    `json:"status,omitempty"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher accepts events. Hub implements it; Discard drops everything.
type Publisher interface {
	Publish(Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

var (
	published = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_events_published_total",
			Help: "Events published to the hub by type.",
		},
		[]string{"type"},
	)
	dropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		},
	)
	subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docflow_events_subscribers",
			Help: "Current number of event subscribers.",
		},
	)
)

// DefaultBuffer is the per-subscriber channel capacity used when NewHub is
// given a non-positive size.
const DefaultBuffer = 64

// Hub broadcasts events to every subscriber. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
	now    func() time.Time
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: buffer,
		now:    time.Now,
	}
}

// Publish broadcasts e. A zero Time is set to the current time.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = h.now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	published.WithLabelValues(e.Type).Inc()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			dropped.Inc()
			slog.Warn("event subscriber too slow, dropping event", "subscriber", id, "type", e.Type)
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch
	subscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
	subscribers.Dec()
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unregisters all subscribers and closes their channels. Later
// publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
		subscribers.Dec()
	}
}
