package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// eventFilter selects the events a WebSocket client asked for.
type eventFilter struct {
	caseID string
	uid    string
	typ    string
}

func newEventFilter(r *http.Request) eventFilter {
	q := r.URL.Query()
	return eventFilter{caseID: q.Get("case_id"), uid: q.Get("uid"), typ: q.Get("type")}
}

func (f eventFilter) match(e events.Event) bool {
	if f.typ != "" && e.Type != f.typ {
		return false
	}
	if f.uid != "" && e.UID != f.uid {
		return false
	}
	if f.caseID != "" && e.CaseID != f.caseID {
		if e.Type != events.TypeBatch {
			return false
		}
		msg, ok := e.Payload.(events.BatchMessage)
		if !ok {
			return false
		}
		for _, c := range msg.MessageList {
			if c.CaseID == f.caseID {
				return true
			}
		}
		return false
	}
	return true
}

// eventsWebSocketHandler streams document lifecycle events. The optional
// case_id, uid and type query parameters filter the stream.
func (s *Server) eventsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeErrorResponse(w, "event stream not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	ch, cancel := s.hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go s.readWebSocket(conn, done)
	s.streamEvents(conn, ch, newEventFilter(r), done)
}

// readWebSocket consumes client frames so control messages are processed
// and closes done when the client goes away.
func (s *Server) readWebSocket(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
	}
}

func (s *Server) streamEvents(conn *websocket.Conn, ch <-chan events.Event, filter eventFilter, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if !filter.match(e) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sendEvent(conn, e); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// sendEvent writes e as a JSON text message.
func sendEvent(conn WebSocketConnWriter, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to marshal WebSocket event", "error", err)
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}
