package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn is a mock implementation of websocket.Conn for testing.
type mockWebSocketConn struct {
	sentMessages []sentMessage
	err          error
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sentMessages = append(m.sentMessages, sentMessage{
		messageType: messageType,
		data:        data,
	})
	return nil
}

func TestSendEvent(t *testing.T) {
	conn := &mockWebSocketConn{}
	e := events.Event{Type: events.TypeStage, CaseID: "c1", UID: "u1", Stage: "upload", Status: "success"}

	require.NoError(t, sendEvent(conn, e))
	require.Len(t, conn.sentMessages, 1)
	assert.Equal(t, websocket.TextMessage, conn.sentMessages[0].messageType)

	var got events.Event
	require.NoError(t, json.Unmarshal(conn.sentMessages[0].data, &got))
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "upload", got.Stage)

	failing := &mockWebSocketConn{err: errors.New("broken pipe")}
	assert.Error(t, sendEvent(failing, e))
}

func TestEventFilter_Match(t *testing.T) {
	batch := events.Event{
		Type:   events.TypeBatch,
		CaseID: "batch-case",
		Payload: events.BatchMessage{
			Message:     "batch moved to bucket",
			MessageList: []events.TaskConfig{{CaseID: "c1", UID: "u1"}, {CaseID: "c2", UID: "u2"}},
		},
	}
	stage := events.Event{Type: events.TypeStage, CaseID: "c1", UID: "u1"}

	tests := []struct {
		name   string
		filter eventFilter
		event  events.Event
		want   bool
	}{
		{"empty filter", eventFilter{}, stage, true},
		{"type match", eventFilter{typ: events.TypeStage}, stage, true},
		{"type mismatch", eventFilter{typ: events.TypeBatch}, stage, false},
		{"uid mismatch", eventFilter{uid: "u9"}, stage, false},
		{"case match", eventFilter{caseID: "c1"}, stage, true},
		{"case mismatch", eventFilter{caseID: "c2"}, stage, false},
		{"case inside batch", eventFilter{caseID: "c2"}, batch, true},
		{"case absent from batch", eventFilter{caseID: "c3"}, batch, false},
		{"batch without payload", eventFilter{caseID: "c1"}, events.Event{Type: events.TypeBatch}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.match(tt.event))
		})
	}
}

func TestNewEventFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/events?case_id=c1&uid=u1&type=stage", nil)
	assert.Equal(t, eventFilter{caseID: "c1", uid: "u1", typ: "stage"}, newEventFilter(r))
}

func TestEventsWebSocket_NoHub(t *testing.T) {
	s := NewServer(Config{}, Deps{})
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventsWebSocket_Streams(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events?case_id=c1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.hub.Publish(events.Event{Type: events.TypeStage, CaseID: "other", UID: "x"})
	env.hub.Publish(events.Event{Type: events.TypeStage, CaseID: "c1", UID: "u1", Stage: "upload", Status: "success"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "c1", got.CaseID)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "upload", got.Stage)
}

func TestEventsWebSocket_ClosesWithHub(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	env.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
