// Package queue accepts push deliveries of batch messages and forwards the
// documents they list to the processing task.
package queue

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/docflow/internal/events"
)

// Envelope validation errors.
var (
	ErrNoBody        = errors.New("request has no body")
	ErrInvalidJSON   = errors.New("unable to parse to JSON")
	ErrNoMessage     = errors.New("no Pub/Sub message received")
	ErrInvalidFormat = errors.New("invalid Pub/Sub message format")
	// ErrNoData marks a well-formed envelope whose message carries no data.
	ErrNoData = errors.New("message has no data")
)

// Message is the pushed message.
type Message struct {
	Data        string            `json:"data,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// Envelope is the body of a push delivery.
type Envelope struct {
	Message      *Message `json:"message"`
	Subscription string   `json:"subscription,omitempty"`
}

// DecodePush validates a push body and returns the task configs listed in
// its base64 encoded batch message.
func DecodePush(body []byte) ([]events.TaskConfig, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoBody
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, body)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		if isEmpty(raw) {
			return nil, ErrNoMessage
		}
		return nil, ErrInvalidFormat
	}
	if len(obj) == 0 {
		return nil, ErrNoMessage
	}
	msg, ok := obj["message"]
	if !ok {
		return nil, ErrInvalidFormat
	}
	m, ok := msg.(map[string]any)
	if !ok {
		return nil, ErrNoData
	}
	data, ok := m["data"].(string)
	if !ok {
		return nil, ErrNoData
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: data is not base64: %v", ErrInvalidFormat, err)
	}
	var batch events.BatchMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(decoded))), &batch); err != nil {
		return nil, fmt.Errorf("%w: data is not a batch message: %v", ErrInvalidFormat, err)
	}
	if batch.MessageList == nil {
		batch.MessageList = []events.TaskConfig{}
	}
	return batch.MessageList, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}

// EncodePush wraps msg in a push envelope.
func EncodePush(msg events.BatchMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch message: %w", err)
	}
	return json.Marshal(Envelope{Message: &Message{Data: base64.StdEncoding.EncodeToString(data)}})
}
