package events

import "time"

// TaskConfig identifies one stored document handed to the processing task.
type TaskConfig struct {
	CaseID  string `json:"case_id"`
	UID     string `json:"uid"`
	GCSURL  string `json:"gcs_url"`
	Context string `json:"context"`
}

// BatchMessage announces a set of documents ready for processing.
type BatchMessage struct {
	Message     string       `json:"message"`
	MessageList []TaskConfig `json:"message_list"`
}

// PublishBatch wraps msg in a batch event and publishes it on p.
func PublishBatch(p Publisher, caseID string, msg BatchMessage) {
	if p == nil {
		return
	}
	if msg.MessageList == nil {
		msg.MessageList = []TaskConfig{}
	}
	p.Publish(Event{
		Type:    TypeBatch,
		CaseID:  caseID,
		Payload: msg,
		Time:    time.Now().UTC(),
	})
}
