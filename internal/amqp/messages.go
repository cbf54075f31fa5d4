package amqp

import (
	"encoding/json"
	"time"
)

// DocumentChangeMessage tells consumers that a ledger document changed.
// It carries only the document name and the action; consumers reload the
// document from the store if they need its contents.
type DocumentChangeMessage struct {
	Document  string    `json:"document"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDocumentChangeMessage creates a change message stamped with the current time
func NewDocumentChangeMessage(document, action string) *DocumentChangeMessage {
	return &DocumentChangeMessage{
		Document:  document,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DocumentChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func DocumentChangeMessageFromJSON(data []byte) (*DocumentChangeMessage, error) {
	var msg DocumentChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
