package amqp

import (
	"encoding/json"
	"time"
)

// EntryAppendedMessage announces a row appended to a ledger. It carries the
// full serialized row so the mirror worker can insert it without reading the
// spreadsheet back.
type EntryAppendedMessage struct {
	Ledger    string    `json:"ledger"`
	Kind      string    `json:"kind"`
	Branch    string    `json:"branch"`
	Month     string    `json:"month"`
	Values    []string  `json:"values"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryAppendedMessage creates a message for a freshly appended row
func NewEntryAppendedMessage(ledger, kind, branch, month string, values []string) *EntryAppendedMessage {
	return &EntryAppendedMessage{
		Ledger:    ledger,
		Kind:      kind,
		Branch:    branch,
		Month:     month,
		Values:    values,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func EntryAppendedMessageFromJSON(data []byte) (*EntryAppendedMessage, error) {
	var msg EntryAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
