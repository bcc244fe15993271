package eventstore

import (
	"encoding/json"
	"time"
)

// Event is one entry of the run journal.
type Event interface {
	// ID returns the store-assigned identifier (zero before persisting).
	ID() int64
	RunID() string
	Type() string
	Timestamp() time.Time
	// Payload returns the JSON encoded event data.
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent is the concrete Event stored and loaded by SQLiteStore.
type BaseEvent struct {
	EventID        int64
	EventRunID     string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) RunID() string               { return e.EventRunID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }

func newEvent(runID, eventType string, payload any, metadata map[string]string) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(ErrMarshalPayloadFailed, err)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
		EventMetadata:  metadata,
	}, nil
}

// decodePayload unmarshals the payload of e into v. Events written by older
// builds may lack fields; those stay zero.
func decodePayload(e Event, v any) bool {
	if len(e.Payload()) == 0 {
		return false
	}
	return json.Unmarshal(e.Payload(), v) == nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
