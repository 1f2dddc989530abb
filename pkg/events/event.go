package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published by the interaction controllers.
const (
	TypeIngestionStateChanged = "INGESTION_STATE_CHANGED"
	TypeIngestionNotice       = "INGESTION_NOTICE"
	TypeQueryStateChanged     = "QUERY_STATE_CHANGED"

	// TypePanelSnapshot is sent once to a newly attached panel.
	TypePanelSnapshot = "PANEL_SNAPSHOT"
)

// Well-known payload keys.
const (
	KeySessionID = "session_id"
	KeyState     = "state"
	KeyNotice    = "notice"
	KeyPanel     = "panel"
)

// Event defines the contract for all state-change notifications.
type Event interface {
	// EventType returns the unique code for this event (e.g., "QUERY_STATE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete event used on the bus and on the wire.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// FromEvent copies any Event into a BaseEvent.
func FromEvent(e Event) BaseEvent {
	if be, ok := e.(BaseEvent); ok {
		return be
	}
	return BaseEvent{
		Type:       e.EventType(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	}
}

// SessionID returns the session the event belongs to, or "".
func SessionID(e Event) string {
	if e.Payload() == nil {
		return ""
	}
	id, _ := e.Payload()[KeySessionID].(string)
	return id
}

// DecodeData decodes the payload entry under key into out. Payloads that
// went through JSON hold generic maps, so the entry is re-encoded first.
func DecodeData(e Event, key string, out any) error {
	v, ok := e.Payload()[key]
	if !ok {
		return fmt.Errorf("event %s has no %q entry", e.EventType(), key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("re-encode %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
