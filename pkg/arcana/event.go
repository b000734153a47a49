package arcana

import (
	"encoding/json"
	"time"
)

// EventKind classifies an observable event on the arcane event bus.
type EventKind string

const (
	// EventSummon is emitted when a daemon summoning is attempted.
	EventSummon EventKind = "summon"

	// EventInvoke is emitted when a daemon invocation completes.
	EventInvoke EventKind = "invoke"

	// EventBanish is emitted when a daemon banishment is attempted.
	EventBanish EventKind = "banish"

	// EventReveal is emitted when the realm state is inspected.
	EventReveal EventKind = "reveal"

	// EventParse is emitted when a spell is parsed (or fails to parse).
	EventParse EventKind = "parse"

	// EventRoute is emitted when the archon produces a routing decision.
	EventRoute EventKind = "route"
)

// Event is a single immutable record on the event bus.
// Field names match the observable JSON schema exactly.
type Event struct {
	Kind        EventKind      `json:"kind"`
	Daemon      DaemonID       `json:"daemon,omitempty"`
	Success     bool           `json:"success"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewEvent builds an event stamped with the current UTC time.
// Metadata may be nil; it is never mutated after emission.
func NewEvent(kind EventKind, daemon DaemonID, success bool, description string, metadata map[string]any) Event {
	return Event{
		Kind:        kind,
		Daemon:      daemon,
		Success:     success,
		Description: description,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}
}

// JSON renders the event as its wire representation.
func (e Event) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
