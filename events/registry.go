// Package events defines the mission lifecycle event enum, the single
// authoritative event-naming scheme for this core. No producer or
// consumer constructs an event-type string literal of its own.
package events

import (
	"context"
	"encoding/json"
	"time"

	common "github.com/motocabz/dispatch-core"
)

// EventType is one of the mission lifecycle event names.
type EventType string

const (
	NewOrderReadyForAssignment EventType = common.EventNewOrderReadyForAssignment
	NewOfferProposed           EventType = common.EventNewOfferProposed
	OfferAcceptedByDriver      EventType = common.EventOfferAcceptedByDriver
	OfferRefusedByDriver       EventType = common.EventOfferRefusedByDriver
	OfferExpiredForDriver      EventType = common.EventOfferExpiredForDriver
	ManuallyAssigned           EventType = common.EventManuallyAssigned
	Completed                  EventType = common.EventCompleted
	CancelledByAdmin           EventType = common.EventCancelledByAdmin
	CancelledBySystem          EventType = common.EventCancelledBySystem
	Failed                     EventType = common.EventFailed
)

// BaseEvent is the flat record every event log entry carries at minimum:
// type, orderId, timestamp, plus optional driver/payload/metadata fields.
type BaseEvent struct {
	Type      EventType         `json:"type"`
	OrderID   string            `json:"orderId"`
	DriverID  string            `json:"driverId,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventPublisher publishes a mission lifecycle event onto the shared log.
type EventPublisher interface {
	Publish(ctx context.Context, event BaseEvent) (string, error)
}

// NewBaseEvent builds an event with the given payload JSON-encoded.
func NewBaseEvent(eventType EventType, orderID string, payload interface{}) (*BaseEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &BaseEvent{
		Type:      eventType,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Payload:   raw,
		Metadata:  make(map[string]string),
	}, nil
}

// IsTerminal reports whether an event type removes its order from any
// in-flight assignment or retry state.
func (t EventType) IsTerminal() bool {
	switch t {
	case CancelledByAdmin, CancelledBySystem, Completed, Failed:
		return true
	default:
		return false
	}
}
