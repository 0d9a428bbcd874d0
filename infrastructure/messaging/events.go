// Package messaging carries dispatch-core events to sibling services that
// live outside this core (identity, client, company back-office) over Dapr
// pub/sub. This is distinct from the internal event log (package eventlog),
// which drives the Assignment Engine/Push Pipeline/Billing Worker
// themselves. This package is for the outward fan-out only.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/dapr"
)

// Event is a cross-service notification, topic-routed rather than
// stream-routed — no consumer group, no ack, fire-and-forget by contract.
type Event struct {
	Type      string                 `json:"type"`
	Service   string                 `json:"service"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   json.RawMessage        `json:"payload"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventPublisher publishes a cross-service event to a named topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
}

// EventHandler processes one inbound cross-service event.
type EventHandler func(ctx context.Context, event *Event) error

// EventSubscriber subscribes a handler to a topic.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
}

// NewEvent builds a cross-service event with its payload JSON-encoded.
func NewEvent(eventType, service string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:      eventType,
		Service:   service,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
		Metadata:  make(map[string]interface{}),
	}, nil
}

// DaprPublisher implements EventPublisher over the Dapr pub/sub building
// block (dapr.DaprClient.PublishEvent) on the common.DaprPubsubName
// component. The Billing Worker is its one user (cmd/billing-worker); the
// API process uses Dapr only for routing-service invocation.
type DaprPublisher struct {
	client *dapr.DaprClient
}

// NewDaprPublisher wraps a Dapr client as an EventPublisher. A nil client
// degrades Publish to a no-op, matching the rest of the codebase's handling
// of an unavailable Dapr sidecar (see cmd/api/main.go).
func NewDaprPublisher(client *dapr.DaprClient) *DaprPublisher {
	return &DaprPublisher{client: client}
}

func (p *DaprPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	if p.client == nil {
		return nil
	}
	return p.client.PublishEvent(ctx, common.DaprPubsubName, topic, event)
}
