package events

import (
	"context"
	"fmt"
	"time"
)

// handlerEventNames maps the SCREAMING_SNAKE_CASE event names the HTTP
// boundary speaks (NEW_ORDER_READY_FOR_ASSIGNMENT, OFFER_ACCEPTED_BY_DRIVER,
// ...) onto the authoritative EventType values. The HTTP handlers are
// deliberately ignorant of the wire encoding of EventType; this is the one
// place that translates.
var handlerEventNames = map[string]EventType{
	"NEW_ORDER_READY_FOR_ASSIGNMENT": NewOrderReadyForAssignment,
	"NEW_OFFER_PROPOSED":             NewOfferProposed,
	"OFFER_ACCEPTED_BY_DRIVER":       OfferAcceptedByDriver,
	"OFFER_REFUSED_BY_DRIVER":        OfferRefusedByDriver,
	"OFFER_EXPIRED_FOR_DRIVER":       OfferExpiredForDriver,
	"MANUALLY_ASSIGNED":              ManuallyAssigned,
	"COMPLETED":                      Completed,
	"CANCELLED_BY_ADMIN":             CancelledByAdmin,
	"CANCELLED_BY_SYSTEM":            CancelledBySystem,
	"FAILED":                         Failed,
}

// Appender is the narrow append surface *eventlog.Log exposes; named here
// rather than imported to avoid an events -> eventlog import cycle
// (eventlog already imports events for BaseEvent).
type Appender interface {
	Append(ctx context.Context, ev BaseEvent) (string, error)
}

// PublishFunc adapts an Appender into the
// func(ctx, eventType, orderID, driverID string, payload map[string]interface{}) error
// shape the api package's routers take as a constructor argument, so
// cmd/api doesn't need its own translation closure.
func PublishFunc(publisher Appender) func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error {
	return func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error {
		t, ok := handlerEventNames[eventType]
		if !ok {
			return fmt.Errorf("events: unknown handler event name %q", eventType)
		}
		ev := BaseEvent{
			Type:      t,
			OrderID:   orderID,
			DriverID:  driverID,
			Timestamp: time.Now(),
			Metadata:  make(map[string]string),
		}
		if payload != nil {
			base, err := NewBaseEvent(t, orderID, payload)
			if err != nil {
				return err
			}
			ev.Payload = base.Payload
		}
		_, err := publisher.Append(ctx, ev)
		return err
	}
}
