package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
)

// DriverLookup is the narrow read this package needs over the Driver
// aggregate to resolve a push token.
type DriverLookup interface {
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)
}

// NotificationPublisher is the append-only surface over the notification
// stream this package writes onto. NEW_OFFER_PROPOSED rides this queue
// directly; there is no separate offers stream.
type NotificationPublisher interface {
	Append(ctx context.Context, ev events.BaseEvent) (string, error)
}

// Notifier implements availability.Notifier, translating a schedule-driven
// status flip into a push notification without the synchronizer needing to
// know about FCM tokens or payload shape.
type Notifier struct {
	drivers DriverLookup
	publish NotificationPublisher
}

func NewNotifier(drivers DriverLookup, publish NotificationPublisher) *Notifier {
	return &Notifier{drivers: drivers, publish: publish}
}

// NotifyStatusFlip enqueues a best-effort push when driverID's derived
// availability flips. A driver with no push token is a
// silent no-op, not an error — the flip itself already succeeded.
func (n *Notifier) NotifyStatusFlip(ctx context.Context, driverID, newStatus string) error {
	driver, err := n.drivers.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil || driver.PushToken == nil || *driver.PushToken == "" {
		return nil
	}

	title := "You're back online"
	body := "Your schedule puts you back on shift."
	if newStatus == "INACTIVE" {
		title = "You're off shift"
		body = "Your schedule marked you unavailable."
	}

	return publishNotification(ctx, n.publish, "SCHEDULE_STATUS_FLIP", "", driverID, *driver.PushToken, title, body, map[string]interface{}{
		"new_status": newStatus,
	})
}

// SourceStream is the narrow read surface over the Assignment Engine's
// event log this bridge consumes from.
type SourceStream interface {
	EnsureGroup(ctx context.Context, group string) error
	ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error)
	Ack(ctx context.Context, group string, ids ...string) error
}

// OfferBridge consumes the Assignment Engine's NEW_OFFER_PROPOSED events
// and republishes them as push-notification-shaped entries on the
// notification stream, so the Push Pipeline never has to subscribe to
// assignment_events directly.
type OfferBridge struct {
	source   SourceStream
	drivers  DriverLookup
	publish  NotificationPublisher
	consumer string
}

const offerBridgeGroup = "offer_notification_bridge"

func NewOfferBridge(source SourceStream, drivers DriverLookup, publish NotificationPublisher, consumerName string) *OfferBridge {
	return &OfferBridge{source: source, drivers: drivers, publish: publish, consumer: consumerName}
}

// Run claims and translates NEW_OFFER_PROPOSED events until ctx is cancelled.
func (b *OfferBridge) Run(ctx context.Context, blockTimeout time.Duration, batchSize int64) {
	if err := b.source.EnsureGroup(ctx, offerBridgeGroup); err != nil {
		log.Printf("❌ offer bridge: ensure group: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		entries, err := b.source.ReadGroup(ctx, offerBridgeGroup, b.consumer, batchSize, blockTimeout)
		if err != nil {
			log.Printf("❌ offer bridge: read group: %v", err)
			continue
		}
		for _, entry := range entries {
			b.handle(ctx, entry)
		}
	}
}

func (b *OfferBridge) handle(ctx context.Context, entry eventlog.Entry) {
	if entry.Event.Type == events.NewOfferProposed {
		if err := b.forward(ctx, entry.Event); err != nil {
			log.Printf("⚠️ offer bridge: forward order=%s driver=%s: %v", entry.Event.OrderID, entry.Event.DriverID, err)
		}
	}
	if err := b.source.Ack(ctx, offerBridgeGroup, entry.ID); err != nil {
		log.Printf("⚠️ offer bridge: ack %s: %v", entry.ID, err)
	}
}

func (b *OfferBridge) forward(ctx context.Context, ev events.BaseEvent) error {
	driver, err := b.drivers.GetDriver(ctx, ev.DriverID)
	if err != nil {
		return err
	}
	if driver == nil || driver.PushToken == nil || *driver.PushToken == "" {
		return nil
	}

	var offer struct {
		Remuneration   int64     `json:"remuneration"`
		OfferExpiresAt time.Time `json:"offer_expires_at"`
	}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &offer); err != nil {
			return fmt.Errorf("push: decode offer payload: %w", err)
		}
	}

	return publishNotification(ctx, b.publish, "NEW_MISSION_OFFER", ev.OrderID, ev.DriverID, *driver.PushToken,
		"New delivery available", "A new mission is ready for you to accept.",
		map[string]interface{}{
			"order_id":         ev.OrderID,
			"remuneration":     offer.Remuneration,
			"offer_expires_at": offer.OfferExpiresAt,
		})
}

func publishNotification(ctx context.Context, publish NotificationPublisher, notificationType, orderID, driverID, fcmToken, title, body string, data map[string]interface{}) error {
	payload, err := json.Marshal(notificationPayload{
		FCMToken: fcmToken,
		Title:    title,
		Body:     body,
		Data:     data,
		Type:     notificationType,
	})
	if err != nil {
		return fmt.Errorf("push: marshal notification payload: %w", err)
	}

	// The stream's BaseEvent.Type field isn't read by the Push Pipeline (it
	// keys priority off payload.Type instead); NewOfferProposed is reused
	// here purely as a transport tag.
	ev := events.BaseEvent{
		Type:      events.NewOfferProposed,
		OrderID:   orderID,
		DriverID:  driverID,
		Timestamp: time.Now(),
		Payload:   payload,
		Metadata:  make(map[string]string),
	}
	_, err = publish.Append(ctx, ev)
	return err
}
