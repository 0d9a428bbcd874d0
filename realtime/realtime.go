// Package realtime implements the server-sent-event fan-out behind
// GET /track-stream/:order_id: one Hub per process holds a
// registry of subscriber channels per order and broadcasts status/location
// updates to every subscriber of that order.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType is one of the two real-time payload kinds the track stream
// emits.
type EventType string

const (
	StatusUpdated         EventType = "order:status_updated"
	DriverLocationUpdated EventType = "order:driver_location_updated"
)

// Update is one SSE payload. Fields unused by a given Type are left zero.
type Update struct {
	Type         EventType         `json:"type"`
	OrderID      string            `json:"order_id"`
	ClientID     string            `json:"client_id"`
	NewStatus    string            `json:"new_status,omitempty"`
	LogEntry     map[string]string `json:"log_entry,omitempty"`
	DriverID     string            `json:"driver_id,omitempty"`
	Location     *Location         `json:"location,omitempty"`
	ETASeconds   *float64          `json:"eta_seconds,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// subscriber is one open SSE connection's delivery channel. The atomic
// closed flag guards against sending on a channel the handler goroutine has
// already torn down.
type subscriber struct {
	ch     chan Update
	closed int32
}

// Hub fans Update values out to every subscriber of an order, keyed by
// order_id with a buffered channel per subscriber. A slow client drops
// frames rather than blocking the publisher.
type Hub struct {
	subs            sync.Map // order_id -> *sync.Map (subscriberID -> *subscriber)
	subscriberCount int64
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a new SSE listener for orderID and returns its
// delivery channel plus an unsubscribe func the handler must defer.
func (h *Hub) Subscribe(orderID string, buffer int) (<-chan Update, func()) {
	subID := subscriberID()
	sub := &subscriber{ch: make(chan Update, buffer)}

	actual, _ := h.subs.LoadOrStore(orderID, &sync.Map{})
	orderSubs := actual.(*sync.Map)
	orderSubs.Store(subID, sub)
	atomic.AddInt64(&h.subscriberCount, 1)

	unsubscribe := func() {
		atomic.StoreInt32(&sub.closed, 1)
		orderSubs.Delete(subID)
		atomic.AddInt64(&h.subscriberCount, -1)
		close(sub.ch)
	}
	return sub.ch, unsubscribe
}

// Publish fans update out to every live subscriber of update.OrderID. A
// full subscriber channel drops the update rather than blocking the
// publisher — SSE tracking is best-effort, not a delivery guarantee.
func (h *Hub) Publish(update Update) {
	value, ok := h.subs.Load(update.OrderID)
	if !ok {
		return
	}
	orderSubs := value.(*sync.Map)
	orderSubs.Range(func(_, v interface{}) bool {
		sub := v.(*subscriber)
		if atomic.LoadInt32(&sub.closed) == 1 {
			return true
		}
		select {
		case sub.ch <- update:
		default:
		}
		return true
	})
}

// SubscriberCount returns the total number of open SSE connections across
// all orders, for health/metrics reporting.
func (h *Hub) SubscriberCount() int {
	return int(atomic.LoadInt64(&h.subscriberCount))
}

var subIDCounter int64

// subscriberID mints a process-unique id without reaching for a UUID
// library — this registry key never leaves the process.
func subscriberID() int64 {
	return atomic.AddInt64(&subIDCounter, 1)
}
