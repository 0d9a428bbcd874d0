// Package push implements the Push Pipeline: a reliable stream consumer
// that delivers mission-lifecycle notifications through a PushSink,
// handling retries, a dead-letter queue, and poison-pill messages.
package push

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
)

const notificationGroup = "notification_workers_group"

// Stream is the narrow slice of *eventlog.Log this package needs.
type Stream interface {
	EnsureGroup(ctx context.Context, group string) error
	ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error)
	Ack(ctx context.Context, group string, ids ...string) error
	ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error)
	DeliveryCount(ctx context.Context, group, id string) (int64, error)
	Consumers(ctx context.Context, group string) ([]goredis.XInfoConsumer, error)
	RemoveConsumer(ctx context.Context, group, consumer string) error
}

// DeadLetterSink records messages that exhausted their retry budget.
type DeadLetterSink interface {
	Enqueue(ctx context.Context, entry eventlog.Entry, reason string) error
}

// TokenInvalidator is notified when PushSink reports a token as dead so the
// owning driver record can be cleared of it.
type TokenInvalidator interface {
	InvalidateToken(ctx context.Context, token string) error
}

// notificationPayload is the wire shape parsed out of each stream entry's
// Payload.
type notificationPayload struct {
	FCMToken string                 `json:"fcmToken"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data"`
	Type     string                 `json:"type"`
}

// Config holds the pipeline's tuning knobs.
type Config struct {
	MaxPerPoll                int64
	BlockTimeout              time.Duration
	ClaimCheckFrequency       int
	IdleTimeoutBeforeClaim    time.Duration
	MaxRetryBeforeDeadLetter  int64
	DeadConsumerIdleThreshold time.Duration
}

// Worker drives one consumer of the notification_workers_group.
type Worker struct {
	cfg             Config
	stream          Stream
	sink            domain.PushSink
	dlq             DeadLetterSink
	invalid         TokenInvalidator
	consumer        string
	claimCursor     string
	loopsSinceClaim int
}

func NewWorker(cfg Config, stream Stream, sink domain.PushSink, dlq DeadLetterSink, invalid TokenInvalidator, consumerName string) *Worker {
	return &Worker{cfg: cfg, stream: stream, sink: sink, dlq: dlq, invalid: invalid, consumer: consumerName, claimCursor: "0-0"}
}

// Run drives the claim/read/process loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if err := w.stream.EnsureGroup(ctx, notificationGroup); err != nil {
		log.Printf("❌ push worker: ensure group: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.loopsSinceClaim++
		if w.loopsSinceClaim >= w.cfg.ClaimCheckFrequency {
			w.loopsSinceClaim = 0
			claimed := w.claim(ctx)
			for _, entry := range claimed {
				w.process(ctx, entry)
			}
		}

		entries, err := w.stream.ReadGroup(ctx, notificationGroup, w.consumer, w.cfg.MaxPerPoll, w.cfg.BlockTimeout)
		if err != nil {
			log.Printf("❌ push worker: read group: %v", err)
			continue
		}
		for _, entry := range entries {
			w.process(ctx, entry)
		}
	}
}

// claim reclaims entries idle longer than IdleTimeoutBeforeClaim for this
// consumer.
func (w *Worker) claim(ctx context.Context) []eventlog.Entry {
	entries, cursor, err := w.stream.ClaimStale(ctx, notificationGroup, w.consumer, w.cfg.IdleTimeoutBeforeClaim, w.claimCursor, w.cfg.MaxPerPoll)
	if err != nil {
		log.Printf("⚠️ push worker: claim stale: %v", err)
		return nil
	}
	w.claimCursor = cursor
	if len(entries) > 0 {
		w.loopsSinceClaim = w.cfg.ClaimCheckFrequency // re-arm an immediate re-claim next loop
	}
	return entries
}

// process parses, sends, and interprets the outcome of a single message.
func (w *Worker) process(ctx context.Context, entry eventlog.Entry) {
	var payload notificationPayload
	if err := json.Unmarshal(entry.Event.Payload, &payload); err != nil {
		w.ack(ctx, entry.ID) // poison pill
		return
	}
	if payload.FCMToken == "" || payload.Title == "" {
		w.ack(ctx, entry.ID) // parse/validate error, poison pill
		return
	}

	data := coerceDataStrings(payload.Data)
	priority := priorityFor(payload.Type)

	result, err := w.sink.Send(ctx, payload.FCMToken, payload.Title, payload.Body, data, priority)
	switch {
	case err == nil && result.Success:
		w.ack(ctx, entry.ID)
	case err == nil && result.InvalidToken:
		if w.invalid != nil {
			if ierr := w.invalid.InvalidateToken(ctx, payload.FCMToken); ierr != nil {
				log.Printf("⚠️ push worker: invalidate token: %v", ierr)
			}
		}
		w.ack(ctx, entry.ID)
	default:
		// Recoverable failure: leave unacked so delivery count increments on
		// the next claim sweep. Dead-letter once the retry budget is spent.
		w.maybeDeadLetter(ctx, entry)
	}
}

// maybeDeadLetter routes a message to the DLQ once its retries are spent.
// The retry budget is read from the pending-entries list: the stream's own
// per-entry delivery counter increments on every read and claim handoff,
// so no producer-side bookkeeping is needed.
func (w *Worker) maybeDeadLetter(ctx context.Context, entry eventlog.Entry) {
	count, err := w.stream.DeliveryCount(ctx, notificationGroup, entry.ID)
	if err != nil {
		log.Printf("⚠️ push worker: delivery count %s: %v", entry.ID, err)
		return // still pending; the next claim sweep retries
	}
	if count < w.cfg.MaxRetryBeforeDeadLetter {
		return
	}
	if w.dlq != nil {
		if err := w.dlq.Enqueue(ctx, entry, "max_retry_exceeded"); err != nil {
			log.Printf("⚠️ push worker: dead-letter enqueue: %v", err)
			return
		}
	}
	w.ack(ctx, entry.ID)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.stream.Ack(ctx, notificationGroup, id); err != nil {
		log.Printf("⚠️ push worker: ack %s: %v", id, err)
	}
}

// ReapDeadConsumers is a flag-gated operation that removes consumers idle
// past the threshold with no pending entries.
func (w *Worker) ReapDeadConsumers(ctx context.Context) error {
	consumers, err := w.stream.Consumers(ctx, notificationGroup)
	if err != nil {
		return err
	}
	for _, c := range consumers {
		if c.Pending == 0 && c.Idle > w.cfg.DeadConsumerIdleThreshold {
			if err := w.stream.RemoveConsumer(ctx, notificationGroup, c.Name); err != nil {
				log.Printf("⚠️ push worker: reap consumer %s: %v", c.Name, err)
			}
		}
	}
	return nil
}

// priorityFor picks the FCM priority: NEW_MISSION_OFFER gets high
// priority, a high-urgency channel, and a distinctive sound; everything
// else is normal.
func priorityFor(eventType string) string {
	if eventType == "NEW_MISSION_OFFER" {
		return "high"
	}
	return "normal"
}

// coerceDataStrings string-coerces every FCM data value: numbers,
// booleans and objects via their JSON encoding. FCM rejects non-string data.
func coerceDataStrings(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case bool, float64, int, int64:
			out[k] = toString(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func toString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	// json.Marshal on a bare string value quotes it; numbers/bools are
	// already bare, so only strip quotes when present.
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

