// Package eventlog wraps the Redis stream/consumer-group primitives
// (package redis) into the single append-only Event Log that drives the
// Assignment Engine, the Push Pipeline, and the Billing Worker. Event
// naming is owned by package events; no consumer builds type strings.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/redis"
)

// Entry is one claimed/read stream record, carrying both the raw ID Redis
// needs for Ack/Claim and the decoded domain event.
type Entry struct {
	ID    string
	Event events.BaseEvent
}

// Log is the append + consumer-group-read surface over a single stream.
type Log struct {
	client redis.IRedisService
	stream string
}

func New(client redis.IRedisService, stream string) *Log {
	return &Log{client: client, stream: stream}
}

// EnsureGroup creates group if it does not already exist, reading from the
// beginning of the stream ("0") so no backlog is skipped.
func (l *Log) EnsureGroup(ctx context.Context, group string) error {
	return l.client.XGroupCreate(ctx, l.stream, group, "0")
}

// Append publishes ev to the stream, JSON-encoding the payload/metadata so
// readers on any consumer group see the same record.
func (l *Log) Append(ctx context.Context, ev events.BaseEvent) (string, error) {
	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		return "", fmt.Errorf("eventlog: marshal metadata: %w", err)
	}
	return l.client.XAdd(ctx, l.stream, map[string]interface{}{
		"type":      string(ev.Type),
		"order_id":  ev.OrderID,
		"driver_id": ev.DriverID,
		"timestamp": ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":   string(ev.Payload),
		"metadata":  string(metadata),
	})
}

// ReadGroup reads up to count new entries for consumer within group,
// blocking up to block for arrivals. Returns (nil, nil) on a timeout.
func (l *Log) ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := l.client.XReadGroup(ctx, group, consumer, []string{l.stream, ">"}, count, block)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			ev, err := decode(msg)
			if err != nil {
				continue
			}
			entries = append(entries, Entry{ID: msg.ID, Event: ev})
		}
	}
	return entries, nil
}

// Ack acknowledges ids, removing them from group's pending-entries list.
func (l *Log) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return l.client.XAck(ctx, l.stream, group, ids...)
}

// ClaimStale auto-claims entries idle for at least minIdle, handing them to
// consumer — the redelivery path for crashed workers.
func (l *Log) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]Entry, string, error) {
	msgs, next, err := l.client.XAutoClaim(ctx, l.stream, group, consumer, minIdle, cursor, count)
	if err != nil {
		return nil, cursor, err
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decode(msg)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ID: msg.ID, Event: ev})
	}
	return entries, next, nil
}

// Pending returns the group's pending-entries-list summary (count, low/high
// watermark), used to detect a growing backlog.
func (l *Log) Pending(ctx context.Context, group string) (*goredis.XPending, error) {
	return l.client.XPending(ctx, l.stream, group)
}

// DeliveryCount returns the group's delivery counter for a single pending
// entry — the number of times the stream has handed it to a consumer,
// which increments on every read and claim. Zero with a nil error means
// the entry is no longer pending.
func (l *Log) DeliveryCount(ctx context.Context, group, id string) (int64, error) {
	pending, err := l.client.XPendingExt(ctx, l.stream, group, id, id, 1, 0)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

// Consumers lists the consumers currently registered in group — input to
// the dead-consumer reaper.
func (l *Log) Consumers(ctx context.Context, group string) ([]goredis.XInfoConsumer, error) {
	return l.client.XInfoConsumers(ctx, l.stream, group)
}

// RemoveConsumer deletes a named consumer from group — the dead-consumer
// reaper's action once it finds idle>threshold && pending==0.
func (l *Log) RemoveConsumer(ctx context.Context, group, consumer string) error {
	return l.client.XGroupDelConsumer(ctx, l.stream, group, consumer)
}

// Delete permanently removes ids from the stream, used once a dead-letter
// copy has been made durable elsewhere.
func (l *Log) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return l.client.XDel(ctx, l.stream, ids...)
}

func decode(msg goredis.XMessage) (events.BaseEvent, error) {
	var ev events.BaseEvent
	fields := msg.Values

	ev.Type = events.EventType(fmt.Sprint(fields["type"]))
	ev.OrderID = fmt.Sprint(fields["order_id"])
	ev.DriverID = fmt.Sprint(fields["driver_id"])

	if ts, ok := fields["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ev.Timestamp = parsed
		}
	}
	if payload, ok := fields["payload"].(string); ok && payload != "" {
		ev.Payload = json.RawMessage(payload)
	}
	if metadata, ok := fields["metadata"].(string); ok && metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &ev.Metadata); err != nil {
			return ev, fmt.Errorf("eventlog: decode metadata: %w", err)
		}
	}
	return ev, nil
}
