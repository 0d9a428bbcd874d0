package eventlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/redis"
)

// fakeRedis implements only the stream subset of redis.IRedisService; every
// other method panics if called, which is intentional — it flags this
// package reaching outside its documented surface.
type fakeRedis struct {
	redis.IRedisService
	added   []map[string]interface{}
	nextID  int
	pending []goredis.XMessage
}

func (f *fakeRedis) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	f.added = append(f.added, values)
	f.nextID++
	return "1-" + string(rune('0'+f.nextID)), nil
}

func (f *fakeRedis) XGroupCreate(ctx context.Context, stream, group, start string) error {
	return nil
}

func (f *fakeRedis) XReadGroup(ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration) ([]goredis.XStream, error) {
	if len(f.pending) == 0 {
		return nil, nil
	}
	msgs := f.pending
	f.pending = nil
	return []goredis.XStream{{Stream: streams[0], Messages: msgs}}, nil
}

func (f *fakeRedis) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return nil
}

func TestAppend_EncodesPayloadAndMetadata(t *testing.T) {
	fr := &fakeRedis{}
	l := New(fr, "assignment_events")

	ev, err := events.NewBaseEvent(events.NewOrderReadyForAssignment, "order-1", map[string]string{"foo": "bar"})
	require.NoError(t, err)

	id, err := l.Append(context.Background(), *ev)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, fr.added, 1)
	require.Equal(t, string(events.NewOrderReadyForAssignment), fr.added[0]["type"])
	require.Equal(t, "order-1", fr.added[0]["order_id"])

	var decodedPayload map[string]string
	require.NoError(t, json.Unmarshal([]byte(fr.added[0]["payload"].(string)), &decodedPayload))
	require.Equal(t, "bar", decodedPayload["foo"])
}

func TestReadGroup_DecodesEntries(t *testing.T) {
	fr := &fakeRedis{
		pending: []goredis.XMessage{
			{
				ID: "1-1",
				Values: map[string]interface{}{
					"type":      string(events.OfferAcceptedByDriver),
					"order_id":  "order-2",
					"driver_id": "driver-9",
					"timestamp": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
					"payload":   `{"note":"ok"}`,
					"metadata":  `{}`,
				},
			},
		},
	}
	l := New(fr, "assignment_events")
	entries, err := l.ReadGroup(context.Background(), "assignment_workers", "worker-1", 10, time.Second)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1-1", entries[0].ID)
	require.Equal(t, events.OfferAcceptedByDriver, entries[0].Event.Type)
	require.Equal(t, "order-2", entries[0].Event.OrderID)
	require.Equal(t, "driver-9", entries[0].Event.DriverID)
	require.JSONEq(t, `{"note":"ok"}`, string(entries[0].Event.Payload))
}

func TestAck_NoopOnEmptyIDs(t *testing.T) {
	fr := &fakeRedis{}
	l := New(fr, "assignment_events")
	require.NoError(t, l.Ack(context.Background(), "assignment_workers"))
}
