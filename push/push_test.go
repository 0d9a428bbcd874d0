package push

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
)

type fakeStream struct {
	entries         []eventlog.Entry
	acked           []string
	claimed         []eventlog.Entry
	deliveryCounts  map[string]int64
	consumers       []goredis.XInfoConsumer
	removedConsumer string
}

func (s *fakeStream) EnsureGroup(ctx context.Context, group string) error { return nil }
func (s *fakeStream) ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error) {
	entries := s.entries
	s.entries = nil
	return entries, nil
}
func (s *fakeStream) Ack(ctx context.Context, group string, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}
func (s *fakeStream) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error) {
	claimed := s.claimed
	s.claimed = nil
	return claimed, "0-0", nil
}
func (s *fakeStream) DeliveryCount(ctx context.Context, group, id string) (int64, error) {
	return s.deliveryCounts[id], nil
}
func (s *fakeStream) Consumers(ctx context.Context, group string) ([]goredis.XInfoConsumer, error) {
	return s.consumers, nil
}
func (s *fakeStream) RemoveConsumer(ctx context.Context, group, consumer string) error {
	s.removedConsumer = consumer
	return nil
}

type fakeSink struct {
	result domain.SendResult
	err    error
}

func (f *fakeSink) Send(ctx context.Context, token, title, body string, data map[string]string, priority string) (domain.SendResult, error) {
	return f.result, f.err
}

type fakeDLQ struct {
	entries []eventlog.Entry
}

func (d *fakeDLQ) Enqueue(ctx context.Context, entry eventlog.Entry, reason string) error {
	d.entries = append(d.entries, entry)
	return nil
}

func notifEntry(id, token, title string) eventlog.Entry {
	ev, _ := events.NewBaseEvent(events.NewOfferProposed, "o1", nil)
	ev.Payload = []byte(`{"fcmToken":"` + token + `","title":"` + title + `","body":"b","type":"NEW_MISSION_OFFER","data":{"n":1,"ok":true}}`)
	return eventlog.Entry{ID: id, Event: *ev}
}

func TestProcess_SuccessAcks(t *testing.T) {
	stream := &fakeStream{}
	sink := &fakeSink{result: domain.SendResult{Success: true}}
	w := NewWorker(Config{}, stream, sink, nil, nil, "c1")

	w.process(context.Background(), notifEntry("1-1", "tok", "hi"))
	require.Equal(t, []string{"1-1"}, stream.acked)
}

func TestProcess_InvalidTokenInvalidatesAndAcks(t *testing.T) {
	stream := &fakeStream{}
	sink := &fakeSink{result: domain.SendResult{InvalidToken: true}}
	invalidated := ""
	invalidator := invalidatorFunc(func(ctx context.Context, token string) error {
		invalidated = token
		return nil
	})
	w := NewWorker(Config{}, stream, sink, nil, invalidator, "c1")

	w.process(context.Background(), notifEntry("1-1", "dead-token", "hi"))
	require.Equal(t, []string{"1-1"}, stream.acked)
	require.Equal(t, "dead-token", invalidated)
}

func TestProcess_ParseErrorIsPoisonPill(t *testing.T) {
	stream := &fakeStream{}
	w := NewWorker(Config{}, stream, &fakeSink{}, nil, nil, "c1")

	ev, _ := events.NewBaseEvent(events.NewOfferProposed, "o1", nil)
	ev.Payload = []byte(`not json`)
	w.process(context.Background(), eventlog.Entry{ID: "1-1", Event: *ev})
	require.Equal(t, []string{"1-1"}, stream.acked)
}

func TestMaybeDeadLetter_EnqueuesAndAcksAtThreshold(t *testing.T) {
	stream := &fakeStream{deliveryCounts: map[string]int64{"1-1": 3}}
	dlq := &fakeDLQ{}
	w := NewWorker(Config{MaxRetryBeforeDeadLetter: 3}, stream, &fakeSink{}, dlq, nil, "c1")

	w.maybeDeadLetter(context.Background(), notifEntry("1-1", "tok", "hi"))

	require.Len(t, dlq.entries, 1)
	require.Equal(t, []string{"1-1"}, stream.acked)
}

func TestMaybeDeadLetter_BelowThresholdLeavesUnacked(t *testing.T) {
	stream := &fakeStream{deliveryCounts: map[string]int64{"1-1": 1}}
	dlq := &fakeDLQ{}
	w := NewWorker(Config{MaxRetryBeforeDeadLetter: 3}, stream, &fakeSink{}, dlq, nil, "c1")

	w.maybeDeadLetter(context.Background(), notifEntry("1-1", "tok", "hi"))

	require.Empty(t, dlq.entries)
	require.Empty(t, stream.acked)
}

func TestProcess_RecoverableFailureDeadLettersOnceBudgetSpent(t *testing.T) {
	// The same recoverably-failing message, observed at increasing PEL
	// delivery counts: pending until the budget is spent, then dead-lettered.
	stream := &fakeStream{deliveryCounts: map[string]int64{"1-1": 2}}
	dlq := &fakeDLQ{}
	sink := &fakeSink{err: context.DeadlineExceeded}
	w := NewWorker(Config{MaxRetryBeforeDeadLetter: 3}, stream, sink, dlq, nil, "c1")

	w.process(context.Background(), notifEntry("1-1", "tok", "hi"))
	require.Empty(t, dlq.entries)
	require.Empty(t, stream.acked)

	stream.deliveryCounts["1-1"] = 3
	w.process(context.Background(), notifEntry("1-1", "tok", "hi"))
	require.Len(t, dlq.entries, 1)
	require.Equal(t, []string{"1-1"}, stream.acked)
}

func TestReapDeadConsumers_RemovesIdleWithNoPending(t *testing.T) {
	stream := &fakeStream{consumers: []goredis.XInfoConsumer{
		{Name: "dead", Pending: 0, Idle: time.Hour},
		{Name: "busy", Pending: 2, Idle: time.Hour},
	}}
	w := NewWorker(Config{DeadConsumerIdleThreshold: time.Minute}, stream, &fakeSink{}, nil, nil, "c1")

	require.NoError(t, w.ReapDeadConsumers(context.Background()))
	require.Equal(t, "dead", stream.removedConsumer)
}

func TestCoerceDataStrings_CoercesNonStrings(t *testing.T) {
	out := coerceDataStrings(map[string]interface{}{
		"count":   3.0,
		"ok":      true,
		"name":    "x",
		"nested":  map[string]interface{}{"a": 1.0},
	})
	require.Equal(t, "3", out["count"])
	require.Equal(t, "true", out["ok"])
	require.Equal(t, "x", out["name"])
	require.Equal(t, `{"a":1}`, out["nested"])
}

func TestPriorityFor_NewMissionOfferIsHigh(t *testing.T) {
	require.Equal(t, "high", priorityFor("NEW_MISSION_OFFER"))
	require.Equal(t, "normal", priorityFor("OFFER_EXPIRED"))
}

type invalidatorFunc func(ctx context.Context, token string) error

func (f invalidatorFunc) InvalidateToken(ctx context.Context, token string) error { return f(ctx, token) }
