package assignment

import (
	"context"
	"strconv"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/events"
)

type fakeZSet struct {
	scores map[string]float64
}

func newFakeZSet() *fakeZSet { return &fakeZSet{scores: map[string]float64{}} }

func (f *fakeZSet) ZAdd(ctx context.Context, key string, members ...goredis.Z) error {
	for _, m := range members {
		f.scores[m.Member.(string)] = m.Score
	}
	return nil
}

func (f *fakeZSet) ZRem(ctx context.Context, key string, members ...interface{}) error {
	for _, m := range members {
		delete(f.scores, m.(string))
	}
	return nil
}

func (f *fakeZSet) ZRangeByScore(ctx context.Context, key string, opt *goredis.ZRangeBy) ([]string, error) {
	max, err := strconv.ParseFloat(opt.Max, 64)
	if err != nil {
		return nil, err
	}
	var out []string
	for member, score := range f.scores {
		if score <= max {
			out = append(out, member)
		}
	}
	return out, nil
}

func TestDelayedRetryQueue_RepublishesDueOrders(t *testing.T) {
	zset := newFakeZSet()
	eventLog := &fakeEventLog{}
	q := NewDelayedRetryQueue(zset, eventLog, nil)

	require.NoError(t, q.ScheduleRetry(context.Background(), "o1", time.Now().Add(-time.Second)))
	require.NoError(t, q.ScheduleRetry(context.Background(), "o2", time.Now().Add(time.Hour)))

	q.sweep(context.Background(), 30*time.Second)

	require.Equal(t, []events.EventType{events.NewOrderReadyForAssignment}, eventLog.published)
	require.NotContains(t, zset.scores, "o1")
	require.Contains(t, zset.scores, "o2", "a retry that is not yet due must stay queued")
}

func TestDelayedRetryQueue_ReschedulingKeepsLatestDueTime(t *testing.T) {
	zset := newFakeZSet()
	q := NewDelayedRetryQueue(zset, &fakeEventLog{}, nil)

	first := time.Now().Add(10 * time.Second)
	second := time.Now().Add(time.Minute)
	require.NoError(t, q.ScheduleRetry(context.Background(), "o1", first))
	require.NoError(t, q.ScheduleRetry(context.Background(), "o1", second))

	require.Len(t, zset.scores, 1)
	require.Equal(t, float64(second.UnixMilli()), zset.scores["o1"])
}
