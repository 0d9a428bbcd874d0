package assignment

import (
	"context"
	"log"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
)

// RetryScheduler defers a NEW_ORDER_READY_FOR_ASSIGNMENT re-publication
// for an order that found no candidate this attempt.
type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, orderID string, due time.Time) error
}

// RetryZSet is the sorted-set surface DelayedRetryQueue needs, implemented
// by redis.IRedisService.
type RetryZSet interface {
	ZAdd(ctx context.Context, key string, members ...goredis.Z) error
	ZRem(ctx context.Context, key string, members ...interface{}) error
	ZRangeByScore(ctx context.Context, key string, opt *goredis.ZRangeBy) ([]string, error)
}

// DelayedRetryQueue holds deferred assignment retries in a Redis sorted
// set scored by due time. Scheduling the same order again overwrites its
// due time, so an order is queued at most once.
type DelayedRetryQueue struct {
	zset  RetryZSet
	log   EventLog
	clock domain.Clock
}

func NewDelayedRetryQueue(zset RetryZSet, log EventLog, clock domain.Clock) *DelayedRetryQueue {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &DelayedRetryQueue{zset: zset, log: log, clock: clock}
}

func (q *DelayedRetryQueue) ScheduleRetry(ctx context.Context, orderID string, due time.Time) error {
	return q.zset.ZAdd(ctx, common.RedisKeyAssignmentRetry, goredis.Z{
		Score:  float64(due.UnixMilli()),
		Member: orderID,
	})
}

// Run pops due entries every interval and republishes
// NEW_ORDER_READY_FOR_ASSIGNMENT for each. The member is removed before
// the publish; a publish failure reschedules it one interval out rather
// than losing the retry.
func (q *DelayedRetryQueue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.sweep(ctx, interval)
		}
	}
}

func (q *DelayedRetryQueue) sweep(ctx context.Context, interval time.Duration) {
	now := q.clock.Now()
	due, err := q.zset.ZRangeByScore(ctx, common.RedisKeyAssignmentRetry, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	})
	if err != nil {
		log.Printf("❌ assignment retry: range due: %v", err)
		return
	}
	for _, orderID := range due {
		if err := q.zset.ZRem(ctx, common.RedisKeyAssignmentRetry, orderID); err != nil {
			log.Printf("❌ assignment retry: remove %s: %v", orderID, err)
			continue
		}
		ev, err := events.NewBaseEvent(events.NewOrderReadyForAssignment, orderID, nil)
		if err != nil {
			continue
		}
		if _, err := q.log.Append(ctx, *ev); err != nil {
			log.Printf("❌ assignment retry: republish order %s: %v", orderID, err)
			_ = q.ScheduleRetry(ctx, orderID, now.Add(interval))
		}
	}
}
