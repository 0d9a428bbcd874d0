package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// XAdd appends an entry to a stream, creating it if necessary.
func (rs *RedisService) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	return rs.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
}

// XGroupCreate creates a consumer group on a stream. BUSYGROUP (group
// already exists) is swallowed — group creation is idempotent at the
// call site by design, matching the Event Log's at-least-once semantics.
func (rs *RedisService) XGroupCreate(ctx context.Context, stream, group, start string) error {
	err := rs.client.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err != nil && isBusyGroup(err) {
		return nil
	}
	return err
}

func isBusyGroup(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists")
}

// XReadGroup blocks for up to `block` waiting for new entries on behalf of
// `consumer` within `group`.
func (rs *RedisService) XReadGroup(ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration) ([]redis.XStream, error) {
	res, err := rs.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  streams,
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

// XAck acknowledges one or more message ids, removing them from the
// group's pending-entries list.
func (rs *RedisService) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return rs.client.XAck(ctx, stream, group, ids...).Err()
}

// XPending returns the summary view of a group's pending-entries list.
func (rs *RedisService) XPending(ctx context.Context, stream, group string) (*redis.XPending, error) {
	return rs.client.XPending(ctx, stream, group).Result()
}

// XPendingExt returns the detailed pending-entries list, filtered to
// entries idle for at least minIdle — the claim scan's input set.
func (rs *RedisService) XPendingExt(ctx context.Context, stream, group, start, end string, count int64, minIdle time.Duration) ([]redis.XPendingExt, error) {
	return rs.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Idle:   minIdle,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
}

// XClaim reassigns the given pending ids to consumer, provided they have
// been idle at least minIdle.
func (rs *RedisService) XClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids ...string) ([]redis.XMessage, error) {
	return rs.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
}

// XAutoClaim is the single-call claim sweep: scan + claim in one round
// trip, returning a cursor for the next sweep.
func (rs *RedisService) XAutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, start string, count int64) ([]redis.XMessage, string, error) {
	msgs, cursor, err := rs.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    start,
		Count:    count,
	}).Result()
	return msgs, cursor, err
}

// XInfoConsumers lists the consumers currently registered in a group, used
// by the dead-consumer reaper.
func (rs *RedisService) XInfoConsumers(ctx context.Context, stream, group string) ([]redis.XInfoConsumer, error) {
	return rs.client.XInfoConsumers(ctx, stream, group).Result()
}

// XDel permanently removes entries from a stream (used when a dead-letter
// entry has been copied out and no longer needs the original).
func (rs *RedisService) XDel(ctx context.Context, stream string, ids ...string) error {
	return rs.client.XDel(ctx, stream, ids...).Err()
}

// XGroupDelConsumer removes a named consumer from a group, used by the
// dead-consumer reaper once a consumer has been idle with nothing pending.
func (rs *RedisService) XGroupDelConsumer(ctx context.Context, stream, group, consumer string) error {
	return rs.client.XGroupDelConsumer(ctx, stream, group, consumer).Err()
}
