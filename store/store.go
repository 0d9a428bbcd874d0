// Package store is the Postgres repository layer backing every narrow
// Store interface the core's packages declare (assignment.Store,
// mission.Store, billing.Store, availability.DriverStore/ScheduleStore,
// api.OrderStore/AdminStore/DriverStore) — the single concrete
// implementer of the per-worker repository interfaces. Plain SQL over
// *pgxpool.Pool, $N placeholders, tx.Begin/Commit/Rollback per write.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/redis"
)

// Store is the single repository type satisfying every package-level
// Store/DriverStore/ScheduleStore/OrderStore/AdminStore interface in this
// module. Held as *store.Store by cmd/* wiring and narrowed to whichever
// interface each collaborator declares.
type Store struct {
	pool   *pgxpool.Pool
	geo    redis.IGeoLocationManager
	cache  redis.IRedisService
	rng    domain.Rng
	idgen  func() string
	tracer trace.Tracer
}

// New constructs a Store over an already-connected pgxpool.Pool. geo may
// be nil if the caller doesn't need driver-location writes mirrored into
// the Redis geo index (e.g. read-only reconciliation tooling). cache backs
// the order blacklist set (RedisKeyOrderBlacklist) and driver heartbeat
// keys (RedisKeyDriverHeartbeat) — both named explicitly in constants.go
// as Redis-resident, not relational, state. rng mints waypoint confirmation
// codes (mission.CryptoRng in production); primary keys are drawn from
// google/uuid.
func New(pool *pgxpool.Pool, geo redis.IGeoLocationManager, cache redis.IRedisService, rng domain.Rng) *Store {
	return &Store{
		pool:   pool,
		geo:    geo,
		cache:  cache,
		rng:    rng,
		idgen:  func() string { return uuid.New().String() },
		tracer: otel.Tracer("dispatch-core/store"),
	}
}

// withTx runs fn inside a transaction, committing on success and rolling
// back otherwise, with a span wrapped around the whole round trip.
func (s *Store) withTx(ctx context.Context, name string, fn func(context.Context, pgx.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+name)
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "begin failed")
		span.RecordError(err)
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		span.SetStatus(codes.Error, "op failed")
		span.RecordError(err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		span.SetStatus(codes.Error, "commit failed")
		span.RecordError(err)
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}
