package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
)

const driverColumns = `SELECT
	id, user_id, company_id, latest_status, current_location, average_rating,
	is_valid_driver, mobile_money, push_token, created_at, updated_at`

// GetDriver loads a single driver by id, or nil if it doesn't exist.
func (s *Store) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	row := s.pool.QueryRow(ctx, driverColumns+` FROM drivers WHERE id = $1`, driverID)
	return scanDriver(row)
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var d domain.Driver
	var location *string
	var mobileMoney []byte
	err := row.Scan(
		&d.ID, &d.UserID, &d.CompanyID, &d.LatestStatus, &location, &d.AverageRating,
		&d.IsValidDriver, &mobileMoney, &d.PushToken, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan driver: %w", err)
	}
	d.CurrentLocation, err = decodeWKBPointPtr(location)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(mobileMoney, &d.MobileMoney); err != nil {
		return nil, fmt.Errorf("store: unmarshal mobile money: %w", err)
	}
	return &d, nil
}

// SetDriverStatus appends a driver status log entry (the authoritative
// "latest_status" the rest of the core reads is a derived read, see
// LatestStatus below), enforcing the "no two consecutive entries share a
// status" invariant at write time.
func (s *Store) SetDriverStatus(ctx context.Context, driverID, status string) error {
	if err := s.withTx(ctx, "SetDriverStatus", func(ctx context.Context, tx pgx.Tx) error {
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, status, time.Now().UTC(), nil)
	}); err != nil {
		return err
	}
	// A driver gone INACTIVE must drop out of the geo index immediately —
	// otherwise FindNearbyDrivers keeps surfacing it as a candidate until
	// its stale location ages out on its own.
	if status == common.DriverStatusInactive && s.geo != nil {
		if err := s.geo.RemoveDriverLocation(ctx, driverID); err != nil {
			return fmt.Errorf("store: remove inactive driver from geo index: %w", err)
		}
	}
	return nil
}

// insertDriverStatusLog is a no-op if status already matches the driver's
// latest logged status, preserving the "no two consecutive entries share a
// status" invariant, then mirrors the new status onto drivers.latest_status.
func insertDriverStatusLog(ctx context.Context, tx pgx.Tx, id, driverID, status string, at time.Time, metadata map[string]string) error {
	var latest string
	err := tx.QueryRow(ctx, `SELECT status FROM driver_status_logs WHERE driver_id = $1 ORDER BY changed_at DESC LIMIT 1`, driverID).Scan(&latest)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("store: read latest driver status: %w", err)
	}
	if latest == status {
		return nil
	}

	meta, err := marshalJSON(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal driver status metadata: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO driver_status_logs (id, driver_id, status, changed_at, metadata)
		VALUES ($1,$2,$3,$4,$5)`, id, driverID, status, at, meta); err != nil {
		return fmt.Errorf("store: insert driver status log: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE drivers SET latest_status = $2, updated_at = $3 WHERE id = $1`,
		driverID, status, at); err != nil {
		return fmt.Errorf("store: update driver latest status: %w", err)
	}
	return nil
}

// SetDriverLocation persists the driver's coordinates and mirrors them
// into the Redis geo index so the Assignment Engine's candidate search
// (redis.IGeoLocationManager.FindNearbyDrivers) sees the update immediately.
func (s *Store) SetDriverLocation(ctx context.Context, driverID string, loc domain.Coordinates, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE drivers SET current_location = $2, updated_at = $3 WHERE id = $1`,
		driverID, encodeWKBPoint(loc), at)
	if err != nil {
		return fmt.Errorf("store: set driver location: %w", err)
	}
	if s.geo != nil {
		if err := s.geo.UpdateDriverLocation(ctx, driverID, loc.Lat, loc.Lon); err != nil {
			return fmt.Errorf("store: mirror driver location to geo index: %w", err)
		}
	}
	return nil
}

// Heartbeat records a liveness ping in the Redis key constants.go names
// (RedisKeyDriverHeartbeat), TTL'd so a driver who stops heartbeating
// silently ages out of "alive" reads without an explicit offline event.
func (s *Store) Heartbeat(ctx context.Context, driverID string, at time.Time) error {
	return s.cache.Set(ctx, common.RedisKeyDriverHeartbeat+driverID, at.Unix(), 2*time.Minute)
}

// DriverIDsInPartition returns one page of every driver id, ordered by id;
// workerID and totalWorkers are not applied here. The partition hash
// (FNV-32a, availability.OwnsDriver) has no direct SQL equivalent worth
// maintaining in two places, so the caller filters each page in Go.
func (s *Store) DriverIDsInPartition(ctx context.Context, workerID, totalWorkers, batchSize, offset int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM drivers ORDER BY id LIMIT $1 OFFSET $2`, batchSize, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list drivers for partition scan: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan driver id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestStatus returns the most recent status_log entry's status for
// driverID, or "" if the driver has never been logged.
func (s *Store) LatestStatus(ctx context.Context, driverID string) (string, error) {
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT status FROM driver_status_logs WHERE driver_id = $1 ORDER BY changed_at DESC LIMIT 1`, driverID).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: read latest driver status: %w", err)
	}
	return status, nil
}

// AppendStatusLog is availability.DriverStore's write path for the
// schedule synchronizer's ACTIVE/INACTIVE flips.
func (s *Store) AppendStatusLog(ctx context.Context, driverID, status, reason string) error {
	return s.withTx(ctx, "AppendStatusLog", func(ctx context.Context, tx pgx.Tx) error {
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, status, time.Now().UTC(), map[string]string{"reason": reason})
	})
}

// InvalidateToken implements push.TokenInvalidator: clears push_token once
// the gateway reports it dead.
func (s *Store) InvalidateToken(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `UPDATE drivers SET push_token = NULL, updated_at = $2 WHERE push_token = $1`,
		token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: invalidate push token: %w", err)
	}
	return nil
}
