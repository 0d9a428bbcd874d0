package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/assignment"
	"github.com/motocabz/dispatch-core/domain"
)

// CreateOrder inserts a new order row, minting its id and a fresh
// confirmation code per waypoint, in one transaction with the order's first status log entry.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.ID = s.idgen()
	if order.Currency == "" {
		order.Currency = common.DefaultCurrency
	}
	if order.CalculationEngine == "" {
		order.CalculationEngine = "internal"
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	if order.DeliveryDate.IsZero() {
		order.DeliveryDate = now
	}

	for i := range order.WaypointsSummary {
		code, err := s.rng.Digits(6)
		if err != nil {
			return fmt.Errorf("store: generate confirmation code: %w", err)
		}
		order.WaypointsSummary[i].ConfirmationCode = code
		if order.WaypointsSummary[i].Status == "" {
			order.WaypointsSummary[i].Status = "pending"
		}
	}

	waypoints, err := marshalJSON(order.WaypointsSummary)
	if err != nil {
		return fmt.Errorf("store: marshal waypoints: %w", err)
	}
	packages, err := marshalJSON(order.Packages)
	if err != nil {
		return fmt.Errorf("store: marshal packages: %w", err)
	}

	return s.withTx(ctx, "CreateOrder", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, client_id, priority, remuneration, client_fee, currency,
				pickup_address_id, delivery_address_id, note,
				assignment_attempt_count, calculation_engine,
				delivery_date, delivery_date_estimation, waypoints_summary,
				packages, company_id, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			order.ID, order.ClientID, order.Priority, order.Remuneration, order.ClientFee, order.Currency,
			order.PickupAddressID, order.DeliveryAddressID, order.Note,
			order.AssignmentAttemptCount, order.CalculationEngine,
			order.DeliveryDate, order.DeliveryDateEstimation, waypoints,
			packages, order.CompanyID, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("store: insert order: %w", err)
		}
		return insertOrderStatusLog(ctx, tx, s.idgen(), order.ID, "PENDING", now, nil, nil)
	})
}

// GetOrder loads a single order by id, or nil if it doesn't exist.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, orderColumns+` FROM orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

// ActiveOrderForDriver returns the id of driverID's most recently touched
// non-terminated order, or "" if none. Used by the driver location-stream
// handler to know which order's real-time subscribers should receive a
// given location ping.
func (s *Store) ActiveOrderForDriver(ctx context.Context, driverID string) (string, error) {
	var orderID string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM orders
		WHERE driver_id = $1 AND cancellation_reason_code IS NULL AND failure_reason_code IS NULL
		ORDER BY updated_at DESC LIMIT 1`, driverID).Scan(&orderID)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: active order for driver: %w", err)
	}
	return orderID, nil
}

const orderColumns = `SELECT
	id, client_id, driver_id, priority, remuneration, client_fee, currency,
	pickup_address_id, delivery_address_id, note, assignment_attempt_count,
	calculation_engine, offered_driver_id, offer_expires_at, delivery_date,
	delivery_date_estimation, cancellation_reason_code, failure_reason_code,
	waypoints_summary, packages, company_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var waypoints, packages []byte
	err := row.Scan(
		&o.ID, &o.ClientID, &o.DriverID, &o.Priority, &o.Remuneration, &o.ClientFee, &o.Currency,
		&o.PickupAddressID, &o.DeliveryAddressID, &o.Note, &o.AssignmentAttemptCount,
		&o.CalculationEngine, &o.OfferedDriverID, &o.OfferExpiresAt, &o.DeliveryDate,
		&o.DeliveryDateEstimation, &o.CancellationReasonCode, &o.FailureReasonCode,
		&waypoints, &packages, &o.CompanyID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan order: %w", err)
	}
	if err := unmarshalJSON(waypoints, &o.WaypointsSummary); err != nil {
		return nil, fmt.Errorf("store: unmarshal waypoints: %w", err)
	}
	if err := unmarshalJSON(packages, &o.Packages); err != nil {
		return nil, fmt.Errorf("store: unmarshal packages: %w", err)
	}
	return &o, nil
}

// CancelOrder sets cancellation_reason_code and appends a CANCELLED
// status log entry (cancel-on-exhausted-attempts path).
func (s *Store) CancelOrder(ctx context.Context, orderID, reasonCode string) error {
	now := time.Now().UTC()
	return s.withTx(ctx, "CancelOrder", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET cancellation_reason_code = $2, updated_at = $3
			WHERE id = $1 AND cancellation_reason_code IS NULL`,
			orderID, reasonCode, now)
		if err != nil {
			return fmt.Errorf("store: cancel order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil // already cancelled or terminal; idempotent no-op
		}
		return insertOrderStatusLog(ctx, tx, s.idgen(), orderID, "CANCELLED", now, nil, nil)
	})
}

// IsBlacklisted reports whether driverID previously refused/expired on
// orderID. Backed by the Redis set named in constants.go's
// RedisKeyOrderBlacklist, not a relational table — the blacklist is a
// cheap per-order memoization, not an audited entity.
func (s *Store) IsBlacklisted(ctx context.Context, orderID, driverID string) (bool, error) {
	return s.cache.SIsMember(ctx, common.RedisKeyOrderBlacklist+orderID, driverID)
}

// Blacklist records that driverID should not be re-offered orderID.
func (s *Store) Blacklist(ctx context.Context, orderID, driverID string) error {
	return s.cache.SAdd(ctx, common.RedisKeyOrderBlacklist+orderID, driverID)
}

// SetOffer atomically transitions an order into the OFFERED state and logs
// the driver as OFFERING ("Finalize on accept" sibling step).
func (s *Store) SetOffer(ctx context.Context, orderID, driverID string, offerExpiresAt time.Time) error {
	now := time.Now().UTC()
	return s.withTx(ctx, "SetOffer", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET
				offered_driver_id = $2, offer_expires_at = $3,
				assignment_attempt_count = assignment_attempt_count + 1,
				updated_at = $4
			WHERE id = $1 AND driver_id IS NULL AND offered_driver_id IS NULL
				AND cancellation_reason_code IS NULL`,
			orderID, driverID, offerExpiresAt, now)
		if err != nil {
			return fmt.Errorf("store: set offer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConflictf("order %s is no longer open for offers", orderID)
		}
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, "OFFERING", now, nil)
	})
}

// IncrementAttempt bumps assignment_attempt_count without creating an
// offer ("no candidate found" path).
func (s *Store) IncrementAttempt(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orders SET assignment_attempt_count = assignment_attempt_count + 1, updated_at = $2
		WHERE id = $1`, orderID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: increment attempt: %w", err)
	}
	return nil
}

// FinalizeAccept verifies the offer is still live, assigns the driver,
// clears offer fields, and flips the driver to IN_WORK, all in one
// transaction.
func (s *Store) FinalizeAccept(ctx context.Context, orderID, driverID string, now time.Time) error {
	return s.withTx(ctx, "FinalizeAccept", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET
				driver_id = $2, offered_driver_id = NULL, offer_expires_at = NULL,
				updated_at = $4
			WHERE id = $1 AND offered_driver_id = $2 AND offer_expires_at > $3`,
			orderID, driverID, now, now)
		if err != nil {
			return fmt.Errorf("store: finalize accept: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConflictf("offer for order %s to driver %s is no longer valid", orderID, driverID)
		}
		if err := insertOrderStatusLog(ctx, tx, s.idgen(), orderID, "ACCEPTED", now, nil, nil); err != nil {
			return err
		}
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, "IN_WORK", now, nil)
	})
}

// FinalizeManualAssign is the admin-driven equivalent of FinalizeAccept,
// bypassing the offer-validity check (MANUALLY_ASSIGNED).
func (s *Store) FinalizeManualAssign(ctx context.Context, orderID, driverID string) error {
	now := time.Now().UTC()
	return s.withTx(ctx, "FinalizeManualAssign", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET
				driver_id = $2, offered_driver_id = NULL, offer_expires_at = NULL,
				updated_at = $3
			WHERE id = $1 AND cancellation_reason_code IS NULL`,
			orderID, driverID, now)
		if err != nil {
			return fmt.Errorf("store: finalize manual assign: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFoundf("order", orderID)
		}
		if err := insertOrderStatusLog(ctx, tx, s.idgen(), orderID, "ACCEPTED", now, nil, nil); err != nil {
			return err
		}
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, "IN_WORK", now, nil)
	})
}

// ManuallyAssign is AdminStore's entry point, delegating to
// FinalizeManualAssign, the admin counterpart of the FinalizeAccept path
// AcceptOffer drives for a driver-initiated accept.
func (s *Store) ManuallyAssign(ctx context.Context, orderID, driverID string) error {
	return s.FinalizeManualAssign(ctx, orderID, driverID)
}

// AcceptOffer implements api.OrderStore: verifies driverID matches the
// live offer before finalizing.
func (s *Store) AcceptOffer(ctx context.Context, orderID, driverID string, now time.Time) error {
	return s.FinalizeAccept(ctx, orderID, driverID, now)
}

// RefuseOffer clears the offer, restores the driver to ACTIVE, and
// blacklists driverID for this order so the next assignment attempt skips
// it.
func (s *Store) RefuseOffer(ctx context.Context, orderID, driverID string) error {
	now := time.Now().UTC()
	err := s.withTx(ctx, "RefuseOffer", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET offered_driver_id = NULL, offer_expires_at = NULL, updated_at = $3
			WHERE id = $1 AND offered_driver_id = $2`,
			orderID, driverID, now)
		if err != nil {
			return fmt.Errorf("store: refuse offer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil // offer already expired/finalized elsewhere; idempotent no-op
		}
		return insertDriverStatusLog(ctx, tx, s.idgen(), driverID, "ACTIVE", now, nil)
	})
	if err != nil {
		return err
	}
	return s.Blacklist(ctx, orderID, driverID)
}

// ExpireOffers clears offer fields and restores ACTIVE on every order
// whose offer_expires_at has passed, returning the affected pairs for
// event publication (periodic offer-expiration scan).
func (s *Store) ExpireOffers(ctx context.Context, now time.Time) ([]assignment.ExpiredOffer, error) {
	var out []assignment.ExpiredOffer
	err := s.withTx(ctx, "ExpireOffers", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, offered_driver_id FROM orders
			WHERE offer_expires_at IS NOT NULL AND offer_expires_at <= $1
			FOR UPDATE SKIP LOCKED`, now)
		if err != nil {
			return fmt.Errorf("store: select expired offers: %w", err)
		}
		var pairs []assignment.ExpiredOffer
		for rows.Next() {
			var p assignment.ExpiredOffer
			if err := rows.Scan(&p.OrderID, &p.DriverID); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan expired offer: %w", err)
			}
			pairs = append(pairs, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, p := range pairs {
			if _, err := tx.Exec(ctx, `
				UPDATE orders SET offered_driver_id = NULL, offer_expires_at = NULL, updated_at = $2
				WHERE id = $1`, p.OrderID, now); err != nil {
				return fmt.Errorf("store: clear expired offer: %w", err)
			}
			if err := insertDriverStatusLog(ctx, tx, s.idgen(), p.DriverID, "ACTIVE", now, nil); err != nil {
				return err
			}
		}
		out = pairs
		return nil
	})
	return out, err
}

// TransitionWaypoint applies mutate to the waypoint at sequence within a
// transaction serialized on the owning Order row, via SELECT ... FOR UPDATE.
func (s *Store) TransitionWaypoint(ctx context.Context, orderID string, sequence int, mutate func(*domain.WaypointSummaryItem) error) error {
	return s.withTx(ctx, "TransitionWaypoint", func(ctx context.Context, tx pgx.Tx) error {
		var waypointsRaw []byte
		err := tx.QueryRow(ctx, `SELECT waypoints_summary FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&waypointsRaw)
		if err == pgx.ErrNoRows {
			return domain.ErrNotFoundf("order", orderID)
		}
		if err != nil {
			return fmt.Errorf("store: lock order for waypoint transition: %w", err)
		}

		var waypoints []domain.WaypointSummaryItem
		if err := unmarshalJSON(waypointsRaw, &waypoints); err != nil {
			return fmt.Errorf("store: unmarshal waypoints: %w", err)
		}

		found := false
		for i := range waypoints {
			if waypoints[i].Sequence == sequence {
				if err := mutate(&waypoints[i]); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return domain.ErrNotFoundf("waypoint", fmt.Sprintf("%s/%d", orderID, sequence))
		}

		encoded, err := marshalJSON(waypoints)
		if err != nil {
			return fmt.Errorf("store: marshal waypoints: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET waypoints_summary = $2, updated_at = $3 WHERE id = $1`,
			orderID, encoded, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("store: persist waypoint transition: %w", err)
		}
		return nil
	})
}

// AppendOrderStatusLog appends one audit entry without touching the order
// row itself.
func (s *Store) AppendOrderStatusLog(ctx context.Context, orderID, status string, currentLocation *domain.Coordinates) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO order_status_logs (id, order_id, status, changed_at, current_location)
		VALUES ($1,$2,$3,$4,$5)`,
		s.idgen(), orderID, status, time.Now().UTC(), encodeWKBPointPtr(currentLocation))
	if err != nil {
		return fmt.Errorf("store: append order status log: %w", err)
	}
	return nil
}

// FinalizeMission sets the order's terminal fields once every waypoint has
// reached a terminal state ("Mission terminal states").
func (s *Store) FinalizeMission(ctx context.Context, orderID, missionStatus string, finalRemuneration int64, failureReasonCode *string) error {
	now := time.Now().UTC()
	return s.withTx(ctx, "FinalizeMission", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE orders SET remuneration = $2, failure_reason_code = $3, updated_at = $4
			WHERE id = $1`, orderID, finalRemuneration, failureReasonCode, now)
		if err != nil {
			return fmt.Errorf("store: finalize mission: %w", err)
		}
		return insertOrderStatusLog(ctx, tx, s.idgen(), orderID, missionStatus, now, nil, nil)
	})
}

func insertOrderStatusLog(ctx context.Context, tx pgx.Tx, id, orderID, status string, at time.Time, changedByUserID *string, loc *domain.Coordinates) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_logs (id, order_id, status, changed_at, changed_by_user_id, current_location)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, orderID, status, at, changedByUserID, encodeWKBPointPtr(loc))
	if err != nil {
		return fmt.Errorf("store: insert order status log: %w", err)
	}
	return nil
}
