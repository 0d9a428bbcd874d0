package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/motocabz/dispatch-core/domain"
)

// ExceptionForDate loads the single-date override for driverID, or nil if
// none exists.
func (s *Store) ExceptionForDate(ctx context.Context, driverID, date string) (*domain.AvailabilityException, error) {
	var e domain.AvailabilityException
	err := s.pool.QueryRow(ctx, `
		SELECT id, driver_id, date, is_unavailable_all_day, unavailable_start_time, unavailable_end_time, reason
		FROM availability_exceptions WHERE driver_id = $1 AND date = $2`, driverID, date).Scan(
		&e.ID, &e.DriverID, &e.Date, &e.IsUnavailableAllDay, &e.UnavailableStartTime, &e.UnavailableEndTime, &e.Reason,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load availability exception: %w", err)
	}
	return &e, nil
}

// ActiveRulesForDay loads every recurring rule for driverID on dayOfWeek,
// including inactive ones — the caller filters on IsActive so a disabled
// rule never silently vanishes from the audit trail.
func (s *Store) ActiveRulesForDay(ctx context.Context, driverID string, dayOfWeek int) ([]domain.AvailabilityRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, driver_id, day_of_week, start_time, end_time, is_active
		FROM availability_rules WHERE driver_id = $1 AND day_of_week = $2`, driverID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("store: load availability rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AvailabilityRule
	for rows.Next() {
		var r domain.AvailabilityRule
		if err := rows.Scan(&r.ID, &r.DriverID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsActive); err != nil {
			return nil, fmt.Errorf("store: scan availability rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
