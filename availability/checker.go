// Package availability implements the AvailabilityChecker and the
// partitioned Availability Synchronizer.
package availability

import (
	"context"
	"time"

	"github.com/motocabz/dispatch-core/domain"
)

// ScheduleStore is the minimal read surface the checker needs over
// AvailabilityRule/AvailabilityException; the concrete
// implementation lives in package store.
type ScheduleStore interface {
	ExceptionForDate(ctx context.Context, driverID, date string) (*domain.AvailabilityException, error)
	ActiveRulesForDay(ctx context.Context, driverID string, dayOfWeek int) ([]domain.AvailabilityRule, error)
}

// Checker implements isAvailableBySchedule.
type Checker struct {
	store ScheduleStore
}

func NewChecker(store ScheduleStore) *Checker {
	return &Checker{store: store}
}

// IsAvailableBySchedule reports whether driverID is on-schedule at
// instant: exceptions win over rules for their date, then any active rule
// covering the time grants availability. On any error it returns false,
// the safe default.
func (c *Checker) IsAvailableBySchedule(ctx context.Context, driverID string, instant time.Time) bool {
	utc := instant.UTC()
	date := utc.Format("2006-01-02")
	clock := utc.Format("15:04:05")
	dayOfWeek := int(utc.Weekday()) // time.Sunday == 0

	exception, err := c.store.ExceptionForDate(ctx, driverID, date)
	if err != nil {
		return false
	}
	if exception != nil {
		if exception.IsUnavailableAllDay {
			return false
		}
		if exception.UnavailableStartTime != nil && exception.UnavailableEndTime != nil {
			if withinWindow(clock, *exception.UnavailableStartTime, *exception.UnavailableEndTime) {
				return false
			}
		}
	}

	rules, err := c.store.ActiveRulesForDay(ctx, driverID, dayOfWeek)
	if err != nil {
		return false
	}
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		if withinWindow(clock, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}

// withinWindow reports start <= t < end, comparing HH:MM:SS strings
// lexicographically (safe since they share fixed width and zero-padding).
func withinWindow(t, start, end string) bool {
	return t >= start && t < end
}
