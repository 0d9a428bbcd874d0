package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
)

type fakeStore struct {
	exceptions map[string]*domain.AvailabilityException
	rules      map[int][]domain.AvailabilityRule
	err        error
}

func (f *fakeStore) ExceptionForDate(ctx context.Context, driverID, date string) (*domain.AvailabilityException, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exceptions[date], nil
}

func (f *fakeStore) ActiveRulesForDay(ctx context.Context, driverID string, dayOfWeek int) ([]domain.AvailabilityRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rules[dayOfWeek], nil
}

func TestIsAvailableBySchedule_ExceptionWinsOverRule(t *testing.T) {
	// 2026-02-02 is a Monday; rule covers 09:00-17:00, exception marks
	// the whole day unavailable.
	store := &fakeStore{
		exceptions: map[string]*domain.AvailabilityException{
			"2026-02-02": {IsUnavailableAllDay: true},
		},
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	c := NewChecker(store)
	instant := time.Date(2026, 2, 2, 14, 0, 0, 0, time.UTC)
	require.False(t, c.IsAvailableBySchedule(context.Background(), "d1", instant))
}

func TestIsAvailableBySchedule_RuleMatch(t *testing.T) {
	store := &fakeStore{
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	c := NewChecker(store)
	instant := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	require.True(t, c.IsAvailableBySchedule(context.Background(), "d1", instant))
}

func TestIsAvailableBySchedule_NoMatchingRule(t *testing.T) {
	store := &fakeStore{}
	c := NewChecker(store)
	instant := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	require.False(t, c.IsAvailableBySchedule(context.Background(), "d1", instant))
}

func TestIsAvailableBySchedule_ErrorDefaultsFalse(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	c := NewChecker(store)
	require.False(t, c.IsAvailableBySchedule(context.Background(), "d1", time.Now()))
}

func TestIsAvailableBySchedule_PartialExceptionWindow(t *testing.T) {
	store := &fakeStore{
		exceptions: map[string]*domain.AvailabilityException{
			"2026-02-02": {
				UnavailableStartTime: strPtr("12:00:00"),
				UnavailableEndTime:   strPtr("13:00:00"),
			},
		},
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	c := NewChecker(store)
	during := time.Date(2026, 2, 2, 12, 30, 0, 0, time.UTC)
	after := time.Date(2026, 2, 2, 14, 0, 0, 0, time.UTC)
	require.False(t, c.IsAvailableBySchedule(context.Background(), "d1", during))
	require.True(t, c.IsAvailableBySchedule(context.Background(), "d1", after))
}

func strPtr(s string) *string { return &s }
