package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
)

type staticClock struct{ now time.Time }

func (c staticClock) Now() time.Time { return c.now }

type fakeSyncCache struct {
	values map[string]string
	sets   map[string]string
}

func (f *fakeSyncCache) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeSyncCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}
	f.sets[key] = value.(string)
	return nil
}

type fakeNotifier struct {
	flips []string
}

func (f *fakeNotifier) NotifyStatusFlip(ctx context.Context, driverID, newStatus string) error {
	f.flips = append(f.flips, driverID+":"+newStatus)
	return nil
}

func newTestSynchronizer(drivers *fakeHeartbeatDriverStore, schedule ScheduleStore, cache Cache, notifier Notifier, now time.Time) *Synchronizer {
	cfg := Config{WorkerID: 0, TotalWorkers: 1, BatchSize: 100, CacheTTL: 5 * time.Minute, Interval: time.Minute}
	return NewSynchronizer(cfg, drivers, NewChecker(schedule), cache, notifier, staticClock{now: now})
}

func TestSynchronizer_FlipsToInactiveOnAllDayException(t *testing.T) {
	// 2026-02-02 is a Monday: the rule says 09:00-17:00, the exception
	// blacks out the whole day, so at 14:00 the driver must go INACTIVE.
	drivers := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "ACTIVE"},
	}
	schedule := &fakeStore{
		exceptions: map[string]*domain.AvailabilityException{
			"2026-02-02": {IsUnavailableAllDay: true},
		},
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	notifier := &fakeNotifier{}
	now := time.Date(2026, 2, 2, 14, 0, 0, 0, time.UTC)

	s := newTestSynchronizer(drivers, schedule, &fakeSyncCache{}, notifier, now)
	s.sweep(context.Background())

	require.Equal(t, []string{"d1:INACTIVE:schedule_sync"}, drivers.logged)
	require.Equal(t, []string{"d1:INACTIVE"}, notifier.flips)
}

func TestSynchronizer_FlipsToActiveWithinRuleWindow(t *testing.T) {
	drivers := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "INACTIVE"},
	}
	schedule := &fakeStore{
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	s := newTestSynchronizer(drivers, schedule, &fakeSyncCache{}, &fakeNotifier{}, now)
	s.sweep(context.Background())

	require.Equal(t, []string{"d1:ACTIVE:schedule_sync"}, drivers.logged)
}

func TestSynchronizer_SkipsOperationallyManagedStatuses(t *testing.T) {
	drivers := &fakeHeartbeatDriverStore{
		ids: []string{"d1", "d2", "d3", "d4"},
		statuses: map[string]string{
			"d1": "IN_WORK",
			"d2": "OFFERING",
			"d3": "ON_BREAK",
			"d4": "PENDING",
		},
	}
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	s := newTestSynchronizer(drivers, &fakeStore{}, &fakeSyncCache{}, &fakeNotifier{}, now)
	s.sweep(context.Background())

	require.Empty(t, drivers.logged)
}

func TestSynchronizer_NoWriteWhenStatusUnchanged(t *testing.T) {
	drivers := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "INACTIVE"},
	}
	notifier := &fakeNotifier{}
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	// No rules at all: the driver stays INACTIVE, so the sweep must not
	// append a duplicate status entry or fire a notification.
	s := newTestSynchronizer(drivers, &fakeStore{}, &fakeSyncCache{}, notifier, now)
	s.sweep(context.Background())

	require.Empty(t, drivers.logged)
	require.Empty(t, notifier.flips)
}

func TestSynchronizer_CacheHitSkipsChecker(t *testing.T) {
	drivers := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "INACTIVE"},
	}
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	cache := &fakeSyncCache{values: map[string]string{
		cacheKey("d1", now): "1",
	}}
	// Schedule store errors on every call: a cache hit must mean it is
	// never consulted.
	schedule := &fakeStore{err: context.DeadlineExceeded}

	s := newTestSynchronizer(drivers, schedule, cache, &fakeNotifier{}, now)
	s.sweep(context.Background())

	require.Equal(t, []string{"d1:ACTIVE:schedule_sync"}, drivers.logged)
}

func TestSynchronizer_CacheMissStoresResult(t *testing.T) {
	drivers := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "INACTIVE"},
	}
	schedule := &fakeStore{
		rules: map[int][]domain.AvailabilityRule{
			1: {{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "17:00:00", IsActive: true}},
		},
	}
	cache := &fakeSyncCache{}
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	s := newTestSynchronizer(drivers, schedule, cache, &fakeNotifier{}, now)
	s.sweep(context.Background())

	require.Equal(t, "1", cache.sets[cacheKey("d1", now)])
}

func TestOwnsDriver_PartitionsAreDisjointAndTotal(t *testing.T) {
	const workers = 4
	ids := []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9", "d10"}
	for _, id := range ids {
		owners := 0
		for w := 0; w < workers; w++ {
			if OwnsDriver(id, w, workers) {
				owners++
			}
		}
		require.Equal(t, 1, owners, "driver %s must belong to exactly one partition", id)
	}
}
