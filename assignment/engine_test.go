package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/availability"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
)

type fakeEventLog struct {
	published []events.EventType
	acked     []string
}

func (f *fakeEventLog) EnsureGroup(ctx context.Context, group string) error { return nil }
func (f *fakeEventLog) ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error) {
	return nil, nil
}
func (f *fakeEventLog) Ack(ctx context.Context, group string, ids ...string) error {
	f.acked = append(f.acked, ids...)
	return nil
}
func (f *fakeEventLog) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error) {
	return nil, cursor, nil
}
func (f *fakeEventLog) Append(ctx context.Context, ev events.BaseEvent) (string, error) {
	f.published = append(f.published, ev.Type)
	return "1-1", nil
}

type fakeStore struct {
	orders       map[string]*domain.Order
	drivers      map[string]*domain.Driver
	blacklist    map[string]bool
	offersSet    []string
	cancelled    []string
	attemptIncrs int
	finalized    []string
	getOrderErr  error
	finalizeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[string]*domain.Order),
		drivers:   make(map[string]*domain.Driver),
		blacklist: make(map[string]bool),
	}
}

func (s *fakeStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if s.getOrderErr != nil {
		return nil, s.getOrderErr
	}
	return s.orders[orderID], nil
}
func (s *fakeStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	return s.drivers[driverID], nil
}
func (s *fakeStore) CancelOrder(ctx context.Context, orderID, reasonCode string) error {
	s.cancelled = append(s.cancelled, orderID)
	reason := reasonCode
	s.orders[orderID].CancellationReasonCode = &reason
	return nil
}
func (s *fakeStore) IsBlacklisted(ctx context.Context, orderID, driverID string) (bool, error) {
	return s.blacklist[orderID+"|"+driverID], nil
}
func (s *fakeStore) Blacklist(ctx context.Context, orderID, driverID string) error {
	s.blacklist[orderID+"|"+driverID] = true
	return nil
}
func (s *fakeStore) SetOffer(ctx context.Context, orderID, driverID string, offerExpiresAt time.Time) error {
	s.offersSet = append(s.offersSet, orderID+"|"+driverID)
	s.orders[orderID].OfferedDriverID = &driverID
	s.orders[orderID].OfferExpiresAt = &offerExpiresAt
	return nil
}
func (s *fakeStore) IncrementAttempt(ctx context.Context, orderID string) error {
	s.attemptIncrs++
	s.orders[orderID].AssignmentAttemptCount++
	return nil
}
func (s *fakeStore) FinalizeAccept(ctx context.Context, orderID, driverID string, now time.Time) error {
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	s.finalized = append(s.finalized, orderID+"|"+driverID)
	return nil
}
func (s *fakeStore) FinalizeManualAssign(ctx context.Context, orderID, driverID string) error {
	s.finalized = append(s.finalized, orderID+"|"+driverID)
	return nil
}
func (s *fakeStore) ExpireOffers(ctx context.Context, now time.Time) ([]ExpiredOffer, error) {
	return nil, nil
}

type fakeFinder struct {
	ids []string
}

func (f *fakeFinder) DriversWithinRadius(ctx context.Context, pickup domain.Coordinates, radiusKM float64) ([]string, error) {
	return f.ids, nil
}

type alwaysAvailableStore struct{}

func (alwaysAvailableStore) ExceptionForDate(ctx context.Context, driverID, date string) (*domain.AvailabilityException, error) {
	return nil, nil
}
func (alwaysAvailableStore) ActiveRulesForDay(ctx context.Context, driverID string, dayOfWeek int) ([]domain.AvailabilityRule, error) {
	return []domain.AvailabilityRule{{DayOfWeek: dayOfWeek, StartTime: "00:00:00", EndTime: "23:59:59", IsActive: true}}, nil
}

func testOrder(id string) *domain.Order {
	return &domain.Order{
		ID:           id,
		Remuneration: 1000,
		WaypointsSummary: []domain.WaypointSummaryItem{
			{Sequence: 0, Type: "pickup", Coordinates: domain.Coordinates{Lat: 9.0, Lon: 38.0}, Status: "pending"},
		},
	}
}

func TestAttempt_SelectsNearestEligibleDriver(t *testing.T) {
	store := newFakeStore()
	store.orders["o1"] = testOrder("o1")
	store.drivers["d1"] = &domain.Driver{ID: "d1", IsValidDriver: true, LatestStatus: "ACTIVE", AverageRating: 4.0, CurrentLocation: &domain.Coordinates{Lat: 9.01, Lon: 38.01}}
	store.drivers["d2"] = &domain.Driver{ID: "d2", IsValidDriver: true, LatestStatus: "ACTIVE", AverageRating: 5.0, CurrentLocation: &domain.Coordinates{Lat: 9.0, Lon: 38.0}}

	finder := &fakeFinder{ids: []string{"d1", "d2"}}
	checker := availability.NewChecker(alwaysAvailableStore{})

	eventLog := &fakeEventLog{}
	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		log:      eventLog,
		store:    store,
		finder:   finder,
		avail:    checker,
		clock:    domain.SystemClock{},
		consumer: "test",
	}

	eng.attempt(context.Background(), "o1")
	require.Len(t, store.offersSet, 1)
	require.Equal(t, "o1|d2", store.offersSet[0])
	require.Contains(t, eventLog.published, events.NewOfferProposed)
}

func TestAttempt_NoCandidateIncrementsAttempt(t *testing.T) {
	store := newFakeStore()
	store.orders["o1"] = testOrder("o1")
	finder := &fakeFinder{ids: nil}
	checker := availability.NewChecker(alwaysAvailableStore{})

	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		store:    store,
		finder:   finder,
		avail:    checker,
		clock:    domain.SystemClock{},
		consumer: "test",
	}
	eng.attempt(context.Background(), "o1")
	require.Equal(t, 1, store.attemptIncrs)
	require.Empty(t, store.offersSet)
}

func TestAttempt_CancelsWhenMaxAttemptsReached(t *testing.T) {
	store := newFakeStore()
	order := testOrder("o1")
	order.AssignmentAttemptCount = 3
	store.orders["o1"] = order
	finder := &fakeFinder{ids: nil}
	checker := availability.NewChecker(alwaysAvailableStore{})

	eventLog := &fakeEventLog{}
	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 3, OfferDuration: time.Minute},
		log:      eventLog,
		store:    store,
		finder:   finder,
		avail:    checker,
		clock:    domain.SystemClock{},
		consumer: "test",
	}
	eng.attempt(context.Background(), "o1")
	require.Contains(t, store.cancelled, "o1")
	require.Contains(t, eventLog.published, events.CancelledBySystem)
}

func handleEntry(eventType events.EventType, orderID, driverID string) eventlog.Entry {
	return eventlog.Entry{ID: "5-1", Event: events.BaseEvent{Type: eventType, OrderID: orderID, DriverID: driverID}}
}

func TestHandle_AcksAfterSuccessfulAttempt(t *testing.T) {
	store := newFakeStore()
	store.orders["o1"] = testOrder("o1")
	store.drivers["d1"] = &domain.Driver{ID: "d1", IsValidDriver: true, LatestStatus: "ACTIVE", AverageRating: 4.0, CurrentLocation: &domain.Coordinates{Lat: 9.01, Lon: 38.01}}
	eventLog := &fakeEventLog{}
	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		log:      eventLog,
		store:    store,
		finder:   &fakeFinder{ids: []string{"d1"}},
		avail:    availability.NewChecker(alwaysAvailableStore{}),
		clock:    domain.SystemClock{},
		consumer: "test",
	}

	eng.handle(context.Background(), handleEntry(events.NewOrderReadyForAssignment, "o1", ""))
	require.Equal(t, []string{"5-1"}, eventLog.acked)
}

func TestHandle_TransientFailureLeavesUnacked(t *testing.T) {
	store := newFakeStore()
	store.getOrderErr = context.DeadlineExceeded
	eventLog := &fakeEventLog{}
	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		log:      eventLog,
		store:    store,
		finder:   &fakeFinder{},
		avail:    availability.NewChecker(alwaysAvailableStore{}),
		clock:    domain.SystemClock{},
		consumer: "test",
	}

	eng.handle(context.Background(), handleEntry(events.NewOrderReadyForAssignment, "o1", ""))
	require.Empty(t, eventLog.acked, "a transient failure must stay pending for redelivery")
}

func TestHandle_StaleAcceptConflictIsAcked(t *testing.T) {
	store := newFakeStore()
	store.finalizeErr = domain.ErrConflictf("offer for order o1 to driver d1 is no longer valid")
	eventLog := &fakeEventLog{}
	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		log:      eventLog,
		store:    store,
		finder:   &fakeFinder{},
		avail:    availability.NewChecker(alwaysAvailableStore{}),
		clock:    domain.SystemClock{},
		consumer: "test",
	}

	eng.handle(context.Background(), handleEntry(events.OfferAcceptedByDriver, "o1", "d1"))
	require.Equal(t, []string{"5-1"}, eventLog.acked, "a stale offer is permanent; redelivery cannot change it")
	require.Empty(t, store.finalized)
}

type fakeRetryScheduler struct {
	scheduled map[string]time.Time
}

func (f *fakeRetryScheduler) ScheduleRetry(ctx context.Context, orderID string, due time.Time) error {
	if f.scheduled == nil {
		f.scheduled = map[string]time.Time{}
	}
	f.scheduled[orderID] = due
	return nil
}

func TestAttempt_NoCandidateSchedulesRetry(t *testing.T) {
	store := newFakeStore()
	store.orders["o1"] = testOrder("o1")
	finder := &fakeFinder{ids: nil}
	checker := availability.NewChecker(alwaysAvailableStore{})
	retry := &fakeRetryScheduler{}

	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute, RetryBackoff: 30 * time.Second},
		store:    store,
		finder:   finder,
		avail:    checker,
		retry:    retry,
		clock:    domain.SystemClock{},
		consumer: "test",
	}
	eng.attempt(context.Background(), "o1")
	require.Contains(t, retry.scheduled, "o1")
	require.WithinDuration(t, time.Now().Add(30*time.Second), retry.scheduled["o1"], 5*time.Second)
}

func TestAttempt_SkipsAlreadyAssignedOrder(t *testing.T) {
	store := newFakeStore()
	order := testOrder("o1")
	driverID := "d1"
	order.DriverID = &driverID
	order.WaypointsSummary[0].Status = "completed"
	store.orders["o1"] = order
	finder := &fakeFinder{ids: []string{"d2"}}
	checker := availability.NewChecker(alwaysAvailableStore{})

	eng := &Engine{
		cfg:      Config{SearchRadiusKM: 10, MaxAttempts: 5, OfferDuration: time.Minute},
		store:    store,
		finder:   finder,
		avail:    checker,
		clock:    domain.SystemClock{},
		consumer: "test",
	}
	eng.attempt(context.Background(), "o1")
	require.Empty(t, store.offersSet)
}
