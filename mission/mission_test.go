package mission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
)

type fakeStore struct {
	order         *domain.Order
	statusLogs    []string
	finalStatus   string
	finalRemun    int64
	finalReason   *string
}

func (s *fakeStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	cp := *s.order
	cp.WaypointsSummary = append([]domain.WaypointSummaryItem(nil), s.order.WaypointsSummary...)
	return &cp, nil
}

func (s *fakeStore) TransitionWaypoint(ctx context.Context, orderID string, sequence int, mutate func(*domain.WaypointSummaryItem) error) error {
	for i := range s.order.WaypointsSummary {
		if s.order.WaypointsSummary[i].Sequence == sequence {
			return mutate(&s.order.WaypointsSummary[i])
		}
	}
	return domain.ErrNotFoundf("waypoint", "sequence")
}

func (s *fakeStore) AppendOrderStatusLog(ctx context.Context, orderID, status string, loc *domain.Coordinates) error {
	s.statusLogs = append(s.statusLogs, status)
	return nil
}

func (s *fakeStore) FinalizeMission(ctx context.Context, orderID, missionStatus string, finalRemuneration int64, failureReasonCode *string) error {
	s.finalStatus = missionStatus
	s.finalRemun = finalRemuneration
	s.finalReason = failureReasonCode
	return nil
}

type fakePublisher struct {
	published []events.EventType
}

func (f *fakePublisher) Append(ctx context.Context, ev events.BaseEvent) (string, error) {
	f.published = append(f.published, ev.Type)
	return "1-1", nil
}

func twoWaypointOrder() *domain.Order {
	driverID := "driver-1"
	return &domain.Order{
		ID:           "order-1",
		DriverID:     &driverID,
		Remuneration: 1000,
		WaypointsSummary: []domain.WaypointSummaryItem{
			{Sequence: 0, Type: "pickup", Status: "pending", ConfirmationCode: "111111"},
			{Sequence: 1, Type: "delivery", Status: "pending", ConfirmationCode: "222222"},
		},
	}
}

func TestReportArrival_RequiresAssignedDriver(t *testing.T) {
	store := &fakeStore{order: twoWaypointOrder()}
	sm := &StateMachine{store: store, clock: domain.SystemClock{}}
	err := sm.ReportArrival(context.Background(), "order-1", 0, "someone-else")
	require.Error(t, err)
}

func TestReportArrival_EmitsAtPickupLog(t *testing.T) {
	store := &fakeStore{order: twoWaypointOrder()}
	sm := &StateMachine{store: store, clock: domain.SystemClock{}}
	require.NoError(t, sm.ReportArrival(context.Background(), "order-1", 0, "driver-1"))
	require.Equal(t, "arrived", store.order.WaypointsSummary[0].Status)
	require.Contains(t, store.statusLogs, "AT_PICKUP")
}

func TestReportArrival_RejectsBeforePredecessorTerminal(t *testing.T) {
	store := &fakeStore{order: twoWaypointOrder()}
	sm := &StateMachine{store: store, clock: domain.SystemClock{}}
	err := sm.ReportArrival(context.Background(), "order-1", 1, "driver-1")
	require.Error(t, err)
}

func TestValidateConfirmationCode_RejectsMismatch(t *testing.T) {
	require.False(t, ValidateConfirmationCode("123456", "654321"))
	require.True(t, ValidateConfirmationCode("123456", "123456"))
	require.False(t, ValidateConfirmationCode("123456", "12345"))
}

func TestCryptoRng_Digits_ProducesFixedLengthDecimal(t *testing.T) {
	code, err := CryptoRng{}.Digits(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		require.True(t, c >= '0' && c <= '9')
	}
}

func TestCompleteAndFail_ProrateAndTerminalStatus(t *testing.T) {
	order := twoWaypointOrder()
	order.WaypointsSummary[0].Status = "processing"
	order.WaypointsSummary[1].Status = "failed"
	order.WaypointsSummary[1].MessageIssue = strPtr("recipient unreachable")
	store := &fakeStore{order: order}
	pub := &fakePublisher{}
	sm := &StateMachine{store: store, log: pub, clock: domain.SystemClock{}}

	require.NoError(t, sm.Complete(context.Background(), "order-1", 0, "driver-1", CompleteParams{ConfirmationCode: "111111"}))
	require.Equal(t, "PARTIALLY_COMPLETED", store.finalStatus)
	require.Equal(t, int64(500), store.finalRemun) // 1000 * 1/2
	require.Contains(t, pub.published, events.Completed)
}

func strPtr(s string) *string { return &s }
