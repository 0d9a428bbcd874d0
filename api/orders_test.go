package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/mission"
)

type fakeOrderStore struct {
	created      *domain.Order
	order        *domain.Order
	accepted     bool
	refused      bool
}

func (s *fakeOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.ID = "o1"
	s.created = order
	return nil
}
func (s *fakeOrderStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.order, nil
}
func (s *fakeOrderStore) AcceptOffer(ctx context.Context, orderID, driverID string, now time.Time) error {
	s.accepted = true
	return nil
}
func (s *fakeOrderStore) RefuseOffer(ctx context.Context, orderID, driverID string) error {
	s.refused = true
	return nil
}

type fakeRouting struct{}

func (fakeRouting) Geocode(ctx context.Context, text string) (*domain.GeocodeResult, error) {
	return nil, nil
}
func (fakeRouting) Trip(ctx context.Context, waypoints []domain.Coordinates, costing string) (*domain.TripResult, error) {
	return nil, nil
}
func (fakeRouting) DirectRoute(ctx context.Context, start, end domain.Coordinates, costing string) (*domain.DirectRouteResult, error) {
	return &domain.DirectRouteResult{DurationS: 600, DistanceM: 5000}, nil
}

type noopMissionStore struct{ order *domain.Order }

func (s *noopMissionStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.order, nil
}
func (s *noopMissionStore) TransitionWaypoint(ctx context.Context, orderID string, sequence int, mutate func(*domain.WaypointSummaryItem) error) error {
	for i := range s.order.WaypointsSummary {
		if s.order.WaypointsSummary[i].Sequence == sequence {
			return mutate(&s.order.WaypointsSummary[i])
		}
	}
	return domain.ErrNotFoundf("waypoint", "sequence")
}
func (s *noopMissionStore) AppendOrderStatusLog(ctx context.Context, orderID, status string, loc *domain.Coordinates) error {
	return nil
}
func (s *noopMissionStore) FinalizeMission(ctx context.Context, orderID, missionStatus string, finalRemuneration int64, failureReasonCode *string) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Append(ctx context.Context, ev interface{ MarshalJSON() ([]byte, error) }) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T, orderStore OrderStore, missionOrder *domain.Order) (*gin.Engine, *[]string) {
	t.Helper()
	published := []string{}
	publish := func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error {
		published = append(published, eventType)
		return nil
	}
	sm := mission.NewStateMachine(&noopMissionStore{order: missionOrder}, missionPublisherStub{}, mission.CryptoRng{}, domain.SystemClock{})
	router := NewRouter(orderStore, fakeRouting{}, sm, publish)
	g := gin.New()
	router.Register(g)
	return g, &published
}

type missionPublisherStub struct{}

func (missionPublisherStub) Append(ctx context.Context, ev events.BaseEvent) (string, error) { return "", nil }

func TestCreateOrder_PricesAndPublishes(t *testing.T) {
	store := &fakeOrderStore{}
	g, published := newTestRouter(t, store, nil)

	body := bytes.NewBufferString(`{"client_id":"c1","pickup_address_id":"a1","delivery_address_id":"a2","pickup_coordinates":{"lat":9.0,"lon":38.0},"delivery_coordinates":{"lat":9.1,"lon":38.1}}`)
	req := httptest.NewRequest(http.MethodPost, "/orders", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusCreated, rw.Code)
	require.NotNil(t, store.created)
	require.Greater(t, store.created.Remuneration, int64(0))
	require.Contains(t, *published, "NEW_ORDER_READY_FOR_ASSIGNMENT")
}

func TestAcceptOffer_Publishes(t *testing.T) {
	store := &fakeOrderStore{}
	g, published := newTestRouter(t, store, nil)

	body := bytes.NewBufferString(`{"driver_id":"d1"}`)
	req := httptest.NewRequest(http.MethodPost, "/orders/o1/accept", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.True(t, store.accepted)
	require.Contains(t, *published, "OFFER_ACCEPTED_BY_DRIVER")
}

func TestWaypointStatus_UnknownActionIsBadRequest(t *testing.T) {
	order := &domain.Order{ID: "o1", DriverID: strPtr("d1"), WaypointsSummary: []domain.WaypointSummaryItem{
		{Sequence: 0, Type: "pickup", Status: "pending"},
	}}
	store := &fakeOrderStore{}
	g, _ := newTestRouter(t, store, order)

	body := bytes.NewBufferString(`{"action":"bogus","driver_id":"d1"}`)
	req := httptest.NewRequest(http.MethodPatch, "/orders/o1/waypoints/0/status", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}

func strPtr(s string) *string { return &s }
