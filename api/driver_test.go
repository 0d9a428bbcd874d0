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
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDriverStore struct {
	statusSet   string
	locationSet domain.Coordinates
	heartbeats  int
}

func (s *fakeDriverStore) SetDriverStatus(ctx context.Context, driverID, status string) error {
	s.statusSet = status
	return nil
}
func (s *fakeDriverStore) SetDriverLocation(ctx context.Context, driverID string, loc domain.Coordinates, at time.Time) error {
	s.locationSet = loc
	return nil
}
func (s *fakeDriverStore) Heartbeat(ctx context.Context, driverID string, at time.Time) error {
	s.heartbeats++
	return nil
}
func (s *fakeDriverStore) ActiveOrderForDriver(ctx context.Context, driverID string) (string, error) {
	return "", nil
}

func TestDriverRouter_SetStatus(t *testing.T) {
	store := &fakeDriverStore{}
	g := gin.New()
	NewDriverRouter(store, nil).Register(g)

	body := bytes.NewBufferString(`{"driver_id":"d1","status":"ACTIVE"}`)
	req := httptest.NewRequest(http.MethodPost, "/driver/status", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "ACTIVE", store.statusSet)
}

func TestDriverRouter_SetLocation(t *testing.T) {
	store := &fakeDriverStore{}
	g := gin.New()
	NewDriverRouter(store, nil).Register(g)

	body := bytes.NewBufferString(`{"driver_id":"d1","location":{"lat":9.0,"lon":38.0}}`)
	req := httptest.NewRequest(http.MethodPost, "/driver/location", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, 9.0, store.locationSet.Lat)
}

func TestDriverRouter_Heartbeat(t *testing.T) {
	store := &fakeDriverStore{}
	g := gin.New()
	NewDriverRouter(store, nil).Register(g)

	body := bytes.NewBufferString(`{"driver_id":"d1"}`)
	req := httptest.NewRequest(http.MethodPost, "/driver/heartbeat", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, 1, store.heartbeats)
}

func TestDriverRouter_SetStatus_MissingFieldIsBadRequest(t *testing.T) {
	store := &fakeDriverStore{}
	g := gin.New()
	NewDriverRouter(store, nil).Register(g)

	body := bytes.NewBufferString(`{"driver_id":"d1"}`)
	req := httptest.NewRequest(http.MethodPost, "/driver/status", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}
