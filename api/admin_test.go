package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeAdminStore struct {
	assignedOrder, assignedDriver string
}

func (s *fakeAdminStore) ManuallyAssign(ctx context.Context, orderID, driverID string) error {
	s.assignedOrder, s.assignedDriver = orderID, driverID
	return nil
}

func TestAdminRouter_Assign_PublishesManuallyAssigned(t *testing.T) {
	store := &fakeAdminStore{}
	var publishedType, publishedOrder, publishedDriver string
	publish := func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error {
		publishedType, publishedOrder, publishedDriver = eventType, orderID, driverID
		return nil
	}
	g := gin.New()
	NewAdminRouter(store, publish).Register(g)

	body := bytes.NewBufferString(`{"driver_id":"d1"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/o1/assign", body)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "o1", store.assignedOrder)
	require.Equal(t, "d1", store.assignedDriver)
	require.Equal(t, "MANUALLY_ASSIGNED", publishedType)
	require.Equal(t, "o1", publishedOrder)
	require.Equal(t, "d1", publishedDriver)
}
