package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/realtime"
)

func TestTrackRouter_StreamsPublishedUpdate(t *testing.T) {
	hub := realtime.NewHub()
	g := gin.New()
	NewTrackRouter(hub).Register(g)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/track-stream/o1", nil).WithContext(ctx)
	rw := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		g.ServeHTTP(rw, req)
		close(done)
	}()

	// Give the handler time to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	hub.Publish(realtime.Update{Type: realtime.StatusUpdated, OrderID: "o1", NewStatus: "ACCEPTED"})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.Contains(t, rw.Body.String(), "order:status_updated")
	require.True(t, strings.Contains(rw.Body.String(), `"new_status":"ACCEPTED"`))
}
