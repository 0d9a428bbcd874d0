package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/motocabz/dispatch-core/realtime"
)

const trackSubscriberBuffer = 16

// TrackRouter mounts `GET /track-stream/:order_id`: a
// server-sent-event stream of order:status_updated and
// order:driver_location_updated payloads for the given order.
type TrackRouter struct {
	hub *realtime.Hub
}

func NewTrackRouter(hub *realtime.Hub) *TrackRouter {
	return &TrackRouter{hub: hub}
}

func (r *TrackRouter) Register(g *gin.Engine) {
	g.GET("/track-stream/:order_id", r.stream)
}

func (r *TrackRouter) stream(c *gin.Context) {
	orderID := c.Param("order_id")
	updates, unsubscribe := r.hub.Subscribe(orderID, trackSubscriberBuffer)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-updates:
			if !ok {
				return false
			}
			b, err := json.Marshal(update)
			if err != nil {
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, b)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
