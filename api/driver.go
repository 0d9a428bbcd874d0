package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	apihttp "github.com/motocabz/dispatch-core/http"
	"github.com/motocabz/dispatch-core/realtime"
	"github.com/motocabz/dispatch-core/validation"
	wsconn "github.com/motocabz/dispatch-core/websocket"
)

// DriverStore is the persistence surface the driver-telemetry handlers
// need.
type DriverStore interface {
	SetDriverStatus(ctx context.Context, driverID, status string) error
	SetDriverLocation(ctx context.Context, driverID string, loc domain.Coordinates, at time.Time) error
	Heartbeat(ctx context.Context, driverID string, at time.Time) error
	ActiveOrderForDriver(ctx context.Context, driverID string) (string, error)
}

// DriverRouter mounts the driver telemetry endpoints.
type DriverRouter struct {
	drivers DriverStore
	hub     *realtime.Hub
	conns   *wsconn.Manager
}

func NewDriverRouter(drivers DriverStore, hub *realtime.Hub) *DriverRouter {
	return &DriverRouter{drivers: drivers, hub: hub, conns: wsconn.NewManager()}
}

func (r *DriverRouter) Register(g *gin.Engine) {
	g.POST("/driver/status", r.setStatus)
	g.POST("/driver/location", r.setLocation)
	g.POST("/driver/heartbeat", r.heartbeat)
	g.GET("/driver/location-stream", r.locationStream)
}

type driverStatusRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
}

func (r *DriverRouter) setStatus(c *gin.Context) {
	var req driverStatusRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}
	if !validation.IsValidDriverStatus(req.Status) {
		apihttp.HandleError(c, domain.ErrValidationf("status: unrecognized value %q", req.Status))
		return
	}
	if err := r.drivers.SetDriverStatus(c.Request.Context(), req.DriverID, req.Status); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "status updated"))
}

type driverLocationRequest struct {
	DriverID string             `json:"driver_id" validate:"required"`
	Location domain.Coordinates `json:"location" validate:"required"`
}

func (r *DriverRouter) setLocation(c *gin.Context) {
	var req driverLocationRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}
	if verr := validation.ValidateLocation(req.Location.Lat, req.Location.Lon); verr != nil {
		apihttp.HandleError(c, domain.ErrValidationf("location: %s", verr.Message))
		return
	}
	ctx := c.Request.Context()
	if err := r.drivers.SetDriverLocation(ctx, req.DriverID, req.Location, time.Now()); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	r.publishLocation(ctx, req.DriverID, req.Location)
	c.JSON(http.StatusOK, common.RsOK(nil, "location updated"))
}

// publishLocation fans a driver's new position out to its active order's
// SSE subscribers (`order:driver_location_updated`), if any.
// Errors are logged and swallowed: tracking is best-effort and must never
// fail the caller's telemetry write.
func (r *DriverRouter) publishLocation(ctx context.Context, driverID string, loc domain.Coordinates) {
	if r.hub == nil {
		return
	}
	orderID, err := r.drivers.ActiveOrderForDriver(ctx, driverID)
	if err != nil {
		log.Printf("⚠️ driver location publish: lookup active order for %s: %v", driverID, err)
		return
	}
	if orderID == "" {
		return
	}
	r.hub.Publish(realtime.Update{
		Type:      realtime.DriverLocationUpdated,
		OrderID:   orderID,
		DriverID:  driverID,
		Location:  &realtime.Location{Lat: loc.Lat, Lng: loc.Lon},
		Timestamp: time.Now(),
	})
}

type driverHeartbeatRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

func (r *DriverRouter) heartbeat(c *gin.Context) {
	var req driverHeartbeatRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}
	if err := r.drivers.Heartbeat(c.Request.Context(), req.DriverID, time.Now()); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "heartbeat recorded"))
}

type locationFrame struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// locationStream upgrades GET /driver/location-stream?driver_id=... to a
// websocket: one long-lived connection per driver, each incoming frame
// refreshes the driver's location and heartbeat and fans out to the active
// order's SSE trackers. Every connection also doubles as the driver's
// heartbeat key refresh, so a driver streaming location never trips the
// inactivity-timeout monitor.
func (r *DriverRouter) locationStream(c *gin.Context) {
	driverID := c.Query("driver_id")
	if driverID == "" {
		apihttp.HandleError(c, domain.ErrValidationf("driver_id is required"))
		return
	}

	conn, err := wsconn.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ driver location-stream: upgrade failed for %s: %v", driverID, err)
		return
	}
	defer conn.Close()

	wsc := r.conns.Add(driverID, conn)
	defer r.conns.Remove(driverID)
	go r.conns.StartPingPong(wsc)

	_ = conn.WriteJSON(wsconn.NewMessage(wsconn.MessageTypeConnectionEstablished, map[string]interface{}{"driver_id": driverID}))

	ctx := c.Request.Context()
	conn.SetReadDeadline(time.Now().Add(wsconn.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsconn.PongTimeout))
		return nil
	})

	for {
		var frame locationFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		loc := domain.Coordinates{Lat: frame.Lat, Lon: frame.Lon}
		if verr := validation.ValidateLocation(loc.Lat, loc.Lon); verr != nil {
			_ = r.conns.Send(driverID, wsconn.NewErrorMessage(wsconn.MessageTypeError, verr.Message))
			continue
		}
		now := time.Now()
		if err := r.drivers.SetDriverLocation(ctx, driverID, loc, now); err != nil {
			_ = r.conns.Send(driverID, wsconn.NewErrorMessage(wsconn.MessageTypeError, err.Error()))
			continue
		}
		if err := r.drivers.Heartbeat(ctx, driverID, now); err != nil {
			log.Printf("⚠️ driver location-stream: heartbeat for %s: %v", driverID, err)
		}
		r.publishLocation(ctx, driverID, loc)
		_ = r.conns.Send(driverID, wsconn.NewMessage(wsconn.MessageTypeLocationAck, nil))
	}
}
