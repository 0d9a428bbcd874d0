// Package api implements the thin Gin HTTP boundary the dispatch core
// consumes: order creation/offer/accept/refuse, waypoint
// status transitions, driver telemetry, admin assignment, and the
// server-sent-event tracking stream. Handlers here do no business logic
// themselves — they bind/validate the request, call into assignment/
// mission/pricing/routing, and translate the result to a response.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	apihttp "github.com/motocabz/dispatch-core/http"
	"github.com/motocabz/dispatch-core/mission"
	"github.com/motocabz/dispatch-core/pricing"
	"github.com/motocabz/dispatch-core/validation"
)

// OrderStore is the persistence surface the order-facing handlers need.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// AcceptOffer finalizes acceptance if driverID matches the current
	// offer and it has not expired.
	AcceptOffer(ctx context.Context, orderID, driverID string, now time.Time) error

	// RefuseOffer clears the offer and blacklists driverID for this order.
	// It publishes nothing; the refuse handler publishes
	// OFFER_REFUSED_BY_DRIVER after it returns.
	RefuseOffer(ctx context.Context, orderID, driverID string) error
}

// Router wires every order-facing handler onto a gin.Engine, reusing the
// shared response/error-handling helpers.
type Router struct {
	orders  OrderStore
	routing domain.Routing
	sm      *mission.StateMachine
	publish func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error
}

func NewRouter(orders OrderStore, routing domain.Routing, sm *mission.StateMachine, publish func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error) *Router {
	return &Router{orders: orders, routing: routing, sm: sm, publish: publish}
}

// Register mounts every route this package owns onto g.
func (r *Router) Register(g *gin.Engine) {
	g.POST("/orders", r.createOrder)
	g.GET("/orders/:id/offer-details", r.offerDetails)
	g.POST("/orders/:id/accept", r.acceptOffer)
	g.POST("/orders/:id/refuse", r.refuseOffer)
	g.PATCH("/orders/:id/waypoints/:seq/status", r.waypointStatus)
}

type createOrderRequest struct {
	ClientID          string               `json:"client_id" validate:"required"`
	PickupAddressID   string               `json:"pickup_address_id" validate:"required"`
	DeliveryAddressID string               `json:"delivery_address_id" validate:"required"`
	Packages          []domain.PackageItem `json:"packages"`
	Priority          string               `json:"priority"`
	Note              *string              `json:"note"`
	PickupCoordinates domain.Coordinates   `json:"pickup_coordinates" validate:"required"`
	DeliveryCoordinates domain.Coordinates `json:"delivery_coordinates" validate:"required"`
}

// createOrder implements `POST /orders`: prices the order and computes the
// initial waypoint list inline, then publishes NEW_ORDER_READY_FOR_ASSIGNMENT.
func (r *Router) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}
	if verr := validation.ValidateLocation(req.PickupCoordinates.Lat, req.PickupCoordinates.Lon); verr != nil {
		apihttp.HandleError(c, domain.ErrValidationf("pickup_coordinates: %s", verr.Message))
		return
	}
	if verr := validation.ValidateLocation(req.DeliveryCoordinates.Lat, req.DeliveryCoordinates.Lon); verr != nil {
		apihttp.HandleError(c, domain.ErrValidationf("delivery_coordinates: %s", verr.Message))
		return
	}
	if req.Priority != "" && !validation.IsValidOrderPriority(req.Priority) {
		apihttp.HandleError(c, domain.ErrValidationf("priority: unrecognized value %q", req.Priority))
		return
	}

	ctx := c.Request.Context()
	route, err := r.routing.DirectRoute(ctx, req.PickupCoordinates, req.DeliveryCoordinates, "auto")
	if err != nil {
		apihttp.HandleError(c, domain.ErrServiceUnavailablef("routing", err))
		return
	}

	quote := pricing.Price(route.DistanceM, route.DurationS, req.Packages)

	order := &domain.Order{
		ClientID:          req.ClientID,
		Priority:          req.Priority,
		Remuneration:      quote.DriverRemuneration,
		ClientFee:         quote.ClientFee,
		PickupAddressID:   req.PickupAddressID,
		DeliveryAddressID: req.DeliveryAddressID,
		Note:              req.Note,
		Packages:          req.Packages,
		WaypointsSummary: []domain.WaypointSummaryItem{
			{Sequence: 0, Type: "pickup", AddressID: req.PickupAddressID, Coordinates: req.PickupCoordinates, Status: "pending", IsMandatory: true},
			{Sequence: 1, Type: "delivery", AddressID: req.DeliveryAddressID, Coordinates: req.DeliveryCoordinates, Status: "pending", IsMandatory: true},
		},
	}

	if err := r.orders.CreateOrder(ctx, order); err != nil {
		apihttp.HandleError(c, err)
		return
	}

	if err := r.publish(ctx, "NEW_ORDER_READY_FOR_ASSIGNMENT", order.ID, "", nil); err != nil {
		apihttp.HandleError(c, domain.ErrInternalf("publish new order event", err))
		return
	}

	c.JSON(http.StatusCreated, common.RsOK(order, "order created"))
}

// offerDetails implements `GET /orders/:id/offer-details`.
func (r *Router) offerDetails(c *gin.Context) {
	orderID := c.Param("id")
	order, err := r.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		apihttp.HandleError(c, err)
		return
	}
	if order == nil {
		apihttp.HandleError(c, domain.ErrNotFoundf("order", orderID))
		return
	}
	c.JSON(http.StatusOK, common.RsOK(order, ""))
}

type driverActionRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

// acceptOffer implements `POST /orders/:id/accept`.
func (r *Router) acceptOffer(c *gin.Context) {
	orderID := c.Param("id")
	var req driverActionRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}

	ctx := c.Request.Context()
	if err := r.orders.AcceptOffer(ctx, orderID, req.DriverID, time.Now()); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	if err := r.publish(ctx, "OFFER_ACCEPTED_BY_DRIVER", orderID, req.DriverID, nil); err != nil {
		apihttp.HandleError(c, domain.ErrInternalf("publish accept event", err))
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "offer accepted"))
}

// refuseOffer implements `POST /orders/:id/refuse`.
func (r *Router) refuseOffer(c *gin.Context) {
	orderID := c.Param("id")
	var req driverActionRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}

	ctx := c.Request.Context()
	if err := r.orders.RefuseOffer(ctx, orderID, req.DriverID); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	if err := r.publish(ctx, "OFFER_REFUSED_BY_DRIVER", orderID, req.DriverID, nil); err != nil {
		apihttp.HandleError(c, domain.ErrInternalf("publish refuse event", err))
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "offer refused"))
}

type waypointStatusRequest struct {
	Action           string   `json:"action" validate:"required"`
	DriverID         string   `json:"driver_id" validate:"required"`
	ConfirmationCode string   `json:"confirmation_code"`
	PhotoURLs        []string `json:"photo_urls"`
	MessageIssue     string   `json:"message_issue"`
}

// waypointStatus implements `PATCH /orders/:id/waypoints/:seq/status`,
// dispatching to the appropriate mission state transition.
func (r *Router) waypointStatus(c *gin.Context) {
	orderID := c.Param("id")
	sequence, err := parseSequence(c.Param("seq"))
	if err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("invalid waypoint sequence"))
		return
	}

	var req waypointStatusRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "arrive":
		err = r.sm.ReportArrival(ctx, orderID, sequence, req.DriverID)
	case "begin_processing":
		err = r.sm.BeginProcessing(ctx, orderID, sequence, req.DriverID)
	case "complete":
		err = r.sm.Complete(ctx, orderID, sequence, req.DriverID, mission.CompleteParams{
			ConfirmationCode: req.ConfirmationCode,
			PhotoURLs:        req.PhotoURLs,
		})
	case "fail":
		err = r.sm.Fail(ctx, orderID, sequence, req.DriverID, req.MessageIssue)
	default:
		apihttp.HandleError(c, domain.ErrValidationf("unknown action %q", req.Action))
		return
	}
	if err != nil {
		apihttp.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "waypoint updated"))
}

func parseSequence(raw string) (int, error) {
	n := 0
	if raw == "" {
		return 0, domain.ErrValidationf("missing sequence")
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return 0, domain.ErrValidationf("invalid sequence %q", raw)
		}
		n = n*10 + int(ch-'0')
	}
	return n, nil
}
