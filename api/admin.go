package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	apihttp "github.com/motocabz/dispatch-core/http"
)

// AdminStore is the persistence surface the admin-plane handlers need.
type AdminStore interface {
	ManuallyAssign(ctx context.Context, orderID, driverID string) error
}

// AdminRouter mounts the admin-plane endpoints.
type AdminRouter struct {
	store   AdminStore
	publish func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error
}

func NewAdminRouter(store AdminStore, publish func(ctx context.Context, eventType, orderID, driverID string, payload map[string]interface{}) error) *AdminRouter {
	return &AdminRouter{store: store, publish: publish}
}

func (r *AdminRouter) Register(g *gin.Engine) {
	g.POST("/admin/orders/:id/assign", r.assign)
}

type adminAssignRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

// assign implements `POST /admin/orders/:id/assign`: manual assignment,
// publishing MANUALLY_ASSIGNED.
func (r *AdminRouter) assign(c *gin.Context) {
	orderID := c.Param("id")
	var req adminAssignRequest
	if err := apihttp.BindAndValidate(c, &req); err != nil {
		apihttp.HandleError(c, domain.ErrValidationf("%v", err))
		return
	}

	ctx := c.Request.Context()
	if err := r.store.ManuallyAssign(ctx, orderID, req.DriverID); err != nil {
		apihttp.HandleError(c, err)
		return
	}
	if err := r.publish(ctx, "MANUALLY_ASSIGNED", orderID, req.DriverID, nil); err != nil {
		apihttp.HandleError(c, domain.ErrInternalf("publish manual assign event", err))
		return
	}
	c.JSON(http.StatusOK, common.RsOK(nil, "order assigned"))
}
