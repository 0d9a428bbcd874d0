// Package routing implements domain.Routing as a client of the external
// routing/geocoding microservice, invoked over Dapr and wrapped in a
// sony/gobreaker circuit breaker so a flapping routing provider degrades
// to fast failures instead of piling up timed-out calls.
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/motocabz/dispatch-core/dapr"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/location"
)

const polylinePrecision = 6

// invoker is the slice of *dapr.DaprClient this package needs; narrowed to
// an interface so tests can substitute a fake without a live Dapr sidecar.
type invoker interface {
	InvokeRoutingService(ctx context.Context, method string, payload interface{}, response interface{}) error
}

// HealthGate reports whether a named sibling service is currently known to
// be serving, per the gRPC health-checking protocol
// (infrastructure/grpc.HealthChecker). Client stores the gate and
// checkHealth reads it, but Geocode, Trip and DirectRoute do not call
// checkHealth: every call goes through the breaker whatever the gate
// reports.
type HealthGate interface {
	IsHealthy(service string) bool
}

// Client implements domain.Routing against the routing-service sibling.
type Client struct {
	dapr    invoker
	breaker *gobreaker.CircuitBreaker
	health  HealthGate
}

func New(d *dapr.DaprClient, health HealthGate) *Client {
	return newWithInvoker(d, health)
}

func newWithInvoker(d invoker, health HealthGate) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "routing-service",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
	})
	return &Client{dapr: d, breaker: breaker, health: health}
}

// checkHealth returns a UpstreamUnavailable error without touching the
// breaker or Dapr at all when the health gate already knows routing-service
// is down.
func (c *Client) checkHealth() error {
	if c.health == nil || c.health.IsHealthy("routing-service") {
		return nil
	}
	return domain.ErrServiceUnavailablef("routing-service", fmt.Errorf("last health probe reported DOWN"))
}

type geocodeRequest struct {
	Text string `json:"text"`
}

type geocodeResponse struct {
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Found    bool    `json:"found"`
	City     string  `json:"city"`
	Postcode string  `json:"postcode"`
	Country  string  `json:"country"`
}

// Geocode resolves free text to a point via the external service.
func (c *Client) Geocode(ctx context.Context, text string) (*domain.GeocodeResult, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		var resp geocodeResponse
		if err := c.dapr.InvokeRoutingService(ctx, "geocode", geocodeRequest{Text: text}, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, domain.ErrServiceUnavailablef("routing-service", err)
	}
	resp := res.(*geocodeResponse)
	if !resp.Found {
		return nil, nil
	}
	return &domain.GeocodeResult{
		Lon:      resp.Lon,
		Lat:      resp.Lat,
		City:     resp.City,
		Postcode: resp.Postcode,
		Country:  resp.Country,
	}, nil
}

type tripRequest struct {
	Waypoints []domain.Coordinates `json:"waypoints"`
	Costing   string               `json:"costing"`
}

type tripLegWire struct {
	Geometry  string            `json:"geometry"`
	DurationS float64           `json:"duration_s"`
	DistanceM float64           `json:"distance_m"`
	Maneuvers []domain.Maneuver `json:"maneuvers"`
}

type tripResponse struct {
	Found          bool          `json:"found"`
	TotalDurationS float64       `json:"total_duration_s"`
	TotalDistanceM float64       `json:"total_distance_m"`
	Legs           []tripLegWire `json:"legs"`
}

// Trip computes a multi-waypoint routed trip.
func (c *Client) Trip(ctx context.Context, waypoints []domain.Coordinates, costing string) (*domain.TripResult, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("trip requires at least 2 waypoints, got %d", len(waypoints))
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		var resp tripResponse
		if err := c.dapr.InvokeRoutingService(ctx, "trip", tripRequest{Waypoints: waypoints, Costing: costing}, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, domain.ErrServiceUnavailablef("routing-service", err)
	}
	resp := res.(*tripResponse)
	if !resp.Found {
		return nil, nil
	}
	legs := make([]domain.TripLeg, 0, len(resp.Legs))
	for _, l := range resp.Legs {
		legs = append(legs, domain.TripLeg{
			Geometry:  filterGeometry(l.Geometry),
			DurationS: l.DurationS,
			DistanceM: l.DistanceM,
			Maneuvers: l.Maneuvers,
		})
	}
	return &domain.TripResult{
		TotalDurationS: resp.TotalDurationS,
		TotalDistanceM: resp.TotalDistanceM,
		Legs:           legs,
	}, nil
}

type directRouteRequest struct {
	Start   domain.Coordinates `json:"start"`
	End     domain.Coordinates `json:"end"`
	Costing string             `json:"costing"`
}

type directRouteResponse struct {
	Found     bool    `json:"found"`
	DurationS float64 `json:"duration_s"`
	DistanceM float64 `json:"distance_m"`
	Geometry  string  `json:"geometry"`
}

// DirectRoute computes a single-leg route between two points.
func (c *Client) DirectRoute(ctx context.Context, start, end domain.Coordinates, costing string) (*domain.DirectRouteResult, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		var resp directRouteResponse
		if err := c.dapr.InvokeRoutingService(ctx, "direct_route", directRouteRequest{Start: start, End: end, Costing: costing}, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, domain.ErrServiceUnavailablef("routing-service", err)
	}
	resp := res.(*directRouteResponse)
	if !resp.Found {
		return nil, nil
	}
	return &domain.DirectRouteResult{
		DurationS: resp.DurationS,
		DistanceM: resp.DistanceM,
		Geometry:  filterGeometry(resp.Geometry),
	}, nil
}

// filterGeometry re-encodes a polyline after dropping any decoded point
// outside valid lat/lon bounds.
func filterGeometry(encoded string) string {
	if encoded == "" {
		return encoded
	}
	points := location.DecodePolyline(encoded, polylinePrecision)
	return location.EncodePolyline(points, polylinePrecision)
}
