package domain

import (
	"context"
	"time"
)

// GeocodeResult is the outcome of resolving free text to a point.
type GeocodeResult struct {
	Lon      float64
	Lat      float64
	City     string
	Postcode string
	Country  string
}

// TripLeg is one leg of a multi-waypoint trip computation.
type TripLeg struct {
	Geometry  string // encoded polyline, precision 6
	DurationS float64
	DistanceM float64
	Maneuvers []Maneuver
}

// TripResult is the outcome of a multi-waypoint routing call.
type TripResult struct {
	TotalDurationS float64
	TotalDistanceM float64
	Legs           []TripLeg
}

// DirectRouteResult is the outcome of a two-point routing call.
type DirectRouteResult struct {
	DurationS float64
	DistanceM float64
	Geometry  string
}

// Routing is the abstract geocoding/routing capability.
// Concrete implementations live in package routing; this core never talks
// to Nominatim/Valhalla directly.
type Routing interface {
	Geocode(ctx context.Context, text string) (*GeocodeResult, error)
	Trip(ctx context.Context, waypoints []Coordinates, costing string) (*TripResult, error)
	DirectRoute(ctx context.Context, start, end Coordinates, costing string) (*DirectRouteResult, error)
}

// PushSink is the abstract push-notification delivery capability consumed
// by the Push Pipeline. A nil error with SendResult.Success
// false and InvalidToken true signals the token must be nullified.
type SendResult struct {
	Success      bool
	InvalidToken bool
}

type PushSink interface {
	Send(ctx context.Context, token, title, body string, data map[string]string, priority string) (SendResult, error)
}

// PaymentGateway is the abstract mobile-money payout capability consumed by
// the Billing Worker.
type PaymentGateway interface {
	InitiatePayout(ctx context.Context, txnID string, account MobileMoneyAccount, amount int64, currency string) error
	CheckStatus(ctx context.Context, reference string) (string, error) // returns pending|success|failed
}

// Clock abstracts wall-clock time so offer-expiry and scheduling logic is
// deterministically testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Rng abstracts the source of randomness used to mint confirmation codes.
type Rng interface {
	// Digits returns n decimal digits, each in '0'..'9'.
	Digits(n int) (string, error)
}
