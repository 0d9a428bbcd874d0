package routing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/location"
)

type fakeInvoker struct {
	response interface{}
	err      error
}

func (f *fakeInvoker) InvokeRoutingService(ctx context.Context, method string, payload interface{}, response interface{}) error {
	if f.err != nil {
		return f.err
	}
	b, _ := json.Marshal(f.response)
	return json.Unmarshal(b, response)
}

func TestGeocode_NotFound(t *testing.T) {
	c := newWithInvoker(&fakeInvoker{response: geocodeResponse{Found: false}}, nil)
	res, err := c.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestGeocode_Found(t *testing.T) {
	c := newWithInvoker(&fakeInvoker{response: geocodeResponse{Found: true, Lon: -4.03, Lat: 5.36, City: "Abidjan"}}, nil)
	res, err := c.Geocode(context.Background(), "somewhere")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "Abidjan", res.City)
}

func TestDirectRoute_FiltersInvalidGeometryPoints(t *testing.T) {
	// Encode a geometry containing one valid and one out-of-range point.
	bad := location.EncodePolyline([][2]float64{{10, 10}, {1000, 10}}, polylinePrecision)
	c := newWithInvoker(&fakeInvoker{response: directRouteResponse{
		Found: true, DurationS: 120, DistanceM: 500, Geometry: bad,
	}}, nil)
	res, err := c.DirectRoute(context.Background(), domain.Coordinates{}, domain.Coordinates{}, "auto")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Geometry)
}

func TestTrip_RejectsFewerThanTwoWaypoints(t *testing.T) {
	c := newWithInvoker(&fakeInvoker{}, nil)
	_, err := c.Trip(context.Background(), []domain.Coordinates{{}}, "auto")
	require.Error(t, err)
}
