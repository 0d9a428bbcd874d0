package location

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolyline_RoundTrip(t *testing.T) {
	points := [][2]float64{
		{38.5, -120.2},
		{40.7, -120.95},
		{43.252, -126.453},
	}

	encoded := EncodePolyline(points, 6)
	decoded := DecodePolyline(encoded, 6)

	require.Len(t, decoded, len(points))
	for i, p := range points {
		require.InDelta(t, p[0], decoded[i][0], 1e-5)
		require.InDelta(t, p[1], decoded[i][1], 1e-5)
	}
}

func TestPolyline_FiltersOutOfBoundsPoints(t *testing.T) {
	// Hand-encode one valid point followed by a value that decodes outside
	// the valid lat range, to exercise the tie-break filter.
	valid := EncodePolyline([][2]float64{{10, 10}}, 6)
	invalid := EncodePolyline([][2]float64{{10, 10}, {1000, 10}}, 6)

	require.Len(t, DecodePolyline(valid, 6), 1)
	require.Len(t, DecodePolyline(invalid, 6), 1, "the out-of-range point must be dropped, not the whole decode")
}

func TestPolyline_EmptyInput(t *testing.T) {
	require.Empty(t, EncodePolyline(nil, 6))
	require.Empty(t, DecodePolyline("", 6))
}

func TestRound_MatchesMathRound(t *testing.T) {
	for _, v := range []float64{0, 1.4, 1.5, -1.4, -1.5, 123456.7} {
		require.Equal(t, int64(math.Round(v)), round(v))
	}
}
