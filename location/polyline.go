package location

import "strings"

// EncodePolyline encodes a sequence of (lat, lng) pairs using the Google
// polyline algorithm. Routing geometry uses precision 6.
func EncodePolyline(points [][2]float64, precision uint) string {
	factor := int64(1)
	for i := uint(0); i < precision; i++ {
		factor *= 10
	}

	var sb strings.Builder
	var prevLat, prevLng int64

	for _, p := range points {
		lat := round(p[0] * float64(factor))
		lng := round(p[1] * float64(factor))

		encodeSigned(&sb, lat-prevLat)
		encodeSigned(&sb, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

// DecodePolyline decodes a polyline string encoded at the given precision
// back into (lat, lng) pairs, filtering any coordinate outside valid
// bounds.
func DecodePolyline(encoded string, precision uint) [][2]float64 {
	factor := 1.0
	for i := uint(0); i < precision; i++ {
		factor *= 10
	}

	var points [][2]float64
	var lat, lng int64
	index := 0

	for index < len(encoded) {
		dlat, next := decodeSigned(encoded, index)
		index = next
		lat += dlat

		dlng, next2 := decodeSigned(encoded, index)
		index = next2
		lng += dlng

		point := [2]float64{float64(lat) / factor, float64(lng) / factor}
		if IsValidLocation(point[0], point[1]) {
			points = append(points, point)
		}
	}

	return points
}

func round(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}

func encodeSigned(sb *strings.Builder, v int64) {
	shifted := v << 1
	if v < 0 {
		shifted = ^shifted
	}
	for shifted >= 0x20 {
		sb.WriteByte(byte((0x20 | (shifted & 0x1f)) + 63))
		shifted >>= 5
	}
	sb.WriteByte(byte(shifted + 63))
}

func decodeSigned(encoded string, index int) (int64, int) {
	var result int64
	var shift uint
	for {
		b := int64(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		result = ^(result >> 1)
	} else {
		result = result >> 1
	}
	return result, index
}
