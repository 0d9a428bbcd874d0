package store

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/motocabz/dispatch-core/domain"
)

// Coordinates are stored as little-endian EWKB POINT hex strings in every
// geometry column (addresses.coordinates, drivers.current_location,
// order_status_logs.current_location), mapped to/from the plain
// domain.Coordinates value object here rather than on the entity itself —
// the on-wire representation is the repository's business.
//
// This is a minimal point encoder/decoder; a full geometry codec would be
// dead weight for the single shape the schema stores.
const wkbPointType = 0x00000001 // geometry type 1 = Point, no SRID flag

func encodeWKBPoint(c domain.Coordinates) string {
	buf := make([]byte, 1+4+8+8)
	buf[0] = 1 // NDR (little-endian) byte order marker
	binary.LittleEndian.PutUint32(buf[1:5], wkbPointType)
	binary.LittleEndian.PutUint64(buf[5:13], math.Float64bits(c.Lon))
	binary.LittleEndian.PutUint64(buf[13:21], math.Float64bits(c.Lat))
	return hex.EncodeToString(buf)
}

func decodeWKBPoint(h string) (domain.Coordinates, error) {
	var zero domain.Coordinates
	if h == "" {
		return zero, nil
	}
	buf, err := hex.DecodeString(h)
	if err != nil {
		return zero, fmt.Errorf("store: decode wkb point: %w", err)
	}
	if len(buf) < 21 {
		return zero, fmt.Errorf("store: wkb point too short (%d bytes)", len(buf))
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if buf[0] == 0 {
		order = binary.BigEndian
	}
	lon := math.Float64frombits(order.Uint64(buf[5:13]))
	lat := math.Float64frombits(order.Uint64(buf[13:21]))
	return domain.Coordinates{Lon: lon, Lat: lat}, nil
}

func encodeWKBPointPtr(c *domain.Coordinates) *string {
	if c == nil {
		return nil
	}
	s := encodeWKBPoint(*c)
	return &s
}

func decodeWKBPointPtr(h *string) (*domain.Coordinates, error) {
	if h == nil || *h == "" {
		return nil, nil
	}
	c, err := decodeWKBPoint(*h)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// marshalJSON/unmarshalJSON wrap encoding/json for the handful of
// structured columns stored as JSON text (waypoints_summary, packages,
// history_status, metadata), the same codec eventlog uses for an event's
// metadata field.
func marshalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
