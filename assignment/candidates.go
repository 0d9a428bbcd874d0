package assignment

import (
	"context"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/redis"
)

// GeoCandidateFinder adapts redis.IGeoLocationManager's radius search to
// the engine's CandidateFinder surface, reusing the driver geo index
// as-is. Eligibility filtering stays in the engine; the geo index only
// answers "who is nearby".
type GeoCandidateFinder struct {
	geo redis.IGeoLocationManager
}

func NewGeoCandidateFinder(geo redis.IGeoLocationManager) *GeoCandidateFinder {
	return &GeoCandidateFinder{geo: geo}
}

// DriversWithinRadius returns candidate driver ids within radiusKM of
// pickup, sorted nearest-first by the underlying GEORADIUS query. Status
// and eligibility filtering happens afterward in Engine.selectCandidate —
// the geo index alone can't express is_valid_driver/schedule/blacklist.
func (f *GeoCandidateFinder) DriversWithinRadius(ctx context.Context, pickup domain.Coordinates, radiusKM float64) ([]string, error) {
	const maxCandidates = 50
	nearby, err := f.geo.FindNearbyDrivers(ctx, pickup.Lat, pickup.Lon, radiusKM, maxCandidates)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nearby))
	for _, d := range nearby {
		ids = append(ids, d.DriverID)
	}
	return ids, nil
}
