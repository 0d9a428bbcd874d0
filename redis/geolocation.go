package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DriverLocation is one hit from a geospatial radius search: just enough to
// let assignment.GeoCandidateFinder build a candidate id list and order it
// by distance. Eligibility (is_valid_driver, status,
// schedule, blacklist) is a Postgres read the caller layers on afterward —
// this index only knows "where", not "who".
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lon      float64
	Distance float64
}

// IGeoLocationManager defines the interface for the driver geospatial index
// the Assignment Engine's candidate search reads from (store.Store mirrors
// every driver location write into it; see store.Store.SetDriverLocation).
type IGeoLocationManager interface {
	AddDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	RemoveDriverLocation(ctx context.Context, driverID string) error
	FindNearbyDrivers(ctx context.Context, lat, lng float64, radiusKM float64, limit int) ([]DriverLocation, error)
}

// GeoLocationManager implements IGeoLocationManager over a single Redis
// GEOADD/GEORADIUS sorted set.
type GeoLocationManager struct {
	client    *redis.Client
	keyPrefix string
}

func NewGeoLocationManager(client *redis.Client) IGeoLocationManager {
	return &GeoLocationManager{client: client, keyPrefix: "dispatch:geo:"}
}

const driverLocationKey = "drivers:location"

// AddDriverLocation adds or updates a driver's position in the geo index.
func (gm *GeoLocationManager) AddDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	key := gm.keyPrefix + driverLocationKey
	if err := gm.client.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err(); err != nil {
		return fmt.Errorf("redis: add driver location to geo index: %w", err)
	}
	return nil
}

// UpdateDriverLocation is AddDriverLocation under another name: GEOADD is
// already an upsert, so there is nothing extra to do for an existing member.
func (gm *GeoLocationManager) UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	return gm.AddDriverLocation(ctx, driverID, lat, lng)
}

// RemoveDriverLocation drops a driver from the geo index, e.g. when it goes
// INACTIVE and must stop surfacing as an assignment candidate.
func (gm *GeoLocationManager) RemoveDriverLocation(ctx context.Context, driverID string) error {
	key := gm.keyPrefix + driverLocationKey
	if err := gm.client.ZRem(ctx, key, driverID).Err(); err != nil {
		return fmt.Errorf("redis: remove driver location: %w", err)
	}
	return nil
}

// FindNearbyDrivers returns drivers within radiusKM of (lat, lng), nearest
// first, capped at limit.
func (gm *GeoLocationManager) FindNearbyDrivers(ctx context.Context, lat, lng float64, radiusKM float64, limit int) ([]DriverLocation, error) {
	key := gm.keyPrefix + driverLocationKey
	results, err := gm.client.GeoRadius(ctx, key, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKM,
		Unit:      "km",
		WithDist:  true,
		WithCoord: true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: search nearby drivers: %w", err)
	}

	drivers := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		drivers = append(drivers, DriverLocation{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lon:      r.Longitude,
			Distance: r.Dist,
		})
	}
	return drivers, nil
}
