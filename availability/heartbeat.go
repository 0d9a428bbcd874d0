package availability

import (
	"context"
	"log"
	"time"

	"github.com/motocabz/dispatch-core/domain"
)

// heartbeatReasonInactivityTimeout is the metadata.reason value stamped on
// the status log entry the heartbeat monitor writes.
const heartbeatReasonInactivityTimeout = "inactivity_timeout"

// heartbeatTracked is the set of statuses the monitor enforces a heartbeat
// on. A driver already INACTIVE needs no forcing.
var heartbeatTracked = map[string]bool{
	"ACTIVE":   true,
	"OFFERING": true,
	"IN_WORK":  true,
	"ON_BREAK": true,
	"PENDING":  true,
}

// HeartbeatExistence is the narrow presence check this monitor needs over
// the driver:heartbeat:{id} key, matching
// redis.IRedisService.Exists's signature directly so the concrete Redis
// client can be passed in without a wrapper.
type HeartbeatExistence interface {
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// HeartbeatMonitor scans every interval for drivers whose heartbeat key
// has expired while their status is non-terminal and forces them to
// INACTIVE.
type HeartbeatMonitor struct {
	drivers   DriverStore
	cache     HeartbeatExistence
	clock     domain.Clock
	interval  time.Duration
	batchSize int
	keyPrefix string
}

func NewHeartbeatMonitor(drivers DriverStore, cache HeartbeatExistence, clock domain.Clock, interval time.Duration, batchSize int, keyPrefix string) *HeartbeatMonitor {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &HeartbeatMonitor{drivers: drivers, cache: cache, clock: clock, interval: interval, batchSize: batchSize, keyPrefix: keyPrefix}
}

// Run drives the periodic sweep until ctx is cancelled. This worker isn't
// partitioned like Synchronizer — every instance scans the full driver
// table, since a missing heartbeat key is a global fact, not something
// that benefits from sharding across workers the way the schedule sweep
// does.
func (m *HeartbeatMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Println("🚀 driver heartbeat monitor starting")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 driver heartbeat monitor stopping")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *HeartbeatMonitor) sweep(ctx context.Context) {
	offset := 0
	for {
		ids, err := m.drivers.DriverIDsInPartition(ctx, 0, 1, m.batchSize, offset)
		if err != nil {
			log.Printf("❌ heartbeat sweep: failed to list drivers: %v", err)
			return
		}
		if len(ids) == 0 {
			return
		}
		for _, driverID := range ids {
			if err := m.reconcileOne(ctx, driverID); err != nil {
				log.Printf("❌ heartbeat sweep: driver %s: %v", driverID, err)
			}
		}
		offset += len(ids)
	}
}

func (m *HeartbeatMonitor) reconcileOne(ctx context.Context, driverID string) error {
	current, err := m.drivers.LatestStatus(ctx, driverID)
	if err != nil {
		return err
	}
	if !heartbeatTracked[current] {
		return nil
	}

	count, err := m.cache.Exists(ctx, m.keyPrefix+driverID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return m.drivers.AppendStatusLog(ctx, driverID, "INACTIVE", heartbeatReasonInactivityTimeout)
}
