package availability

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/motocabz/dispatch-core/domain"
)

// DriverStore is the surface the synchronizer needs over the Driver
// aggregate and its status log.
type DriverStore interface {
	DriverIDsInPartition(ctx context.Context, workerID, totalWorkers, batchSize int, offset int) ([]string, error)
	LatestStatus(ctx context.Context, driverID string) (string, error)
	AppendStatusLog(ctx context.Context, driverID, status, reason string) error
}

// Cache is the narrow key-value surface the synchronizer needs for
// availability memoization (CACHE_TTL_SECONDS).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Notifier enqueues a push notification when a driver's derived status
// flips, without this package needing to know about FCM tokens directly.
type Notifier interface {
	NotifyStatusFlip(ctx context.Context, driverID, newStatus string) error
}

// operationallyManaged is the set of statuses the schedule sync must never
// override.
var operationallyManaged = map[string]bool{
	"IN_WORK":  true,
	"OFFERING": true,
	"ON_BREAK": true,
	"PENDING":  true,
}

// Config holds the AVAILABILITY_SYNC_* knobs.
type Config struct {
	WorkerID     int
	TotalWorkers int
	BatchSize    int
	CacheTTL     time.Duration
	Interval     time.Duration
}

// Synchronizer is one partition's periodic sweep worker.
type Synchronizer struct {
	cfg      Config
	drivers  DriverStore
	checker  *Checker
	cache    Cache
	notifier Notifier
	clock    domain.Clock
}

func NewSynchronizer(cfg Config, drivers DriverStore, checker *Checker, cache Cache, notifier Notifier, clock domain.Clock) *Synchronizer {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Synchronizer{cfg: cfg, drivers: drivers, checker: checker, cache: cache, notifier: notifier, clock: clock}
}

// OwnsDriver reports whether this worker instance owns driverID's
// partition: hash(driver_id) mod totalWorkers == workerID.
func OwnsDriver(driverID string, workerID, totalWorkers int) bool {
	if totalWorkers <= 0 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(driverID))
	return int(h.Sum32()%uint32(totalWorkers)) == workerID
}

// Run drives the periodic sweep until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("🚀 availability synchronizer worker %d/%d starting", s.cfg.WorkerID, s.cfg.TotalWorkers)

	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 availability synchronizer worker %d stopping", s.cfg.WorkerID)
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Synchronizer) sweep(ctx context.Context) {
	offset := 0
	for {
		ids, err := s.drivers.DriverIDsInPartition(ctx, s.cfg.WorkerID, s.cfg.TotalWorkers, s.cfg.BatchSize, offset)
		if err != nil {
			log.Printf("❌ availability sweep: failed to list drivers: %v", err)
			return
		}
		if len(ids) == 0 {
			return
		}
		for _, driverID := range ids {
			if !OwnsDriver(driverID, s.cfg.WorkerID, s.cfg.TotalWorkers) {
				continue
			}
			if err := s.reconcileOne(ctx, driverID); err != nil {
				log.Printf("❌ availability sweep: driver %s: %v", driverID, err)
			}
		}
		offset += len(ids)
	}
}

func (s *Synchronizer) reconcileOne(ctx context.Context, driverID string) error {
	current, err := s.drivers.LatestStatus(ctx, driverID)
	if err != nil {
		return err
	}
	if operationallyManaged[current] {
		return nil
	}

	now := s.clock.Now()
	available, err := s.availabilityCached(ctx, driverID, now)
	if err != nil {
		return err
	}

	target := "INACTIVE"
	if available {
		target = "ACTIVE"
	}
	if target == current {
		return nil
	}

	if err := s.drivers.AppendStatusLog(ctx, driverID, target, "schedule_sync"); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyStatusFlip(ctx, driverID, target); err != nil {
			log.Printf("❌ availability sweep: notify driver %s: %v", driverID, err)
		}
	}
	return nil
}

// availabilityCached reads the per-minute cache, falling back to a fresh
// computation on miss. A fresh cache entry and a fresh computation must
// agree as long as the schedule is unchanged.
func (s *Synchronizer) availabilityCached(ctx context.Context, driverID string, now time.Time) (bool, error) {
	key := cacheKey(driverID, now)
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, key); err == nil && v != "" {
			return v == "1", nil
		}
	}

	available := s.checker.IsAvailableBySchedule(ctx, driverID, now)

	if s.cache != nil {
		val := "0"
		if available {
			val = "1"
		}
		_ = s.cache.Set(ctx, key, val, s.cfg.CacheTTL)
	}
	return available, nil
}

func cacheKey(driverID string, t time.Time) string {
	return fmt.Sprintf("availability:%s:%s", driverID, t.UTC().Format("2006-01-02T15:04"))
}
