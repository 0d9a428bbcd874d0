// Package assignment implements the Assignment Engine: the event-driven
// consumer that matches an Order to a Driver, manages the offer/refuse/
// expire cycle, and finalizes acceptance.
package assignment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/motocabz/dispatch-core/availability"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/location"
)

// CandidateFinder narrows drivers to those within radius of a point — the
// geospatial half of candidate selection, backed by
// Redis GEO commands (package redis's geolocation.go).
type CandidateFinder interface {
	DriversWithinRadius(ctx context.Context, pickup domain.Coordinates, radiusKM float64) ([]string, error)
}

// EventLog is the narrow slice of *eventlog.Log this package needs,
// narrowed to an interface so tests can substitute a fake without a live
// Redis connection.
type EventLog interface {
	EnsureGroup(ctx context.Context, group string) error
	ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error)
	Ack(ctx context.Context, group string, ids ...string) error
	ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error)
	Append(ctx context.Context, ev events.BaseEvent) (string, error)
}

// Store is the persistence surface the engine needs over Order/Driver
// state. Implemented by package store.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)

	// CancelOrder marks the order CANCELLED with reason, within its own
	// transaction.
	CancelOrder(ctx context.Context, orderID, reasonCode string) error

	// IsBlacklisted reports whether driverID previously refused/expired on
	// orderID.
	IsBlacklisted(ctx context.Context, orderID, driverID string) (bool, error)
	Blacklist(ctx context.Context, orderID, driverID string) error

	// SetOffer atomically transitions an order into the OFFERED state:
	// offered_driver_id, offer_expires_at, incremented attempt counter, and
	// the driver's status log entry to OFFERING — all in one transaction.
	SetOffer(ctx context.Context, orderID, driverID string, offerExpiresAt time.Time) error

	// IncrementAttempt bumps assignment_attempt_count without creating an
	// offer (the "no candidate found" path).
	IncrementAttempt(ctx context.Context, orderID string) error

	// FinalizeAccept verifies offered_driver_id==driverID and
	// now<offer_expires_at, then sets driver_id, clears offer fields,
	// appends an OrderStatusLog ACCEPTED entry, and sets the driver IN_WORK
	// — all within one DB transaction ("Finalize on accept").
	FinalizeAccept(ctx context.Context, orderID, driverID string, now time.Time) error

	// FinalizeManualAssign is the admin-driven equivalent of FinalizeAccept,
	// bypassing the offer-validity check.
	FinalizeManualAssign(ctx context.Context, orderID, driverID string) error

	// ExpireOffers clears offer fields and restores ACTIVE on every order
	// whose offer_expires_at <= now, returning the affected order/driver
	// id pairs for event publication.
	ExpireOffers(ctx context.Context, now time.Time) ([]ExpiredOffer, error)
}

// ExpiredOffer is one order/driver pair the expirer scan reset.
type ExpiredOffer struct {
	OrderID  string
	DriverID string
}

// Config holds the assignment tuning knobs.
type Config struct {
	SearchRadiusKM      float64
	MaxAttempts         int
	OfferDuration       time.Duration
	RetryBackoff        time.Duration
	ExpirerScanInterval time.Duration
}

// Engine drives the assignment_workers consumer group.
type Engine struct {
	cfg         Config
	log         EventLog
	store       Store
	finder      CandidateFinder
	avail       *availability.Checker
	retry       RetryScheduler
	clock       domain.Clock
	consumer    string
	claimCursor string
}

func NewEngine(cfg Config, log EventLog, store Store, finder CandidateFinder, avail *availability.Checker, retry RetryScheduler, clock domain.Clock, consumerName string) *Engine {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Engine{cfg: cfg, log: log, store: store, finder: finder, avail: avail, retry: retry, clock: clock, consumer: consumerName, claimCursor: "0-0"}
}

const assignmentGroup = "assignment_workers"

// claimMinIdle is how long an entry must sit unacked in another consumer's
// pending list before a sibling may claim it.
const claimMinIdle = time.Minute

// Run claims and processes events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, blockTimeout time.Duration, batchSize int64) {
	if err := e.log.EnsureGroup(ctx, assignmentGroup); err != nil {
		log.Printf("❌ assignment engine: ensure group: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		claimed, cursor, err := e.log.ClaimStale(ctx, assignmentGroup, e.consumer, claimMinIdle, e.claimCursor, batchSize)
		if err != nil {
			log.Printf("⚠️ assignment engine: claim stale: %v", err)
		} else {
			e.claimCursor = cursor
			for _, entry := range claimed {
				e.handle(ctx, entry)
			}
		}

		entries, err := e.log.ReadGroup(ctx, assignmentGroup, e.consumer, batchSize, blockTimeout)
		if err != nil {
			log.Printf("❌ assignment engine: read group: %v", err)
			continue
		}
		for _, entry := range entries {
			e.handle(ctx, entry)
		}
	}
}

// handle processes one entry and acks it only once the outcome is durable:
// success or a permanent error. A transient failure is logged and the
// entry stays in the pending list for the claim sweep to redeliver.
func (e *Engine) handle(ctx context.Context, entry eventlog.Entry) {
	ev := entry.Event

	var err error
	switch ev.Type {
	case events.NewOrderReadyForAssignment, events.OfferRefusedByDriver, events.OfferExpiredForDriver:
		err = e.attempt(ctx, ev.OrderID)
	case events.OfferAcceptedByDriver:
		err = e.store.FinalizeAccept(ctx, ev.OrderID, ev.DriverID, e.clock.Now())
	case events.ManuallyAssigned:
		err = e.store.FinalizeManualAssign(ctx, ev.OrderID, ev.DriverID)
	case events.CancelledByAdmin, events.CancelledBySystem, events.Completed, events.Failed:
		// Terminal — nothing further to do; the order leaves in-flight
		// retry state simply by no longer being re-published.
	}

	if err != nil {
		if !domain.IsPermanent(err) {
			log.Printf("⚠️ assignment engine: %s order=%s left unacked for redelivery: %v", ev.Type, ev.OrderID, err)
			return
		}
		log.Printf("⚠️ assignment engine: %s order=%s: %v", ev.Type, ev.OrderID, err)
	}
	if ackErr := e.log.Ack(ctx, assignmentGroup, entry.ID); ackErr != nil {
		log.Printf("❌ assignment engine: ack %s: %v", entry.ID, ackErr)
	}
}

// attempt runs one assignment attempt for a single order. Every step
// guards on current state so redelivery is a no-op.
func (e *Engine) attempt(ctx context.Context, orderID string) error {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil
	}
	if order.DerivedStatus() != "PENDING" || order.DriverID != nil {
		return nil
	}

	if order.AssignmentAttemptCount >= e.cfg.MaxAttempts {
		return e.cancelNoDriver(ctx, orderID)
	}

	pickup := order.WaypointsSummary[0].Coordinates
	candidate, err := e.selectCandidate(ctx, orderID, pickup, e.clock.Now())
	if err != nil {
		return fmt.Errorf("candidate selection order %s: %w", orderID, err)
	}

	if candidate == nil {
		if err := e.store.IncrementAttempt(ctx, orderID); err != nil {
			return fmt.Errorf("increment attempt order %s: %w", orderID, err)
		}
		if order.AssignmentAttemptCount+1 >= e.cfg.MaxAttempts {
			return e.cancelNoDriver(ctx, orderID)
		}
		if e.retry != nil {
			due := e.clock.Now().Add(e.cfg.RetryBackoff)
			if err := e.retry.ScheduleRetry(ctx, orderID, due); err != nil {
				return fmt.Errorf("schedule retry order %s: %w", orderID, err)
			}
		}
		return nil
	}

	offerExpiresAt := e.clock.Now().Add(e.cfg.OfferDuration)
	if err := e.store.SetOffer(ctx, orderID, candidate.ID, offerExpiresAt); err != nil {
		return fmt.Errorf("set offer order %s driver %s: %w", orderID, candidate.ID, err)
	}
	// Best-effort: the offer is already committed, and a missing blacklist
	// entry only risks re-offering the same driver after expiry.
	if err := e.store.Blacklist(ctx, orderID, candidate.ID); err != nil {
		log.Printf("⚠️ assignment engine: blacklist order %s driver %s: %v", orderID, candidate.ID, err)
	}

	ev, err := events.NewBaseEvent(events.NewOfferProposed, orderID, map[string]interface{}{
		"remuneration":     order.Remuneration,
		"offer_expires_at": offerExpiresAt,
	})
	if err != nil {
		return err
	}
	ev.DriverID = candidate.ID
	if _, err := e.log.Append(ctx, *ev); err != nil {
		return fmt.Errorf("publish offer order %s driver %s: %w", orderID, candidate.ID, err)
	}
	return nil
}

func (e *Engine) cancelNoDriver(ctx context.Context, orderID string) error {
	if err := e.store.CancelOrder(ctx, orderID, "no_driver_available"); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	ev, err := events.NewBaseEvent(events.CancelledBySystem, orderID, nil)
	if err != nil {
		return err
	}
	if _, err := e.log.Append(ctx, *ev); err != nil {
		return fmt.Errorf("publish cancellation order %s: %w", orderID, err)
	}
	return nil
}

// selectCandidate applies the full eligibility filter set and the
// (distance asc, rating desc) ranking, returning the single best candidate
// or nil.
func (e *Engine) selectCandidate(ctx context.Context, orderID string, pickup domain.Coordinates, now time.Time) (*domain.Driver, error) {
	ids, err := e.finder.DriversWithinRadius(ctx, pickup, e.cfg.SearchRadiusKM)
	if err != nil {
		return nil, err
	}

	var best *domain.Driver
	var bestDistance float64

	for _, id := range ids {
		driver, err := e.store.GetDriver(ctx, id)
		if err != nil || driver == nil {
			continue
		}
		if !driver.IsValidDriver || driver.LatestStatus != "ACTIVE" || driver.CurrentLocation == nil {
			continue
		}
		blacklisted, err := e.store.IsBlacklisted(ctx, orderID, id)
		if err != nil || blacklisted {
			continue
		}
		if !e.avail.IsAvailableBySchedule(ctx, id, now) {
			continue
		}

		distance := greatCircleKM(pickup, *driver.CurrentLocation)
		if distance > e.cfg.SearchRadiusKM {
			continue
		}

		if best == nil || closerOrBetterRated(distance, driver.AverageRating, bestDistance, best.AverageRating) {
			best = driver
			bestDistance = distance
		}
	}
	return best, nil
}

// closerOrBetterRated implements the (distance asc, rating desc) ordering.
func closerOrBetterRated(distance, rating, bestDistance, bestRating float64) bool {
	if distance != bestDistance {
		return distance < bestDistance
	}
	return rating > bestRating
}

// greatCircleKM is the haversine distance between two points in kilometers.
func greatCircleKM(a, b domain.Coordinates) float64 {
	return location.CalculateDistance(
		location.Location{Latitude: a.Lat, Longitude: a.Lon},
		location.Location{Latitude: b.Lat, Longitude: b.Lon},
		location.DistanceUnitKilometers,
	)
}
