package assignment

import (
	"context"
	"log"
	"time"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
)

// Expirer is the offer-expiration sub-loop: every
// OFFER_EXPIRATION_SCAN_INTERVAL_MS, scan orders whose offer has lapsed and
// publish OFFER_EXPIRED_FOR_DRIVER for each.
type Expirer struct {
	store    Store
	log      EventLog
	interval time.Duration
	clock    domain.Clock
}

func NewExpirer(store Store, log EventLog, interval time.Duration, clock domain.Clock) *Expirer {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Expirer{store: store, log: log, interval: interval, clock: clock}
}

func (e *Expirer) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Expirer) sweep(ctx context.Context) {
	expired, err := e.store.ExpireOffers(ctx, e.clock.Now())
	if err != nil {
		log.Printf("❌ assignment expirer: sweep failed: %v", err)
		return
	}
	for _, x := range expired {
		ev, err := events.NewBaseEvent(events.OfferExpiredForDriver, x.OrderID, nil)
		if err != nil {
			continue
		}
		ev.DriverID = x.DriverID
		if _, err := e.log.Append(ctx, *ev); err != nil {
			log.Printf("❌ assignment expirer: publish expiry order=%s driver=%s: %v", x.OrderID, x.DriverID, err)
		}
	}
}
