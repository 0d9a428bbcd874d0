// Package billing implements the Billing Worker: the COMPLETED-event
// consumer that creates a driver payout transaction and hands it off to
// a PaymentGateway, plus the idempotent reconciliation operation for
// pending transactions.
package billing

import (
	"context"
	"log"
	"time"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
	"github.com/motocabz/dispatch-core/infrastructure/messaging"
)

const billingGroup = "billing_workers"

// Stream is the narrow slice of *eventlog.Log this package needs.
type Stream interface {
	EnsureGroup(ctx context.Context, group string) error
	ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error)
	Ack(ctx context.Context, group string, ids ...string) error
	ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error)
}

// Store is the persistence surface the Billing Worker needs.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)

	// ExistingDriverPaymentTransaction looks up a transaction matching
	// (order_id, driver_id, type=driver_payment, status in {pending,success})
	// for the payout idempotency check.
	ExistingDriverPaymentTransaction(ctx context.Context, orderID, driverID string) (*domain.OrderTransaction, error)

	// CreatePendingTransaction persists a new driver_payment transaction with
	// status=pending and a single history entry, in one DB transaction.
	CreatePendingTransaction(ctx context.Context, txn *domain.OrderTransaction) error

	// GetTransaction loads a transaction by id for reconciliation.
	GetTransaction(ctx context.Context, txnID string) (*domain.OrderTransaction, error)

	// UpdateTransactionStatus appends a history entry and sets status,
	// optionally setting transaction_reference and payment_date.
	UpdateTransactionStatus(ctx context.Context, txnID, status string, reference *string, paymentDate *time.Time) error
}

// Worker drives one consumer of billingGroup, filtering to COMPLETED
// events.
type Worker struct {
	stream      Stream
	store       Store
	gateway     domain.PaymentGateway
	idgen       func() string
	clock       domain.Clock
	consumer    string
	currency    string
	claimCursor string
	publisher   messaging.EventPublisher
}

// claimMinIdle is how long an entry must sit unacked in another consumer's
// pending list before a sibling may claim it.
const claimMinIdle = time.Minute

func NewWorker(stream Stream, store Store, gateway domain.PaymentGateway, idgen func() string, clock domain.Clock, consumerName, currency string) *Worker {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Worker{stream: stream, store: store, gateway: gateway, idgen: idgen, clock: clock, consumer: consumerName, currency: currency, claimCursor: "0-0"}
}

// SetEventPublisher wires the Billing Worker's outward fan-out of payout
// lifecycle changes to sibling services (client-facing payout history,
// company back-office reconciliation dashboards). A nil or never-set
// publisher leaves fan-out disabled; the internal assignment_events stream
// is unaffected either way.
func (w *Worker) SetEventPublisher(p messaging.EventPublisher) {
	w.publisher = p
}

func (w *Worker) publish(ctx context.Context, eventType string, payload interface{}) {
	if w.publisher == nil {
		return
	}
	event, err := messaging.NewEvent(eventType, common.ServicePayment, payload)
	if err != nil {
		log.Printf("⚠️ billing worker: build outward event %s: %v", eventType, err)
		return
	}
	if err := w.publisher.Publish(ctx, common.TopicPaymentEvents, event); err != nil {
		log.Printf("⚠️ billing worker: publish outward event %s: %v", eventType, err)
	}
}

// Run claims and processes COMPLETED events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, blockTimeout time.Duration, batchSize int64) {
	if err := w.stream.EnsureGroup(ctx, billingGroup); err != nil {
		log.Printf("❌ billing worker: ensure group: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		claimed, cursor, err := w.stream.ClaimStale(ctx, billingGroup, w.consumer, claimMinIdle, w.claimCursor, batchSize)
		if err != nil {
			log.Printf("⚠️ billing worker: claim stale: %v", err)
		} else {
			w.claimCursor = cursor
			for _, entry := range claimed {
				w.handle(ctx, entry)
			}
		}

		entries, err := w.stream.ReadGroup(ctx, billingGroup, w.consumer, batchSize, blockTimeout)
		if err != nil {
			log.Printf("❌ billing worker: read group: %v", err)
			continue
		}
		for _, entry := range entries {
			w.handle(ctx, entry)
		}
	}
}

// handle processes one entry and acks it only once the payout state is
// durable: the transaction committed, the event was irrelevant, or the
// failure is permanent. A transient failure leaves the entry pending for
// the claim sweep to redeliver.
func (w *Worker) handle(ctx context.Context, entry eventlog.Entry) {
	if entry.Event.Type == events.Completed {
		if err := w.processCompletion(ctx, entry.Event.OrderID, entry.Event.DriverID); err != nil {
			if !domain.IsPermanent(err) {
				log.Printf("⚠️ billing worker: completion order=%s driver=%s left unacked for redelivery: %v", entry.Event.OrderID, entry.Event.DriverID, err)
				return
			}
			log.Printf("⚠️ billing worker: completion order=%s driver=%s: %v", entry.Event.OrderID, entry.Event.DriverID, err)
		}
	}
	if err := w.stream.Ack(ctx, billingGroup, entry.ID); err != nil {
		log.Printf("⚠️ billing worker: ack %s: %v", entry.ID, err)
	}
}

// processCompletion runs the payout sequence for a single completed order:
// idempotency check, payout-account check, pending transaction, dispatch.
func (w *Worker) processCompletion(ctx context.Context, orderID, driverID string) error {
	existing, err := w.store.ExistingDriverPaymentTransaction(ctx, orderID, driverID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil // idempotency check: already pending or paid
	}

	order, err := w.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFoundf("order", orderID)
	}
	driver, err := w.store.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil {
		return domain.ErrNotFoundf("driver", driverID)
	}

	account := driver.ActiveMobileMoneyAccount()
	if account == nil {
		// Permanent: no payout destination, nothing to retry.
		return nil
	}

	now := w.clock.Now()
	txn := &domain.OrderTransaction{
		ID:            w.idgen(),
		DriverID:      driverID,
		OrderID:       orderID,
		Type:          common.TransactionTypeDriverPayment,
		PaymentMethod: account.Provider,
		Amount:        order.Remuneration,
		Currency:      w.currency,
		Status:        common.TransactionStatusPending,
		HistoryStatus: []domain.HistoryEntry{{Status: common.TransactionStatusPending, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := w.store.CreatePendingTransaction(ctx, txn); err != nil {
		return err
	}
	w.publish(ctx, "payment.pending", txn)

	// Fire-and-forget: the gateway's own callback/webhook is what finally
	// moves the transaction to success/failed.
	go func() {
		bgCtx := context.Background()
		if err := w.gateway.InitiatePayout(bgCtx, txn.ID, *account, txn.Amount, txn.Currency); err != nil {
			log.Printf("⚠️ billing worker: initiate payout txn=%s: %v", txn.ID, err)
		}
	}()
	return nil
}

// CheckAndUpdatePendingTransaction reconciles a single pending transaction
// against the gateway's authoritative status.
func (w *Worker) CheckAndUpdatePendingTransaction(ctx context.Context, txnID string) error {
	txn, err := w.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if txn == nil {
		return domain.ErrNotFoundf("transaction", txnID)
	}
	if txn.Status != common.TransactionStatusPending {
		return nil // already reconciled; idempotent no-op
	}
	if txn.TransactionReference == nil {
		return nil // gateway hasn't assigned a reference yet
	}

	status, err := w.gateway.CheckStatus(ctx, *txn.TransactionReference)
	if err != nil {
		return err
	}
	if status == common.TransactionStatusPending {
		return nil
	}

	var paymentDate *time.Time
	if status == common.TransactionStatusSuccess {
		now := w.clock.Now()
		paymentDate = &now
	}
	if err := w.store.UpdateTransactionStatus(ctx, txnID, status, txn.TransactionReference, paymentDate); err != nil {
		return err
	}
	w.publish(ctx, "payment."+status, txn)
	return nil
}
