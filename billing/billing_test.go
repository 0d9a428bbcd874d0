package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/eventlog"
	"github.com/motocabz/dispatch-core/events"
)

type fakeStream struct {
	acked []string
}

func (s *fakeStream) EnsureGroup(ctx context.Context, group string) error { return nil }
func (s *fakeStream) ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error) {
	return nil, nil
}
func (s *fakeStream) Ack(ctx context.Context, group string, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}
func (s *fakeStream) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, cursor string, count int64) ([]eventlog.Entry, string, error) {
	return nil, cursor, nil
}

type fakeStore struct {
	existing     *domain.OrderTransaction
	existingErr  error
	order        *domain.Order
	driver       *domain.Driver
	created      *domain.OrderTransaction
	txn          *domain.OrderTransaction
	updateStatus string
}

func (s *fakeStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) { return s.order, nil }
func (s *fakeStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	return s.driver, nil
}
func (s *fakeStore) ExistingDriverPaymentTransaction(ctx context.Context, orderID, driverID string) (*domain.OrderTransaction, error) {
	return s.existing, s.existingErr
}
func (s *fakeStore) CreatePendingTransaction(ctx context.Context, txn *domain.OrderTransaction) error {
	s.created = txn
	return nil
}
func (s *fakeStore) GetTransaction(ctx context.Context, txnID string) (*domain.OrderTransaction, error) {
	return s.txn, nil
}
func (s *fakeStore) UpdateTransactionStatus(ctx context.Context, txnID, status string, reference *string, paymentDate *time.Time) error {
	s.updateStatus = status
	return nil
}

type fakeGateway struct {
	status string
}

func (g *fakeGateway) InitiatePayout(ctx context.Context, txnID string, account domain.MobileMoneyAccount, amount int64, currency string) error {
	return nil
}
func (g *fakeGateway) CheckStatus(ctx context.Context, reference string) (string, error) {
	return g.status, nil
}

func TestProcessCompletion_SkipsIfTransactionExists(t *testing.T) {
	store := &fakeStore{existing: &domain.OrderTransaction{ID: "t1"}}
	w := NewWorker(&fakeStream{}, store, &fakeGateway{}, func() string { return "t2" }, domain.SystemClock{}, "c1", "ETB")

	require.NoError(t, w.processCompletion(context.Background(), "o1", "d1"))
	require.Nil(t, store.created)
}

func TestProcessCompletion_SkipsIfNoActiveAccount(t *testing.T) {
	store := &fakeStore{
		order:  &domain.Order{ID: "o1", Remuneration: 1000},
		driver: &domain.Driver{ID: "d1"},
	}
	w := NewWorker(&fakeStream{}, store, &fakeGateway{}, func() string { return "t2" }, domain.SystemClock{}, "c1", "ETB")

	require.NoError(t, w.processCompletion(context.Background(), "o1", "d1"))
	require.Nil(t, store.created)
}

func TestProcessCompletion_CreatesPendingTransaction(t *testing.T) {
	store := &fakeStore{
		order: &domain.Order{ID: "o1", Remuneration: 1000},
		driver: &domain.Driver{ID: "d1", MobileMoney: []domain.MobileMoneyAccount{
			{Provider: "telebirr", Number: "0911", Status: "active"},
		}},
	}
	w := NewWorker(&fakeStream{}, store, &fakeGateway{}, func() string { return "t2" }, domain.SystemClock{}, "c1", "ETB")

	require.NoError(t, w.processCompletion(context.Background(), "o1", "d1"))
	require.NotNil(t, store.created)
	require.Equal(t, common.TransactionStatusPending, store.created.Status)
	require.Equal(t, int64(1000), store.created.Amount)
	require.Equal(t, "telebirr", store.created.PaymentMethod)
	require.Len(t, store.created.HistoryStatus, 1)
}

func TestHandle_IgnoresNonCompletedEvents(t *testing.T) {
	stream := &fakeStream{}
	store := &fakeStore{}
	w := NewWorker(stream, store, &fakeGateway{}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	ev, _ := events.NewBaseEvent(events.OfferRefusedByDriver, "o1", nil)
	w.handle(context.Background(), eventlog.Entry{ID: "1-1", Event: *ev})
	require.Equal(t, []string{"1-1"}, stream.acked)
	require.Nil(t, store.created)
}

func TestHandle_AcksCompletedOnceTransactionCommitted(t *testing.T) {
	stream := &fakeStream{}
	store := &fakeStore{
		order: &domain.Order{ID: "o1", Remuneration: 1000},
		driver: &domain.Driver{ID: "d1", MobileMoney: []domain.MobileMoneyAccount{
			{Provider: "telebirr", Number: "0911", Status: "active"},
		}},
	}
	w := NewWorker(stream, store, &fakeGateway{}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	ev, _ := events.NewBaseEvent(events.Completed, "o1", nil)
	ev.DriverID = "d1"
	w.handle(context.Background(), eventlog.Entry{ID: "1-1", Event: *ev})
	require.NotNil(t, store.created)
	require.Equal(t, []string{"1-1"}, stream.acked)
}

func TestHandle_TransientFailureLeavesUnacked(t *testing.T) {
	stream := &fakeStream{}
	store := &fakeStore{existingErr: context.DeadlineExceeded}
	w := NewWorker(stream, store, &fakeGateway{}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	ev, _ := events.NewBaseEvent(events.Completed, "o1", nil)
	ev.DriverID = "d1"
	w.handle(context.Background(), eventlog.Entry{ID: "1-1", Event: *ev})
	require.Empty(t, stream.acked, "a transient failure must stay pending for redelivery")
	require.Nil(t, store.created)
}

func TestHandle_MissingOrderIsPermanentAndAcked(t *testing.T) {
	stream := &fakeStream{}
	store := &fakeStore{} // GetOrder returns nil: the order no longer exists
	w := NewWorker(stream, store, &fakeGateway{}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	ev, _ := events.NewBaseEvent(events.Completed, "o-gone", nil)
	ev.DriverID = "d1"
	w.handle(context.Background(), eventlog.Entry{ID: "1-1", Event: *ev})
	require.Equal(t, []string{"1-1"}, stream.acked, "not-found is permanent; redelivery cannot change it")
}

func TestCheckAndUpdatePendingTransaction_UpdatesOnSuccess(t *testing.T) {
	ref := "tr_123"
	store := &fakeStore{txn: &domain.OrderTransaction{ID: "t1", Status: common.TransactionStatusPending, TransactionReference: &ref}}
	w := NewWorker(&fakeStream{}, store, &fakeGateway{status: "success"}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	require.NoError(t, w.CheckAndUpdatePendingTransaction(context.Background(), "t1"))
	require.Equal(t, "success", store.updateStatus)
}

func TestCheckAndUpdatePendingTransaction_NoopIfAlreadySettled(t *testing.T) {
	store := &fakeStore{txn: &domain.OrderTransaction{ID: "t1", Status: common.TransactionStatusSuccess}}
	w := NewWorker(&fakeStream{}, store, &fakeGateway{status: "success"}, func() string { return "t" }, domain.SystemClock{}, "c1", "ETB")

	require.NoError(t, w.CheckAndUpdatePendingTransaction(context.Background(), "t1"))
	require.Empty(t, store.updateStatus)
}
