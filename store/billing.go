package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	common "github.com/motocabz/dispatch-core"
	"github.com/motocabz/dispatch-core/domain"
)

const transactionColumns = `SELECT
	id, driver_id, order_id, company_id, type, payment_method, amount, currency,
	status, transaction_reference, history_status, metadata, payment_date,
	created_at, updated_at`

// ExistingDriverPaymentTransaction implements the Billing Worker's
// idempotency check: a transaction for this
// (order, driver) pair already pending or paid means processCompletion
// has already run for this order.
func (s *Store) ExistingDriverPaymentTransaction(ctx context.Context, orderID, driverID string) (*domain.OrderTransaction, error) {
	row := s.pool.QueryRow(ctx, transactionColumns+`
		FROM order_transactions
		WHERE order_id = $1 AND driver_id = $2 AND type = $3 AND status IN ($4, $5)
		ORDER BY created_at DESC LIMIT 1`,
		orderID, driverID, common.TransactionTypeDriverPayment, common.TransactionStatusPending, common.TransactionStatusSuccess)
	return scanTransaction(row)
}

// GetTransaction loads a transaction by id for reconciliation, or nil if
// it doesn't exist.
func (s *Store) GetTransaction(ctx context.Context, txnID string) (*domain.OrderTransaction, error) {
	row := s.pool.QueryRow(ctx, transactionColumns+` FROM order_transactions WHERE id = $1`, txnID)
	return scanTransaction(row)
}

func scanTransaction(row rowScanner) (*domain.OrderTransaction, error) {
	var t domain.OrderTransaction
	var history, metadata []byte
	err := row.Scan(
		&t.ID, &t.DriverID, &t.OrderID, &t.CompanyID, &t.Type, &t.PaymentMethod, &t.Amount, &t.Currency,
		&t.Status, &t.TransactionReference, &history, &metadata, &t.PaymentDate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan transaction: %w", err)
	}
	if err := unmarshalJSON(history, &t.HistoryStatus); err != nil {
		return nil, fmt.Errorf("store: unmarshal transaction history: %w", err)
	}
	if err := unmarshalJSON(metadata, &t.Metadata); err != nil {
		return nil, fmt.Errorf("store: unmarshal transaction metadata: %w", err)
	}
	return &t, nil
}

// CreatePendingTransaction persists a new driver_payment transaction with
// its initial history entry.
func (s *Store) CreatePendingTransaction(ctx context.Context, txn *domain.OrderTransaction) error {
	history, err := marshalJSON(txn.HistoryStatus)
	if err != nil {
		return fmt.Errorf("store: marshal transaction history: %w", err)
	}
	metadata, err := marshalJSON(txn.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal transaction metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO order_transactions (
			id, driver_id, order_id, company_id, type, payment_method, amount,
			currency, status, transaction_reference, history_status, metadata,
			payment_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		txn.ID, txn.DriverID, txn.OrderID, txn.CompanyID, txn.Type, txn.PaymentMethod, txn.Amount,
		txn.Currency, txn.Status, txn.TransactionReference, history, metadata,
		txn.PaymentDate, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert pending transaction: %w", err)
	}
	return nil
}

// UpdateTransactionStatus appends a history entry and sets status,
// optionally recording the gateway's reference and payment date (reconciliation operation).
func (s *Store) UpdateTransactionStatus(ctx context.Context, txnID, status string, reference *string, paymentDate *time.Time) error {
	return s.withTx(ctx, "UpdateTransactionStatus", func(ctx context.Context, tx pgx.Tx) error {
		var historyRaw []byte
		err := tx.QueryRow(ctx, `SELECT history_status FROM order_transactions WHERE id = $1 FOR UPDATE`, txnID).Scan(&historyRaw)
		if err == pgx.ErrNoRows {
			return domain.ErrNotFoundf("transaction", txnID)
		}
		if err != nil {
			return fmt.Errorf("store: lock transaction: %w", err)
		}

		var history []domain.HistoryEntry
		if err := unmarshalJSON(historyRaw, &history); err != nil {
			return fmt.Errorf("store: unmarshal transaction history: %w", err)
		}
		history = append(history, domain.HistoryEntry{Status: status, Timestamp: time.Now().UTC()})

		encoded, err := marshalJSON(history)
		if err != nil {
			return fmt.Errorf("store: marshal transaction history: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE order_transactions SET
				status = $2, transaction_reference = COALESCE($3, transaction_reference),
				payment_date = COALESCE($4, payment_date), history_status = $5, updated_at = $6
			WHERE id = $1`, txnID, status, reference, paymentDate, encoded, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("store: update transaction status: %w", err)
		}
		return nil
	})
}
