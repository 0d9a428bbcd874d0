package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/transfer"

	"github.com/motocabz/dispatch-core/domain"
)

// StripeGateway is the concrete domain.PaymentGateway backed by Stripe
// Connect transfers to a driver's connected mobile-money-linked account.
type StripeGateway struct {
	apiKey string
}

func NewStripeGateway(apiKey string) *StripeGateway {
	return &StripeGateway{apiKey: apiKey}
}

// InitiatePayout creates a Stripe transfer for the given amount (minor
// currency units) to the driver's connected account.
func (g *StripeGateway) InitiatePayout(ctx context.Context, txnID string, account domain.MobileMoneyAccount, amount int64, currency string) error {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(account.Number),
	}
	params.AddMetadata("txn_id", txnID)
	params.AddMetadata("provider", account.Provider)
	params.Context = ctx
	stripe.Key = g.apiKey

	_, err := transfer.New(params)
	if err != nil {
		return fmt.Errorf("billing: stripe transfer for txn %s: %w", txnID, err)
	}
	return nil
}

// CheckStatus resolves a Stripe transfer id to one of pending|success|failed.
// Stripe transfers have no intermediate state once created; a successfully
// retrieved transfer that has not been reversed is treated as settled.
func (g *StripeGateway) CheckStatus(ctx context.Context, reference string) (string, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx
	stripe.Key = g.apiKey

	tr, err := transfer.Get(reference, params)
	if err != nil {
		return "", fmt.Errorf("billing: stripe transfer lookup %s: %w", reference, err)
	}
	if tr.Reversed {
		return "failed", nil
	}
	return "success", nil
}
