package services

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeBilling implements BillingClient with Stripe Checkout.
type StripeBilling struct {
	successURL string
	cancelURL  string
}

// NewStripeBilling reads the Stripe key and redirect URLs from the
// environment. STRIPE_SECRET_KEY must be set.
func NewStripeBilling() (*StripeBilling, error) {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is not set")
	}
	stripe.Key = key

	successURL := os.Getenv("BILLING_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://app.roofrewards.io/billing/success"
	}
	cancelURL := os.Getenv("BILLING_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "https://app.roofrewards.io/billing/cancel"
	}
	return &StripeBilling{successURL: successURL, cancelURL: cancelURL}, nil
}

// CreateCheckout opens a one-off payment session for a wallet top-up
// and returns the hosted checkout URL. The account ID rides along as
// the client reference so the webhook can credit the right wallet.
func (b *StripeBilling) CreateCheckout(ctx context.Context, accountID string, amountCents int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(b.successURL),
		CancelURL:         stripe.String(b.cancelURL),
		ClientReferenceID: stripe.String(accountID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Wallet top-up"),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}
