package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Stripe charges the fee as a confirmed PaymentIntent.
type Stripe struct {
	sc            *stripe.Client
	paymentMethod string
}

// NewStripe returns a gateway using the given secret key.
func NewStripe(secretKey string, opts ...stripe.ClientOption) *Stripe {
	return &Stripe{
		sc:            stripe.NewClient(secretKey, opts...),
		paymentMethod: "pm_card_visa",
	}
}

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrDeclined)
	}
	params := &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod:      stripe.String(s.paymentMethod),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Confirm:            stripe.Bool(true),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	pi, err := s.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("stripe charge failed: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return pi.ID, fmt.Errorf("%w: payment intent %s is %s", ErrDeclined, pi.ID, pi.Status)
	}
	return pi.ID, nil
}

func (s *Stripe) Refund(ctx context.Context, reference string) error {
	_, err := s.sc.V1Refunds.Create(ctx, &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(reference),
	})
	if err != nil {
		return fmt.Errorf("stripe refund of %s failed: %w", reference, err)
	}
	return nil
}
