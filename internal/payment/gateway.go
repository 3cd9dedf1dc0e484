// Package payment charges and refunds the enrollment fee.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"hostel-management-backend/config"
)

var ErrDeclined = errors.New("payment declined")

// ChargeRequest describes one fee charge.
type ChargeRequest struct {
	Email       string
	Amount      float64
	Currency    string
	Description string
}

// Gateway moves money. Charge returns the provider's reference for the
// charge, which Refund accepts.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (string, error)
	Refund(ctx context.Context, reference string) error
}

// New builds the gateway selected in the configuration.
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case config.PaymentProviderSimulated, "":
		return NewSimulated(), nil
	case config.PaymentProviderStripe:
		return NewStripe(cfg.StripeSecretKey), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// Simulated accepts every positive charge without contacting anyone.
type Simulated struct {
	mu       sync.Mutex
	refunded map[string]bool
}

func NewSimulated() *Simulated {
	return &Simulated{refunded: map[string]bool{}}
}

func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrDeclined)
	}
	return "sim_" + uuid.NewString(), nil
}

func (s *Simulated) Refund(ctx context.Context, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunded[reference] = true
	return nil
}

// Refunded reports whether Refund was called for the reference.
func (s *Simulated) Refunded(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunded[reference]
}
