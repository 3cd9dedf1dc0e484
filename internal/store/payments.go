package store

import (
	"context"
	"fmt"
	"time"

	"hostel-management-backend/internal/model"
)

// CreatePayment inserts a payment row. Payments are append-only.
func (s *gormStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if payment.AmountPaid <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", ErrConstraintViolation)
	}
	if payment.Status == "" {
		payment.Status = model.PaymentSuccessful
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return classify(fmt.Errorf("failed to create payment: %w", err))
	}
	return nil
}

func (s *gormStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error) {
	q := s.db.WithContext(ctx).Model(&model.Payment{})
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	var payments []model.Payment
	if err := q.Order("id").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
