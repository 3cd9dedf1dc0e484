package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"hostel-management-backend/internal/model"
)

// SaveSubscription creates or replaces the keys of a push subscription.
// An endpoint already owned by another student is taken over.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "student_id"}),
	}).Create(sub).Error
	if err != nil {
		return classify(fmt.Errorf("failed to save subscription: %w", err))
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint, studentID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND student_id = ?", endpoint, studentID).
		First(&sub).Error
	if err != nil {
		return nil, classify(err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint, studentID string) error {
	res := s.db.WithContext(ctx).
		Where("endpoint = ? AND student_id = ?", endpoint, studentID).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) StudentSubscriptions(ctx context.Context, studentID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// ExpireSubscription drops an endpoint the push service reported as gone.
func (s *gormStore) ExpireSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete expired subscription: %w", err)
	}
	return nil
}
