package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hostel-management-backend/internal/model"
)

func (s *gormStore) CreateAccount(ctx context.Context, account *model.Account) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return classify(fmt.Errorf("failed to create account: %w", err))
	}
	return nil
}

func (s *gormStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, classify(err)
	}
	return &account, nil
}

func (s *gormStore) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&account).Error
	if err != nil {
		return nil, classify(err)
	}
	return &account, nil
}

func (s *gormStore) SetAccountRole(ctx context.Context, id string, role model.Role, block *int) error {
	res := s.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "block_id": block})
	if res.Error != nil {
		return fmt.Errorf("failed to set account role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteAccount(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Account{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
