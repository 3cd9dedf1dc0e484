// Package identity is the built-in identity provider: accounts with bcrypt
// password hashes, signed access tokens and token revocation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/store"
)

const MinPasswordLength = 6

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoRole             = errors.New("account has no usable role")
)

var validate = validator.New()

// Provider creates, authenticates and deletes accounts.
type Provider struct {
	accounts store.AccountStore
	cost     int
}

// NewProvider returns a Provider hashing passwords with the given bcrypt cost.
func NewProvider(accounts store.AccountStore, cost int) *Provider {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Provider{accounts: accounts, cost: cost}
}

// Register creates an account. The returned account ID doubles as the
// student ID for student accounts.
func (p *Provider) Register(ctx context.Context, email, password string, role model.Role, block *int) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if role == model.RoleWarden && (block == nil || !model.ValidHostelID(*block)) {
		return nil, errors.New("warden accounts need a hostel block between 1 and 5")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		BlockID:      block,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return account, nil
}

// Authenticate verifies the credentials. Accounts stored without a role get
// one from LegacyRole on first sign-in, and it is persisted.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	account, err := p.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if account.Role == "" {
		role, block, ok := LegacyRole(account.Email)
		if !ok {
			return nil, ErrNoRole
		}
		if err := p.accounts.SetAccountRole(ctx, account.ID, role, block); err != nil {
			return nil, fmt.Errorf("failed to persist role: %w", err)
		}
		logging.WithComponent("identity").
			WithField("account_id", account.ID).
			WithField("role", role).
			Info("Assigned role to legacy account")
		account.Role, account.BlockID = role, block
	}
	return account, nil
}

// Delete removes an account.
func (p *Provider) Delete(ctx context.Context, id string) error {
	return p.accounts.DeleteAccount(ctx, id)
}

// EnsureAdmin creates the admin account if no account uses the email yet.
func (p *Provider) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	if _, err := p.accounts.FindAccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err := p.Register(ctx, email, password, model.RoleAdmin, nil); err != nil && !errors.Is(err, ErrEmailExists) {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	logging.WithComponent("identity").WithField("email", email).Info("Bootstrap admin ensured")
	return nil
}
