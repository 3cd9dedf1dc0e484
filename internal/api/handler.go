// Package api exposes the public, student, warden and admin HTTP endpoints.
package api

import (
	"context"
	"io"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"hostel-management-backend/internal/enrollment"
	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/store"
)

// Enroller runs the enrollment workflow.
type Enroller interface {
	Enroll(ctx context.Context, req enrollment.Request) (*enrollment.Result, error)
}

// Accounts signs callers in and creates staff accounts.
type Accounts interface {
	Authenticate(ctx context.Context, email, password string) (*model.Account, error)
	Register(ctx context.Context, email, password string, role model.Role, block *int) (*model.Account, error)
}

// Tokens issues and verifies access tokens.
type Tokens interface {
	Issue(account *model.Account) (string, *identity.Claims, error)
	Parse(token string) (*identity.Claims, error)
	TTL() time.Duration
}

// AvatarUploader stores avatar images and returns their URL.
type AvatarUploader interface {
	Upload(ctx context.Context, studentID string, body io.Reader, contentType string) (string, error)
}

// Notifier queues outgoing notices.
type Notifier interface {
	Dispatch(n notification.Notice) bool
}

// Options are the Handler's collaborators. Notifier, Avatars and WebPush are optional.
type Options struct {
	Store          store.Store
	Enroller       Enroller
	Accounts       Accounts
	Tokens         Tokens
	Revoker        identity.Revoker
	Notifier       Notifier
	Avatars        AvatarUploader
	WebPush        *webpush.Options
	MaxUploadBytes int64
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	enroller  Enroller
	accounts  Accounts
	tokens    Tokens
	revoker   identity.Revoker
	notifier  Notifier
	avatars   AvatarUploader
	webpush   *webpush.Options
	maxUpload int64
	now       func() time.Time
	log       *logrus.Entry
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Handler{
		store:     opts.Store,
		enroller:  opts.Enroller,
		accounts:  opts.Accounts,
		tokens:    opts.Tokens,
		revoker:   opts.Revoker,
		notifier:  opts.Notifier,
		avatars:   opts.Avatars,
		webpush:   opts.WebPush,
		maxUpload: maxUpload,
		now:       time.Now,
		log:       logging.WithComponent("api"),
	}
}

func (h *Handler) notify(n notification.Notice) {
	if h.notifier == nil {
		return
	}
	if !h.notifier.Dispatch(n) {
		h.log.WithField("student_id", n.StudentID).Warn("Notification queue full, notice dropped")
	}
}
