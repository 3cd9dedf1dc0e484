// Package enrollment runs the multi-step enrollment of a new student: room
// reservation, identity, student record, fee payment and fee back-link.
package enrollment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/payment"
	"hostel-management-backend/internal/store"
)

// Store is the part of the persistent store enrollment writes to.
type Store interface {
	AllotRoom(ctx context.Context, capacity int) (*model.Room, error)
	ReleaseRoom(ctx context.Context, roomID int64) error
	CreateStudent(ctx context.Context, student *model.Student) error
	RemoveStudent(ctx context.Context, id string) error
	CreatePayment(ctx context.Context, payment *model.Payment) error
	LinkFee(ctx context.Context, studentID string, paymentID int64) error
}

// Accounts creates and removes sign-in identities.
type Accounts interface {
	Register(ctx context.Context, email, password string, role model.Role, block *int) (*model.Account, error)
	Delete(ctx context.Context, id string) error
}

// Notifier queues outgoing notices.
type Notifier interface {
	Dispatch(n notification.Notice) bool
}

// Request is a new student's enrollment form.
type Request struct {
	Name     string `json:"name" validate:"required,max=128"`
	USN      string `json:"usn" validate:"required,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Capacity int    `json:"capacity" validate:"min=1,max=3"`
}

// Result is the receipt of a completed enrollment.
type Result struct {
	Student         *model.Student `json:"student"`
	Payment         *model.Payment `json:"payment"`
	Room            *model.Room    `json:"room"`
	BacklinkPending bool           `json:"backlink_pending"`
}

var validate = validator.New()

const (
	compensationTimeout = 30 * time.Second
	backlinkBackoff     = 100 * time.Millisecond
)

// Workflow runs enrollments as a saga: every completed step registers an
// undo action, and a failing step runs the registered undos newest first.
type Workflow struct {
	store    Store
	accounts Accounts
	gateway  payment.Gateway
	notifier Notifier
	cfg      config.EnrollmentConfig
	log      *logrus.Entry
}

// NewWorkflow wires a Workflow. notifier may be nil.
func NewWorkflow(s Store, accounts Accounts, gateway payment.Gateway, notifier Notifier, cfg config.EnrollmentConfig) *Workflow {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 10 * time.Second
	}
	if cfg.BacklinkAttempts <= 0 {
		cfg.BacklinkAttempts = 1
	}
	return &Workflow{
		store:    s,
		accounts: accounts,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		log:      logging.WithComponent("enrollment"),
	}
}

type undo struct {
	name string
	fn   func(ctx context.Context) error
}

// Enroll reserves a room and registers the student. On failure the returned
// error is an *Error and, unless compensation is disabled, every completed
// step has been rolled back.
func (w *Workflow) Enroll(ctx context.Context, req Request) (*Result, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.USN = strings.TrimSpace(req.USN)
	if err := validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Step: StepValidate, Err: err}
	}

	log := w.log.WithField("email", req.Email)
	var undos []undo

	var room *model.Room
	err := w.step(ctx, func(ctx context.Context) (err error) {
		room, err = w.store.AllotRoom(ctx, req.Capacity)
		return err
	})
	if err != nil {
		return nil, w.abort(ctx, log, undos, StepRoom, roomKind(err), err)
	}
	log = log.WithField("room_id", room.ID)
	undos = append(undos, undo{"release room", func(ctx context.Context) error {
		return w.store.ReleaseRoom(ctx, room.ID)
	}})

	var account *model.Account
	err = w.step(ctx, func(ctx context.Context) (err error) {
		account, err = w.accounts.Register(ctx, req.Email, req.Password, model.RoleStudent, nil)
		return err
	})
	if err != nil {
		return nil, w.abort(ctx, log, undos, StepIdentity, KindIdentityCreationFailed, err)
	}
	log = log.WithField("student_id", account.ID)
	undos = append(undos, undo{"delete identity", func(ctx context.Context) error {
		return w.accounts.Delete(ctx, account.ID)
	}})

	roomNo := room.ID
	student := &model.Student{
		ID:      account.ID,
		Name:    req.Name,
		USN:     req.USN,
		Email:   req.Email,
		RoomNo:  &roomNo,
		Arrived: false,
	}
	err = w.step(ctx, func(ctx context.Context) error {
		return w.store.CreateStudent(ctx, student)
	})
	if err != nil {
		return nil, w.abort(ctx, log, undos, StepStudent, KindStudentRecordFailed, err)
	}
	undos = append(undos, undo{"delete student", func(ctx context.Context) error {
		return w.store.RemoveStudent(ctx, student.ID)
	}})

	var reference string
	err = w.step(ctx, func(ctx context.Context) (err error) {
		reference, err = w.gateway.Charge(ctx, payment.ChargeRequest{
			Email:       req.Email,
			Amount:      w.cfg.FeeAmount,
			Currency:    w.cfg.Currency,
			Description: "Hostel fee for " + req.USN,
		})
		return err
	})
	if err != nil {
		return nil, w.abort(ctx, log, undos, StepPayment, KindPaymentRecordFailed, err)
	}
	undos = append(undos, undo{"refund charge", func(ctx context.Context) error {
		return w.gateway.Refund(ctx, reference)
	}})

	pay := &model.Payment{
		StudentID:  student.ID,
		AmountPaid: w.cfg.FeeAmount,
		Status:     model.PaymentSuccessful,
		Reference:  reference,
	}
	err = w.step(ctx, func(ctx context.Context) error {
		return w.store.CreatePayment(ctx, pay)
	})
	if err != nil {
		return nil, w.abort(ctx, log, undos, StepPayment, KindPaymentRecordFailed, err)
	}
	log = log.WithField("payment_id", pay.ID)

	result := &Result{Student: student, Payment: pay, Room: room}
	if err := w.linkFee(ctx, student.ID, pay.ID); err != nil {
		result.BacklinkPending = true
		log.WithError(&Error{Kind: KindBacklinkUpdateFailed, Step: StepBacklink, Err: err}).
			Warn("Fee back-link deferred to reconciler")
	} else {
		feeID := pay.ID
		student.FeeID = &feeID
	}

	log.Info("Enrollment completed")
	if w.notifier != nil {
		w.notifier.Dispatch(notification.ReceiptNotice(student, pay, room))
	}
	return result, nil
}

// step runs fn under the per-step timeout.
func (w *Workflow) step(ctx context.Context, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, w.cfg.StepTimeout)
	defer cancel()
	return fn(stepCtx)
}

func (w *Workflow) linkFee(ctx context.Context, studentID string, paymentID int64) error {
	var err error
	for attempt := 1; attempt <= w.cfg.BacklinkAttempts; attempt++ {
		err = w.step(ctx, func(ctx context.Context) error {
			return w.store.LinkFee(ctx, studentID, paymentID)
		})
		if err == nil || ctx.Err() != nil {
			return err
		}
		if attempt < w.cfg.BacklinkAttempts {
			select {
			case <-time.After(time.Duration(attempt) * backlinkBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// abort runs the registered undos newest first and returns the step failure.
// Undo failures are logged and never replace the original error.
func (w *Workflow) abort(ctx context.Context, log *logrus.Entry, undos []undo, step string, kind Kind, cause error) error {
	if isTimeout(cause) || ctx.Err() != nil {
		kind = KindNetworkOrTimeout
	}
	failure := &Error{Kind: kind, Step: step, Err: cause}
	log = log.WithField("step", step).WithField("kind", kind)
	log.WithError(cause).Warn("Enrollment step failed")

	if len(undos) == 0 {
		return failure
	}
	if w.cfg.DisableCompensation {
		log.Warn("Compensation disabled, completed steps are left in place")
		return failure
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i].fn(cctx); err != nil {
			log.WithError(err).WithField("undo", undos[i].name).Error("Compensation failed")
		}
	}
	return failure
}

func roomKind(err error) Kind {
	switch {
	case errors.Is(err, store.ErrNoRoomAvailable):
		return KindNoRoomAvailable
	case errors.Is(err, store.ErrConstraintViolation):
		return KindConstraintViolation
	default:
		return KindNetworkOrTimeout
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

