package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/db"
	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/payment"
	"hostel-management-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

func testConfig() config.EnrollmentConfig {
	return config.EnrollmentConfig{
		FeeAmount:        1,
		Currency:         "inr",
		StepTimeout:      2 * time.Second,
		BacklinkAttempts: 2,
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (r *recordingNotifier) Dispatch(n notification.Notice) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return true
}

// flakyStore injects failures into selected store calls.
type flakyStore struct {
	store.Store
	failCreateStudent bool
	failCreatePayment bool
	failLinkFee       bool
}

func (f *flakyStore) CreateStudent(ctx context.Context, s *model.Student) error {
	if f.failCreateStudent {
		return fmt.Errorf("%w: usn taken", store.ErrConstraintViolation)
	}
	return f.Store.CreateStudent(ctx, s)
}

func (f *flakyStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	if f.failCreatePayment {
		return errors.New("payments table unavailable")
	}
	return f.Store.CreatePayment(ctx, p)
}

func (f *flakyStore) LinkFee(ctx context.Context, studentID string, paymentID int64) error {
	if f.failLinkFee {
		return errors.New("connection reset")
	}
	return f.Store.LinkFee(ctx, studentID, paymentID)
}

type decliningGateway struct{ payment.Simulated }

func (d *decliningGateway) Charge(context.Context, payment.ChargeRequest) (string, error) {
	return "", payment.ErrDeclined
}

type hangingGateway struct{ payment.Simulated }

func (h *hangingGateway) Charge(ctx context.Context, _ payment.ChargeRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fixture struct {
	store    store.Store
	accounts *identity.Provider
	gateway  *payment.Simulated
	notifier *recordingNotifier
}

func newFixture(t *testing.T, rooms ...model.Room) *fixture {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.InsertRooms(context.Background(), rooms))
	return &fixture{
		store:    s,
		accounts: identity.NewProvider(s, bcrypt.MinCost),
		gateway:  payment.NewSimulated(),
		notifier: &recordingNotifier{},
	}
}

func (f *fixture) occupancy(t *testing.T, roomID int64) int {
	t.Helper()
	room, err := f.store.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return room.CurrentOccupancy
}

func request(n int, capacity int) Request {
	return Request{
		Name:     fmt.Sprintf("Student %d", n),
		USN:      fmt.Sprintf("1RV22CS%03d", n),
		Email:    fmt.Sprintf("student%d@college.edu", n),
		Password: "secret1",
		Capacity: capacity,
	}
}

func TestEnroll_Success(t *testing.T) {
	f := newFixture(t, model.Room{ID: 101, HostelID: 1, Capacity: 2})
	w := NewWorkflow(f.store, f.accounts, f.gateway, f.notifier, testConfig())

	res, err := w.Enroll(context.Background(), request(1, 2))
	require.NoError(t, err)

	assert.Equal(t, int64(101), res.Room.ID)
	assert.False(t, res.BacklinkPending)
	assert.False(t, res.Student.Arrived)
	assert.Equal(t, model.PaymentSuccessful, res.Payment.Status)
	assert.Equal(t, 1.0, res.Payment.AmountPaid)
	require.NotNil(t, res.Student.FeeID)
	assert.Equal(t, res.Payment.ID, *res.Student.FeeID)
	assert.Equal(t, 1, f.occupancy(t, 101))

	stored, err := f.store.GetStudent(context.Background(), res.Student.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RoomNo)
	assert.Equal(t, int64(101), *stored.RoomNo)
	assert.Equal(t, res.Payment.ID, *stored.FeeID)

	acct, err := f.accounts.Authenticate(context.Background(), "student1@college.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.Student.ID, acct.ID)
	assert.Equal(t, model.RoleStudent, acct.Role)

	require.Len(t, f.notifier.notices, 1)
	assert.Contains(t, f.notifier.notices[0].Subject, res.Payment.ReceiptID())
}

func TestEnroll_TwoSeaterScenario(t *testing.T) {
	f := newFixture(t, model.Room{ID: 201, HostelID: 2, Capacity: 2})
	w := NewWorkflow(f.store, f.accounts, f.gateway, nil, testConfig())
	ctx := context.Background()

	_, err := w.Enroll(ctx, request(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, f.occupancy(t, 201))

	_, err = w.Enroll(ctx, request(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, f.occupancy(t, 201))

	_, err = w.Enroll(ctx, request(3, 2))
	var enrollErr *Error
	require.ErrorAs(t, err, &enrollErr)
	assert.Equal(t, KindNoRoomAvailable, enrollErr.Kind)
	assert.Equal(t, StepRoom, enrollErr.Step)
	assert.Equal(t, 2, f.occupancy(t, 201))
}

func TestEnroll_IdentityFailureCompensation(t *testing.T) {
	testCases := []struct {
		name          string
		disable       bool
		wantOccupancy int
	}{
		{name: "compensated by default", wantOccupancy: 1},
		{name: "compensation disabled keeps the slot", disable: true, wantOccupancy: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, model.Room{ID: 301, HostelID: 3, Capacity: 3})
			cfg := testConfig()
			cfg.DisableCompensation = tc.disable
			w := NewWorkflow(f.store, f.accounts, f.gateway, nil, cfg)
			ctx := context.Background()

			_, err := w.Enroll(ctx, request(1, 3))
			require.NoError(t, err)

			dup := request(2, 3)
			dup.Email = "student1@college.edu"
			_, err = w.Enroll(ctx, dup)

			var enrollErr *Error
			require.ErrorAs(t, err, &enrollErr)
			assert.Equal(t, KindIdentityCreationFailed, enrollErr.Kind)
			assert.ErrorIs(t, err, identity.ErrEmailExists)
			assert.Equal(t, tc.wantOccupancy, f.occupancy(t, 301))
		})
	}
}

func TestEnroll_StudentRecordFailureRemovesIdentity(t *testing.T) {
	f := newFixture(t, model.Room{ID: 1, HostelID: 1, Capacity: 1})
	w := NewWorkflow(&flakyStore{Store: f.store, failCreateStudent: true}, f.accounts, f.gateway, nil, testConfig())

	_, err := w.Enroll(context.Background(), request(1, 1))
	var enrollErr *Error
	require.ErrorAs(t, err, &enrollErr)
	assert.Equal(t, KindStudentRecordFailed, enrollErr.Kind)
	assert.ErrorIs(t, err, store.ErrConstraintViolation)

	assert.Equal(t, 0, f.occupancy(t, 1))
	_, err = f.store.FindAccountByEmail(context.Background(), "student1@college.edu")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnroll_PaymentFailures(t *testing.T) {
	t.Run("declined charge", func(t *testing.T) {
		f := newFixture(t, model.Room{ID: 1, HostelID: 1, Capacity: 1})
		w := NewWorkflow(f.store, f.accounts, &decliningGateway{}, nil, testConfig())

		_, err := w.Enroll(context.Background(), request(1, 1))
		var enrollErr *Error
		require.ErrorAs(t, err, &enrollErr)
		assert.Equal(t, KindPaymentRecordFailed, enrollErr.Kind)
		assert.ErrorIs(t, err, payment.ErrDeclined)

		students, err := f.store.ListStudents(context.Background(), store.StudentFilter{})
		require.NoError(t, err)
		assert.Empty(t, students)
		assert.Equal(t, 0, f.occupancy(t, 1))
	})

	t.Run("payment row not written refunds the charge", func(t *testing.T) {
		f := newFixture(t, model.Room{ID: 1, HostelID: 1, Capacity: 1})
		gw := &refundTracker{}
		w := NewWorkflow(&flakyStore{Store: f.store, failCreatePayment: true}, f.accounts, gw, nil, testConfig())

		_, err := w.Enroll(context.Background(), request(1, 1))
		var enrollErr *Error
		require.ErrorAs(t, err, &enrollErr)
		assert.Equal(t, KindPaymentRecordFailed, enrollErr.Kind)
		require.NotEmpty(t, gw.charged)
		assert.Equal(t, gw.charged, gw.refunded)
		assert.Equal(t, 0, f.occupancy(t, 1))
		_, err = f.store.FindAccountByEmail(context.Background(), "student1@college.edu")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

type refundTracker struct {
	charged  string
	refunded string
}

func (r *refundTracker) Charge(context.Context, payment.ChargeRequest) (string, error) {
	r.charged = "sim_tracked"
	return r.charged, nil
}

func (r *refundTracker) Refund(_ context.Context, reference string) error {
	r.refunded = reference
	return nil
}

func TestEnroll_StepTimeout(t *testing.T) {
	f := newFixture(t, model.Room{ID: 1, HostelID: 1, Capacity: 1})
	cfg := testConfig()
	cfg.StepTimeout = 50 * time.Millisecond
	w := NewWorkflow(f.store, f.accounts, &hangingGateway{}, nil, cfg)

	_, err := w.Enroll(context.Background(), request(1, 1))
	var enrollErr *Error
	require.ErrorAs(t, err, &enrollErr)
	assert.Equal(t, KindNetworkOrTimeout, enrollErr.Kind)
	assert.Equal(t, StepPayment, enrollErr.Step)
	assert.Equal(t, 0, f.occupancy(t, 1))
}

func TestEnroll_BacklinkDeferredThenReconciled(t *testing.T) {
	f := newFixture(t, model.Room{ID: 1, HostelID: 1, Capacity: 1})
	w := NewWorkflow(&flakyStore{Store: f.store, failLinkFee: true}, f.accounts, f.gateway, nil, testConfig())
	ctx := context.Background()

	res, err := w.Enroll(ctx, request(1, 1))
	require.NoError(t, err)
	assert.True(t, res.BacklinkPending)
	assert.Nil(t, res.Student.FeeID)
	assert.Equal(t, 1, f.occupancy(t, 1), "enrollment stands without the back-link")

	r, err := NewReconciler(f.store, time.Minute)
	require.NoError(t, err)
	linked, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)

	stored, err := f.store.GetStudent(ctx, res.Student.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeeID)
	assert.Equal(t, res.Payment.ID, *stored.FeeID)
}

func TestEnroll_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	w := NewWorkflow(f.store, f.accounts, f.gateway, nil, testConfig())

	testCases := []struct {
		name   string
		mutate func(*Request)
	}{
		{name: "capacity too large", mutate: func(r *Request) { r.Capacity = 4 }},
		{name: "capacity zero", mutate: func(r *Request) { r.Capacity = 0 }},
		{name: "missing name", mutate: func(r *Request) { r.Name = "  " }},
		{name: "bad email", mutate: func(r *Request) { r.Email = "nope" }},
		{name: "short password", mutate: func(r *Request) { r.Password = "123" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := request(1, 1)
			tc.mutate(&req)
			_, err := w.Enroll(context.Background(), req)
			var enrollErr *Error
			require.ErrorAs(t, err, &enrollErr)
			assert.Equal(t, KindInvalidRequest, enrollErr.Kind)
		})
	}
}

type countingLinker struct {
	mu    sync.Mutex
	calls int
}

func (c *countingLinker) ReconcileFeeLinks(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 0, nil
}

func (c *countingLinker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestReconciler_RunsOnSchedule(t *testing.T) {
	linker := &countingLinker{}
	r, err := NewReconciler(linker, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.Eventually(t, func() bool { return linker.Calls() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}
