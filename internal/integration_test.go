package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/api"
	"hostel-management-backend/internal/db"
	"hostel-management-backend/internal/enrollment"
	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/payment"
	"hostel-management-backend/internal/store"
)

type sentMail struct {
	to, subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

func (m *fakeMailer) subjectsTo(to string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.to == to {
			out = append(out, s.subject)
		}
	}
	return out
}

// backlinkBreaker fails LinkFee while broken is set.
type backlinkBreaker struct {
	store.Store
	broken atomic.Bool
}

func (b *backlinkBreaker) LinkFee(ctx context.Context, studentID string, paymentID int64) error {
	if b.broken.Load() {
		return errors.New("students table locked")
	}
	return b.Store.LinkFee(ctx, studentID, paymentID)
}

type app struct {
	t          *testing.T
	db         *gorm.DB
	store      store.Store
	breaker    *backlinkBreaker
	mailer     *fakeMailer
	reconciler *enrollment.Reconciler
	router     *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to connect to the in-memory database")
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	appStore := store.NewGormStore(testDB)
	breaker := &backlinkBreaker{Store: appStore}
	accounts := identity.NewProvider(appStore, bcrypt.MinCost)
	require.NoError(t, accounts.EnsureAdmin(ctx, "admin@hostel.edu", "admin-pass"))

	mailer := &fakeMailer{}
	pool := notification.NewWorkerPool(2, appStore, &webpush.Options{}, mailer)
	pool.Start(ctx)

	workflow := enrollment.NewWorkflow(breaker, accounts, payment.NewSimulated(), pool, config.EnrollmentConfig{
		FeeAmount:        2500,
		Currency:         "inr",
		StepTimeout:      5 * time.Second,
		BacklinkAttempts: 2,
	})
	reconciler, err := enrollment.NewReconciler(appStore, time.Hour)
	require.NoError(t, err)

	handler := api.NewHandler(api.Options{
		Store:    appStore,
		Enroller: workflow,
		Accounts: accounts,
		Tokens:   identity.NewTokenIssuer("integration-secret", time.Hour),
		Revoker:  identity.NewMemoryRevoker(),
		Notifier: pool,
	})

	return &app{
		t:          t,
		db:         testDB,
		store:      appStore,
		breaker:    breaker,
		mailer:     mailer,
		reconciler: reconciler,
		router:     api.NewRouter(handler, config.ServerConfig{CacheTTLSeconds: 1}),
	}
}

func (a *app) call(method, path, token, contentType string, body []byte) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) callJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	return a.call(method, path, token, "application/json", raw)
}

func (a *app) login(email, password string) string {
	a.t.Helper()
	w := a.callJSON(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (a *app) room(id int64) model.Room {
	a.t.Helper()
	room, err := a.store.GetRoom(context.Background(), id)
	require.NoError(a.t, err)
	return *room
}

type enrollResponse struct {
	Student         model.Student `json:"student"`
	Room            model.Room    `json:"room"`
	ReceiptID       string        `json:"receipt_id"`
	BacklinkPending bool          `json:"backlink_pending"`
}

// TestHostelLifecycle drives the service end to end: rooms are imported,
// students race for the last slots, and a resident goes through arrival,
// complaints and finally deletion.
func TestHostelLifecycle(t *testing.T) {
	a := newApp(t)
	admin := a.login("admin@hostel.edu", "admin-pass")

	t.Run("Phase 1: Admin Imports Rooms", func(t *testing.T) {
		csv := "id,hostel_id,capacity,current_occupancy\n201,2,2,1\n301,3,3,0\n101,1,1,1\n"
		w := a.call(http.MethodPost, "/api/admin/rooms/import", admin, "text/csv", []byte(csv))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = a.callJSON(http.MethodPost, "/api/admin/staff", admin, gin.H{
			"email": "warden.two@hostel.edu", "password": "warden-pass", "role": "warden", "block_id": 2,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	var winner enrollResponse
	t.Run("Phase 2: Students Race For The Last Two-Seater Slot", func(t *testing.T) {
		const contenders = 6
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created []enrollResponse
			codes   = map[int]int{}
		)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				w := a.callJSON(http.MethodPost, "/api/enrollments", "", gin.H{
					"name":     fmt.Sprintf("Student %d", i),
					"usn":      fmt.Sprintf("1RV22CS%03d", i),
					"email":    fmt.Sprintf("student%d@example.com", i),
					"password": "student-pass",
					"capacity": 2,
				})
				mu.Lock()
				defer mu.Unlock()
				codes[w.Code]++
				if w.Code == http.StatusCreated {
					var resp enrollResponse
					if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil {
						created = append(created, resp)
					}
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, map[int]int{http.StatusCreated: 1, http.StatusConflict: contenders - 1}, codes, "Exactly one enrollment should win the slot")
		require.Len(t, created, 1)
		winner = created[0]
		assert.Equal(t, int64(201), winner.Room.ID)
		assert.Equal(t, "PAY-000001", winner.ReceiptID)

		room := a.room(201)
		assert.Equal(t, 2, room.CurrentOccupancy, "Room 201 should be full")
		assert.LessOrEqual(t, room.CurrentOccupancy, room.Capacity)

		var accounts int64
		a.db.Model(&model.Account{}).Where("role = ?", model.RoleStudent).Count(&accounts)
		assert.Equal(t, int64(1), accounts, "Losing contenders must not leave identities behind")

		require.Eventually(t, func() bool {
			return len(a.mailer.subjectsTo(winner.Student.Email)) == 1
		}, 2*time.Second, 10*time.Millisecond, "Receipt mail should be delivered")
		assert.Equal(t, []string{"Hostel fee receipt PAY-000001"}, a.mailer.subjectsTo(winner.Student.Email))
	})

	t.Run("Phase 3: Reconciler Repairs A Missing Fee Link", func(t *testing.T) {
		a.breaker.broken.Store(true)
		w := a.callJSON(http.MethodPost, "/api/enrollments", "", gin.H{
			"name": "Late", "usn": "1RV22CS900", "email": "late@example.com", "password": "student-pass", "capacity": 3,
		})
		a.breaker.broken.Store(false)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp enrollResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.BacklinkPending)

		student, err := a.store.GetStudent(context.Background(), resp.Student.ID)
		require.NoError(t, err)
		assert.Nil(t, student.FeeID, "fee_id should still be empty")

		linked, err := a.reconciler.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, linked)

		student, err = a.store.GetStudent(context.Background(), resp.Student.ID)
		require.NoError(t, err)
		require.NotNil(t, student.FeeID)

		var fee model.Payment
		require.NoError(t, a.db.Where("student_id = ?", student.ID).First(&fee).Error)
		assert.Equal(t, fee.ID, *student.FeeID)
	})

	t.Run("Phase 4: Arrival And Complaint Handling", func(t *testing.T) {
		student := a.login(winner.Student.Email, "student-pass")
		warden := a.login("warden.two@hostel.edu", "warden-pass")

		w := a.callJSON(http.MethodPost, "/api/me/complaints", student, gin.H{"category": "Electrical", "description": "Fan broken"})
		assert.Equal(t, http.StatusForbidden, w.Code, "Complaints need a recorded arrival")

		w = a.callJSON(http.MethodPost, "/api/warden/students/"+winner.Student.ID+"/arrival", warden, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = a.callJSON(http.MethodPost, "/api/me/complaints", student, gin.H{"category": "Electrical", "description": "Fan broken"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var complaint model.Complaint
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &complaint))

		path := fmt.Sprintf("/api/warden/complaints/%d/", complaint.ID)
		require.Equal(t, http.StatusOK, a.callJSON(http.MethodPost, path+"forward", warden, nil).Code)
		require.Equal(t, http.StatusOK, a.callJSON(http.MethodPost, fmt.Sprintf("/api/admin/complaints/%d/resolve", complaint.ID), admin, nil).Code)
		assert.Equal(t, http.StatusConflict, a.callJSON(http.MethodPost, path+"forward", warden, nil).Code, "Resolved is terminal")

		require.Eventually(t, func() bool {
			return len(a.mailer.subjectsTo(winner.Student.Email)) == 4
		}, 2*time.Second, 10*time.Millisecond, "Arrival and status mails should be delivered")
	})

	t.Run("Phase 5: Admin Deletes The Student", func(t *testing.T) {
		w := a.callJSON(http.MethodDelete, "/api/admin/students/"+winner.Student.ID, admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, 1, a.room(201).CurrentOccupancy, "Deletion should free exactly one slot")

		var complaints, payments int64
		a.db.Model(&model.Complaint{}).Where("student_id = ?", winner.Student.ID).Count(&complaints)
		a.db.Model(&model.Payment{}).Where("student_id = ?", winner.Student.ID).Count(&payments)
		assert.Zero(t, complaints)
		assert.Zero(t, payments)

		w = a.callJSON(http.MethodPost, "/api/auth/login", "", gin.H{"email": winner.Student.Email, "password": "student-pass"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "The identity should be gone too")

		var rooms []model.Room
		require.NoError(t, a.db.Find(&rooms).Error)
		for _, r := range rooms {
			assert.GreaterOrEqual(t, r.CurrentOccupancy, 0)
			assert.LessOrEqual(t, r.CurrentOccupancy, r.Capacity, "room %d oversold", r.ID)
		}
	})
}
