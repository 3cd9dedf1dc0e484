package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hostel-management-backend/internal/model"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrNoRoomAvailable     = errors.New("no room available")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrRoomOccupied        = errors.New("room still has occupants")
	ErrNotArrived          = errors.New("student has not arrived")
)

// RoomStore covers room inventory and the allotment procedures.
type RoomStore interface {
	AllotRoom(ctx context.Context, capacity int) (*model.Room, error)
	ReleaseRoom(ctx context.Context, roomID int64) error
	GetRoom(ctx context.Context, roomID int64) (*model.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]model.Room, error)
	InsertRooms(ctx context.Context, rooms []model.Room) error
	DeleteRoomAndCascade(ctx context.Context, roomID int64) (string, error)
	Availability(ctx context.Context) ([]CapacityAvailability, error)
}

// StudentStore covers student records.
type StudentStore interface {
	CreateStudent(ctx context.Context, student *model.Student) error
	GetStudent(ctx context.Context, id string) (*model.Student, error)
	ListStudents(ctx context.Context, filter StudentFilter) ([]model.Student, error)
	MarkArrived(ctx context.Context, id string, block *int) (*model.Student, error)
	LinkFee(ctx context.Context, studentID string, paymentID int64) error
	UpdateAvatar(ctx context.Context, studentID, url string) error
	RemoveStudent(ctx context.Context, id string) error
	DeleteStudentAndCleanup(ctx context.Context, id string) (string, error)
	ReconcileFeeLinks(ctx context.Context) (int, error)
}

// PaymentStore covers fee payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error)
}

// ComplaintStore covers complaints and their status machine.
type ComplaintStore interface {
	CreateComplaint(ctx context.Context, studentID string, category model.ComplaintCategory, description string) (*model.Complaint, error)
	StudentComplaints(ctx context.Context, studentID string) ([]model.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]BlockComplaint, error)
	TransitionComplaint(ctx context.Context, id int64, to model.ComplaintStatus, block *int) (*model.Complaint, error)
}

// AccountStore covers sign-in identities.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	SetAccountRole(ctx context.Context, id string, role model.Role, block *int) error
	DeleteAccount(ctx context.Context, id string) error
}

// SubscriptionStore covers web push subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint, studentID string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint, studentID string) error
	StudentSubscriptions(ctx context.Context, studentID string) ([]model.PushSubscription, error)
	ExpireSubscription(ctx context.Context, endpoint string) error
}

// Store defines the interface for all database operations.
type Store interface {
	RoomStore
	StudentStore
	PaymentStore
	ComplaintStore
	AccountStore
	SubscriptionStore
	Stats(ctx context.Context) (*Stats, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for migrations and health checks.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Stats aggregates the admin dashboard counters.
func (s *gormStore) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var st Stats
	if err := db.Model(&model.Student{}).Count(&st.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	if err := db.Model(&model.Room{}).Count(&st.TotalRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}
	if err := db.Model(&model.Room{}).Where("current_occupancy > 0").Count(&st.OccupiedRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupied rooms: %w", err)
	}
	if err := db.Model(&model.Complaint{}).Where("status <> ?", model.ComplaintResolved).Count(&st.OpenComplaints).Error; err != nil {
		return nil, fmt.Errorf("failed to count open complaints: %w", err)
	}
	return &st, nil
}

// classify maps driver and GORM errors onto the store's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unique constraint", "duplicate key", "constraint failed", "violates"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
	}
	return err
}

// inBlock reports whether the student's room belongs to the given hostel block.
func inBlock(tx *gorm.DB, studentID string, block int) (bool, error) {
	var count int64
	err := tx.Model(&model.Student{}).
		Where("id = ? AND room_no IN (?)", studentID,
			tx.Session(&gorm.Session{NewDB: true}).Model(&model.Room{}).Select("id").Where("hostel_id = ?", block)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block scope: %w", err)
	}
	return count > 0, nil
}
