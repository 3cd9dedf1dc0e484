package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hostel-management-backend/internal/model"
)

func (s *gormStore) CreateStudent(ctx context.Context, student *model.Student) error {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(student).Error; err != nil {
		return classify(fmt.Errorf("failed to create student: %w", err))
	}
	return nil
}

func (s *gormStore) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return nil, classify(err)
	}
	return &student, nil
}

func (s *gormStore) ListStudents(ctx context.Context, filter StudentFilter) ([]model.Student, error) {
	q := s.db.WithContext(ctx).Model(&model.Student{})
	if filter.RoomNo != nil {
		q = q.Where("room_no = ?", *filter.RoomNo)
	}
	if filter.Block != nil {
		q = q.Where("room_no IN (?)", s.db.Model(&model.Room{}).Select("id").Where("hostel_id = ?", *filter.Block)).
			Order("room_no").Order("name")
	} else {
		q = q.Order("created_at").Order("id")
	}

	var students []model.Student
	if err := q.Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// MarkArrived flips the arrival flag once and stamps the arrival time. A
// non-nil block restricts the update to students housed in that block.
func (s *gormStore) MarkArrived(ctx context.Context, id string, block *int) (*model.Student, error) {
	var student model.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&student).Error; err != nil {
			return classify(err)
		}
		if block != nil {
			ok, err := inBlock(tx, id, *block)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
		}
		if student.Arrived {
			return fmt.Errorf("%w: student %s already arrived", ErrInvalidTransition, id)
		}

		now := time.Now().UTC()
		res := tx.Model(&model.Student{}).
			Where("id = ? AND arrived = ?", id, false).
			Updates(map[string]any{"arrived": true, "arrival_timestamp": now})
		if res.Error != nil {
			return fmt.Errorf("failed to mark arrival: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: student %s already arrived", ErrInvalidTransition, id)
		}
		student.Arrived = true
		student.ArrivalTimestamp = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// LinkFee records the payment on the student row.
func (s *gormStore) LinkFee(ctx context.Context, studentID string, paymentID int64) error {
	res := s.db.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", studentID).
		Update("fee_id", paymentID)
	if res.Error != nil {
		return fmt.Errorf("failed to link fee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) UpdateAvatar(ctx context.Context, studentID, url string) error {
	res := s.db.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", studentID).
		Update("avatar_url", url)
	if res.Error != nil {
		return fmt.Errorf("failed to update avatar: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveStudent deletes only the student row and anything hanging off it.
// Room occupancy is left alone; enrollment compensation releases the slot itself.
func (s *gormStore) RemoveStudent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Student{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete student: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteStudentAndCleanup removes a student with their complaints, payments,
// push subscriptions and sign-in account, and frees their room slot.
func (s *gormStore) DeleteStudentAndCleanup(ctx context.Context, id string) (string, error) {
	var (
		student    model.Student
		complaints int64
		payments   int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&student).Error; err != nil {
			return classify(err)
		}

		res := tx.Where("student_id = ?", id).Delete(&model.Complaint{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete complaints: %w", res.Error)
		}
		complaints = res.RowsAffected

		res = tx.Where("student_id = ?", id).Delete(&model.Payment{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete payments: %w", res.Error)
		}
		payments = res.RowsAffected

		if err := tx.Where("student_id = ?", id).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete push subscriptions: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Student{}).Error; err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Account{}).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}

		if student.RoomNo != nil {
			if err := releaseSlot(tx, *student.RoomNo); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	msg := fmt.Sprintf("Student %s deleted along with %d complaint(s) and %d payment(s).", student.Name, complaints, payments)
	if student.RoomNo != nil {
		msg += fmt.Sprintf(" Room %d occupancy released.", *student.RoomNo)
	}
	return msg, nil
}

// ReconcileFeeLinks fills fee_id for students whose successful payment was
// recorded but never linked back. It returns how many students were repaired.
func (s *gormStore) ReconcileFeeLinks(ctx context.Context) (int, error) {
	var pending []struct {
		StudentID string
		PaymentID int64
	}
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Select("payments.student_id AS student_id, MAX(payments.id) AS payment_id").
		Joins("JOIN students ON students.id = payments.student_id").
		Where("students.fee_id IS NULL AND payments.status = ?", model.PaymentSuccessful).
		Group("payments.student_id").
		Scan(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find unlinked payments: %w", err)
	}

	linked := 0
	for _, p := range pending {
		res := s.db.WithContext(ctx).Model(&model.Student{}).
			Where("id = ? AND fee_id IS NULL", p.StudentID).
			Update("fee_id", p.PaymentID)
		if res.Error != nil {
			return linked, fmt.Errorf("failed to link fee for %s: %w", p.StudentID, res.Error)
		}
		linked += int(res.RowsAffected)
	}
	return linked, nil
}
