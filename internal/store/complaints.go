package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"hostel-management-backend/internal/model"
)

// CreateComplaint lodges a Pending complaint. Only students who have arrived may complain.
func (s *gormStore) CreateComplaint(ctx context.Context, studentID string, category model.ComplaintCategory, description string) (*model.Complaint, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrConstraintViolation, category)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrConstraintViolation)
	}

	complaint := model.Complaint{
		StudentID:   studentID,
		Category:    category,
		Description: description,
		Status:      model.ComplaintPending,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.Where("id = ?", studentID).First(&student).Error; err != nil {
			return classify(err)
		}
		if !student.Arrived {
			return ErrNotArrived
		}
		if err := tx.Create(&complaint).Error; err != nil {
			return classify(fmt.Errorf("failed to create complaint: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// StudentComplaints returns a student's complaints, newest first.
func (s *gormStore) StudentComplaints(ctx context.Context, studentID string) ([]model.Complaint, error) {
	var complaints []model.Complaint
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").Order("id DESC").
		Find(&complaints).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return complaints, nil
}

func (s *gormStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]BlockComplaint, error) {
	q := s.db.WithContext(ctx).Model(&model.Complaint{}).
		Select("complaints.*, students.name AS student_name, students.room_no AS room_no").
		Joins("LEFT JOIN students ON students.id = complaints.student_id")
	if filter.StudentID != "" {
		q = q.Where("complaints.student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("complaints.status = ?", filter.Status)
	}
	if filter.Block != nil {
		q = q.Joins("JOIN rooms ON rooms.id = students.room_no").
			Where("rooms.hostel_id = ?", *filter.Block).
			Order("complaints.created_at ASC")
	}

	var out []BlockComplaint
	if err := q.Order("complaints.id ASC").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return out, nil
}

// TransitionComplaint moves a complaint forward in its status machine. The
// update only applies if the status is still the one that was read, so two
// concurrent transitions cannot both win. A non-nil block scopes the lookup
// to complaints from students housed in that block.
func (s *gormStore) TransitionComplaint(ctx context.Context, id int64, to model.ComplaintStatus, block *int) (*model.Complaint, error) {
	var complaint model.Complaint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&complaint, id).Error; err != nil {
			return classify(err)
		}
		if block != nil {
			ok, err := inBlock(tx, complaint.StudentID, *block)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
		}

		from := complaint.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: %q to %q", ErrInvalidTransition, from, to)
		}

		res := tx.Model(&model.Complaint{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		if res.Error != nil {
			return classify(fmt.Errorf("failed to update complaint: %w", res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: complaint %d changed concurrently", ErrInvalidTransition, id)
		}
		complaint.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}
