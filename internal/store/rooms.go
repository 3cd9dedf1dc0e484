package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-management-backend/internal/model"
)

// maxAllotAttempts bounds how often AllotRoom moves on to the next candidate
// when the guarded increment claims nothing.
const maxAllotAttempts = 5

// AllotRoom claims one slot in the lowest-numbered room of the requested
// capacity that still has space. The increment is guarded so occupancy can
// never exceed capacity, even when several enrollments race for the last slot.
func (s *gormStore) AllotRoom(ctx context.Context, capacity int) (*model.Room, error) {
	if !model.ValidCapacity(capacity) {
		return nil, fmt.Errorf("%w: capacity %d not offered", ErrConstraintViolation, capacity)
	}

	var allotted model.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < maxAllotAttempts; attempt++ {
			candidate, err := nextFreeRoom(tx, capacity)
			if err != nil {
				return err
			}

			res := tx.Model(&model.Room{}).
				Where("id = ? AND current_occupancy < capacity", candidate.ID).
				UpdateColumn("current_occupancy", gorm.Expr("current_occupancy + 1"))
			if res.Error != nil {
				return fmt.Errorf("failed to claim room %d: %w", candidate.ID, res.Error)
			}
			if res.RowsAffected == 1 {
				candidate.CurrentOccupancy++
				allotted = *candidate
				return nil
			}
		}
		return ErrNoRoomAvailable
	})
	if err != nil {
		return nil, err
	}
	return &allotted, nil
}

// nextFreeRoom selects and locks the lowest free room of the capacity. On
// PostgreSQL rooms locked by other enrollments are skipped first; when every
// free room is locked it waits for the lowest one instead, so a room that is
// merely busy is never reported as full.
func nextFreeRoom(tx *gorm.DB, capacity int) (*model.Room, error) {
	free := func() *gorm.DB {
		return tx.Where("capacity = ? AND current_occupancy < capacity", capacity)
	}
	if tx.Dialector.Name() != "postgres" {
		return firstRoom(free())
	}

	room, err := firstRoom(free().Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}))
	if !errors.Is(err, ErrNoRoomAvailable) {
		return room, err
	}
	return firstRoom(free().Clauses(clause.Locking{Strength: "UPDATE"}))
}

func firstRoom(q *gorm.DB) (*model.Room, error) {
	var room model.Room
	if err := q.First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRoomAvailable
		}
		return nil, fmt.Errorf("failed to select room: %w", err)
	}
	return &room, nil
}

// ReleaseRoom gives back one slot. Occupancy never drops below zero.
func (s *gormStore) ReleaseRoom(ctx context.Context, roomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return releaseSlot(tx, roomID)
	})
}

func releaseSlot(tx *gorm.DB, roomID int64) error {
	res := tx.Model(&model.Room{}).
		Where("id = ? AND current_occupancy > 0", roomID).
		UpdateColumn("current_occupancy", gorm.Expr("current_occupancy - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to release room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&model.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up room %d: %w", roomID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *gormStore) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		return nil, classify(err)
	}
	return &room, nil
}

func (s *gormStore) ListRooms(ctx context.Context, filter RoomFilter) ([]model.Room, error) {
	q := s.db.WithContext(ctx).Model(&model.Room{})
	if filter.HostelID != nil {
		q = q.Where("hostel_id = ?", *filter.HostelID)
	}
	if filter.Capacity != nil {
		q = q.Where("capacity = ?", *filter.Capacity)
	}
	if filter.AvailableOnly {
		q = q.Where("current_occupancy < capacity")
	}

	var rooms []model.Room
	if err := q.Order("id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// InsertRooms adds all rooms in one transaction or none of them.
func (s *gormStore) InsertRooms(ctx context.Context, rooms []model.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(rooms))
	now := time.Now().UTC()
	for i := range rooms {
		r := &rooms[i]
		if err := validateRoom(*r); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: room %d listed twice", ErrConstraintViolation, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rooms).Error; err != nil {
			return classify(fmt.Errorf("failed to insert rooms: %w", err))
		}
		return nil
	})
}

func validateRoom(r model.Room) error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("%w: room number must be positive", ErrConstraintViolation)
	case !model.ValidHostelID(r.HostelID):
		return fmt.Errorf("%w: room %d: hostel %d out of range", ErrConstraintViolation, r.ID, r.HostelID)
	case !model.ValidCapacity(r.Capacity):
		return fmt.Errorf("%w: room %d: capacity %d out of range", ErrConstraintViolation, r.ID, r.Capacity)
	case r.CurrentOccupancy < 0 || r.CurrentOccupancy > r.Capacity:
		return fmt.Errorf("%w: room %d: occupancy %d outside 0..%d", ErrConstraintViolation, r.ID, r.CurrentOccupancy, r.Capacity)
	}
	return nil
}

// DeleteRoomAndCascade removes a room. Rooms that still house students are
// refused rather than orphaning their occupants.
func (s *gormStore) DeleteRoomAndCascade(ctx context.Context, roomID int64) (string, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var room model.Room
		if err := q.First(&room, roomID).Error; err != nil {
			return classify(err)
		}

		var residents int64
		if err := tx.Model(&model.Student{}).Where("room_no = ?", roomID).Count(&residents).Error; err != nil {
			return fmt.Errorf("failed to count residents of room %d: %w", roomID, err)
		}
		if room.CurrentOccupancy > 0 || residents > 0 {
			return fmt.Errorf("%w: room %d has %d resident(s)", ErrRoomOccupied, roomID, max(int64(room.CurrentOccupancy), residents))
		}

		if err := tx.Delete(&model.Room{}, roomID).Error; err != nil {
			return fmt.Errorf("failed to delete room %d: %w", roomID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Room %d deleted.", roomID), nil
}

// Availability reports rooms with free space and the total free slots per capacity.
func (s *gormStore) Availability(ctx context.Context) ([]CapacityAvailability, error) {
	var rows []CapacityAvailability
	err := s.db.WithContext(ctx).Model(&model.Room{}).
		Select("capacity, COUNT(*) AS rooms, COALESCE(SUM(capacity - current_occupancy), 0) AS free_slots").
		Where("current_occupancy < capacity").
		Group("capacity").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate availability: %w", err)
	}

	byCapacity := make(map[int]CapacityAvailability, len(rows))
	for _, r := range rows {
		byCapacity[r.Capacity] = r
	}
	out := make([]CapacityAvailability, 0, model.MaxCapacity)
	for c := model.MinCapacity; c <= model.MaxCapacity; c++ {
		a := byCapacity[c]
		a.Capacity = c
		out = append(out, a)
	}
	return out, nil
}
