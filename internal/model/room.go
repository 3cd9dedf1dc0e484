package model

import "time"

const (
	MinHostelID = 1
	MaxHostelID = 5
	MinCapacity = 1
	MaxCapacity = 3
)

// Room is a bookable room inside a hostel block.
type Room struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	HostelID         int       `gorm:"index;not null" json:"hostel_id"`
	Capacity         int       `gorm:"index;not null" json:"capacity"`
	CurrentOccupancy int       `gorm:"not null" json:"current_occupancy"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}

// FreeSlots returns how many more students the room can take.
func (r Room) FreeSlots() int {
	if r.CurrentOccupancy >= r.Capacity {
		return 0
	}
	return r.Capacity - r.CurrentOccupancy
}

// Available reports whether the room qualifies for an allotment of its capacity class.
func (r Room) Available() bool {
	return r.CurrentOccupancy < r.Capacity
}

// ValidCapacity reports whether c is an offered room size.
func ValidCapacity(c int) bool {
	return c >= MinCapacity && c <= MaxCapacity
}

// ValidHostelID reports whether id names an existing hostel block.
func ValidHostelID(id int) bool {
	return id >= MinHostelID && id <= MaxHostelID
}
