package model

import "time"

// Student is an enrolled resident. The ID is the identity account ID.
type Student struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Name             string     `gorm:"size:128;not null" json:"name"`
	USN              string     `gorm:"column:usn;size:32;not null" json:"usn"`
	Email            string     `gorm:"uniqueIndex;size:256;not null" json:"email"`
	RoomNo           *int64     `gorm:"index" json:"room_no"`
	FeeID            *int64     `json:"fee_id"`
	Arrived          bool       `gorm:"not null;default:false" json:"arrived"`
	ArrivalTimestamp *time.Time `json:"arrival_timestamp"`
	AvatarURL        *string    `gorm:"size:512" json:"avatar_url"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`

	// Associations
	Room *Room `gorm:"foreignKey:RoomNo;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
}
