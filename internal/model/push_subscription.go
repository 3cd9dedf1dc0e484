package model

import "time"

// PushSubscription holds the information for a student's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	StudentID string    `gorm:"index;size:36;not null" json:"student_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
