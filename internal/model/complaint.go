package model

import "time"

// ComplaintStatus is the triage state of a complaint.
type ComplaintStatus string

const (
	ComplaintPending   ComplaintStatus = "Pending"
	ComplaintForwarded ComplaintStatus = "Forwarded to Admin"
	ComplaintResolved  ComplaintStatus = "Resolved"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// Resolved is terminal and statuses never move backwards.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	switch s {
	case ComplaintPending:
		return next == ComplaintForwarded || next == ComplaintResolved
	case ComplaintForwarded:
		return next == ComplaintResolved
	default:
		return false
	}
}

// ComplaintCategory is the kind of facility problem reported.
type ComplaintCategory string

const (
	CategoryElectrical ComplaintCategory = "Electrical"
	CategoryPlumbing   ComplaintCategory = "Plumbing"
	CategoryFurniture  ComplaintCategory = "Furniture"
	CategoryWiFi       ComplaintCategory = "Wi-Fi"
	CategoryOther      ComplaintCategory = "Other"
)

// ComplaintCategories lists the accepted categories in display order.
var ComplaintCategories = []ComplaintCategory{
	CategoryElectrical, CategoryPlumbing, CategoryFurniture, CategoryWiFi, CategoryOther,
}

// Valid reports whether c is one of ComplaintCategories.
func (c ComplaintCategory) Valid() bool {
	for _, known := range ComplaintCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Complaint is a facility issue lodged by an arrived student.
type Complaint struct {
	ID          int64             `gorm:"primaryKey" json:"id"`
	StudentID   string            `gorm:"index;size:36;not null" json:"student_id"`
	Category    ComplaintCategory `gorm:"size:32;not null" json:"category"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Status      ComplaintStatus   `gorm:"size:32;not null;index" json:"status"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`

	// Associations
	Student *Student `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
