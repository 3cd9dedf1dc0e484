package model

import (
	"fmt"
	"time"
)

// PaymentStatus is the settlement state of a fee payment.
type PaymentStatus string

const PaymentSuccessful PaymentStatus = "successful"

// Payment records the hostel fee paid during enrollment. Rows are never updated.
type Payment struct {
	ID         int64         `gorm:"primaryKey" json:"id"`
	StudentID  string        `gorm:"index;size:36;not null" json:"student_id"`
	AmountPaid float64       `gorm:"type:numeric(10,2);not null" json:"amount_paid"`
	Status     PaymentStatus `gorm:"size:16;not null" json:"status"`
	Reference  string        `gorm:"size:128" json:"reference"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`

	// Associations
	Student *Student `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ReceiptID formats the payment ID the way receipts show it.
func (p Payment) ReceiptID() string {
	return fmt.Sprintf("PAY-%06d", p.ID)
}
