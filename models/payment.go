package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus is the verification state of a proof of payment
type PaymentStatus string

const (
	PaymentPendingVerification PaymentStatus = "Pending Verification"
	PaymentVerified            PaymentStatus = "Verified"
	PaymentRejected            PaymentStatus = "Rejected"
)

// IsActive reports whether the payment still blocks a new submission
func (s PaymentStatus) IsActive() bool {
	return s == PaymentPendingVerification || s == PaymentVerified
}

// Payment is one proof-of-payment submission tied to exactly one order
type Payment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OrderID       string         `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_payments_active_order,where:status <> 'Rejected' AND deleted_at IS NULL" json:"order_id"`
	CustomerID    uint           `gorm:"not null;index" json:"customer_id"`
	ProofKey      string         `gorm:"not null" json:"proof_key"`
	ProofURL      *string        `gorm:"-" json:"proof_url,omitempty"` // computed, presigned URL for the proof
	PaymentMethod string         `gorm:"not null" json:"payment_method"`
	Status        PaymentStatus  `gorm:"type:varchar(32);not null;default:'Pending Verification'" json:"status"`
	VerifiedAt    *time.Time     `json:"verified_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// Key identifies the payment in change-feed projections
func (p Payment) Key() string {
	return p.OrderID
}

// Version orders competing copies of the same row
func (p Payment) Version() time.Time {
	return p.UpdatedAt
}
