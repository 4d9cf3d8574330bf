package models

import "time"

// Feedback is a customer rating of one completed order
type Feedback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"order_id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Customer   User      `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the Feedback model
func (Feedback) TableName() string {
	return "feedbacks"
}
