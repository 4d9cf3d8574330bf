package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SenderCustomer = "customer"
	SenderEmployee = "employee"
)

// Message is a single chat line between a customer and support staff
type Message struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CustomerID uint           `gorm:"not null;index" json:"customer_id"` // the conversation thread
	Customer   User           `gorm:"foreignKey:CustomerID" json:"-"`
	SenderID   uint           `gorm:"not null;index" json:"sender_id"` // foreign key to users table
	Sender     User           `gorm:"foreignKey:SenderID" json:"sender"`
	SenderType string         `gorm:"type:varchar(16);not null" json:"sender_type"`
	EmployeeID *uint          `gorm:"index" json:"employee_id,omitempty"` // staff member answering, when known
	Text       string         `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
