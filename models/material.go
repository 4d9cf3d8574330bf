package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a raw material hangers are made from, priced per kilogram
type Material struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"uniqueIndex;not null" json:"name"`
	PricePerKg decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_per_kg"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Material model
func (Material) TableName() string {
	return "materials"
}
