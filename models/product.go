package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog entry
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageKey    string         `json:"image_key"`
	ModelKey    string         `json:"model_key"` // 3D model used by the customizer preview
	WeightGrams float64        `gorm:"not null;check:weight_grams > 0" json:"weight_grams"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
