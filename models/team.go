package models

import "time"

// Team groups employees and the orders assigned to them for production tracking
type Team struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"uniqueIndex;not null" json:"name"`
	Members   []Employee `gorm:"many2many:team_members" json:"members"`
	Orders    []Order    `gorm:"many2many:team_orders" json:"orders"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Team model
func (Team) TableName() string {
	return "teams"
}
