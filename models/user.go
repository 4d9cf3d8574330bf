package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an account in the system (customer company or operations staff)
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Auth0ID       string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name          string         `gorm:"not null" json:"name"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Role          string         `gorm:"not null;default:'customer'" json:"role"` // "customer" or "admin"
	CompanyName   string         `json:"company_name"`
	ContactPerson string         `json:"contact_person"`
	Phone         string         `json:"phone"`
	Address       Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user belongs to operations staff
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayCompany falls back to the account name for customers without a company profile
func (u User) DisplayCompany() string {
	if u.CompanyName != "" {
		return u.CompanyName
	}
	return u.Name
}
