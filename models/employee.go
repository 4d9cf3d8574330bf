package models

import "time"

const (
	EmployeeActive   = "active"
	EmployeeArchived = "archived"
)

// Departments staff can belong to
var Departments = []string{"Production", "Assembly", "Sales Admin", "Quality Control", "Logistics"}

// IsDepartment reports whether name is a known department
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

// Employee is an internal staff record; archiving is a soft delete via Status
type Employee struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Department string    `gorm:"not null;index" json:"department"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	ShiftStart string    `json:"shift_start"` // HH:MM
	ShiftEnd   string    `json:"shift_end"`
	IsPresent  bool      `gorm:"not null;default:false" json:"is_present"`
	Status     string    `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}
