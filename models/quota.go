package models

import "time"

// QuotaStatus is the state of a production target
type QuotaStatus string

const (
	QuotaActive    QuotaStatus = "Active"
	QuotaCompleted QuotaStatus = "Completed"
	QuotaCancelled QuotaStatus = "Cancelled"
)

// Quota is a production target aggregated from its assigned orders' quantities
type Quota struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Name          string      `gorm:"not null" json:"name"`
	Teams         []Team      `gorm:"many2many:quota_teams" json:"teams"`
	Orders        []Order     `gorm:"many2many:quota_orders" json:"orders"`
	TargetUnits   int         `gorm:"not null;default:0" json:"target_units"`
	FinishedUnits int         `gorm:"not null;default:0" json:"finished_units"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	Status        QuotaStatus `gorm:"type:varchar(16);not null;default:'Active'" json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Quota model
func (Quota) TableName() string {
	return "quotas"
}

// RecomputeTarget derives the target from the assigned orders and settles the status
func (q *Quota) RecomputeTarget() {
	total := 0
	for _, o := range q.Orders {
		total += o.Quantity
	}
	q.TargetUnits = total
	q.settle()
}

// RecordFinished sets the finished-unit count and settles the status
func (q *Quota) RecordFinished(units int) {
	if units < 0 {
		units = 0
	}
	q.FinishedUnits = units
	q.settle()
}

// Progress is the finished fraction of the target in [0, 1]
func (q Quota) Progress() float64 {
	if q.TargetUnits == 0 {
		return 0
	}
	p := float64(q.FinishedUnits) / float64(q.TargetUnits)
	if p > 1 {
		return 1
	}
	return p
}

func (q *Quota) settle() {
	if q.Status == QuotaCancelled {
		return
	}
	if q.TargetUnits > 0 && q.FinishedUnits >= q.TargetUnits {
		q.Status = QuotaCompleted
	} else {
		q.Status = QuotaActive
	}
}
