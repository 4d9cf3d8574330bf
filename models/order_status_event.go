package models

import "time"

// OrderStatusEvent is one entry of an order's status history
type OrderStatusEvent struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    string      `gorm:"type:varchar(36);not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"type:varchar(32)" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(32);not null" json:"to_status"`
	Reason     string      `json:"reason"`
	ActorID    uint        `json:"actor_id"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusEvent model
func (OrderStatusEvent) TableName() string {
	return "order_status_events"
}
