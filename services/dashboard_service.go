package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRefreshInterval is how often the dashboard reconciles against the database
const DefaultRefreshInterval = 5 * time.Minute

// DashboardSnapshot is the staff overview of the order pipeline
type DashboardSnapshot struct {
	Total    int                        `json:"total"`
	ByStatus map[models.OrderStatus]int `json:"by_status"`
	Recent   []models.Order             `json:"recent"`
	AsOf     time.Time                  `json:"as_of"`
}

// OrderDashboard keeps an in-memory projection of every order, fed by the
// orders change feed and reconciled periodically with a full refetch.
type OrderDashboard struct {
	db         *gorm.DB
	hub        *realtime.Hub
	projection *realtime.Projection[models.Order]
	interval   time.Duration

	ready chan struct{}
}

var dashboardInstance *OrderDashboard

func newestOrderFirst(a, b models.Order) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

// NewOrderDashboard creates a dashboard whose recent list holds up to recent orders
func NewOrderDashboard(db *gorm.DB, hub *realtime.Hub, recent int, interval time.Duration) *OrderDashboard {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &OrderDashboard{
		db:         db,
		hub:        hub,
		projection: realtime.NewProjection(newestOrderFirst, recent),
		interval:   interval,
		ready:      make(chan struct{}),
	}
}

// InitOrderDashboard initializes the global dashboard
func InitOrderDashboard(db *gorm.DB, hub *realtime.Hub) *OrderDashboard {
	dashboardInstance = NewOrderDashboard(db, hub, 10, DefaultRefreshInterval)
	return dashboardInstance
}

// GetOrderDashboard returns the global dashboard
func GetOrderDashboard() *OrderDashboard {
	return dashboardInstance
}

// SetOrderDashboard sets the global dashboard (primarily for testing)
func SetOrderDashboard(d *OrderDashboard) {
	dashboardInstance = d
}

// Run follows the change feed until ctx is done. It subscribes before the
// first refetch so no change between the two is missed.
func (d *OrderDashboard) Run(ctx context.Context) error {
	var events <-chan realtime.Event
	if d.hub != nil {
		sub, err := d.hub.Subscribe(ctx, realtime.TableOrders, "")
		if err != nil {
			return fmt.Errorf("subscribe to orders feed: %w", err)
		}
		defer sub.Close()
		events = sub.Events()
	}

	if err := d.Refresh(ctx); err != nil {
		logger.Log.Warn("Initial dashboard refresh failed", zap.Error(err))
	}
	close(d.ready)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("orders feed closed")
			}
			d.Apply(ev)
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				logger.Log.Warn("Dashboard refresh failed", zap.Error(err))
			}
		}
	}
}

// Ready is closed once the first refetch has completed
func (d *OrderDashboard) Ready() <-chan struct{} {
	return d.ready
}

// Apply folds one change event into the projection
func (d *OrderDashboard) Apply(ev realtime.Event) {
	change, err := realtime.DecodeChange[models.Order](ev)
	if err != nil {
		logger.Log.Warn("Dropping undecodable order event", zap.String("id", ev.ID), zap.Error(err))
		return
	}
	d.projection.Apply(change)
}

// Refresh reconciles the projection with the database
func (d *OrderDashboard) Refresh(ctx context.Context) error {
	asOf := time.Now()

	var orders []models.Order
	if err := d.db.WithContext(ctx).Preload("Product").Find(&orders).Error; err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	d.projection.Reconcile(orders, asOf)
	return nil
}

// Snapshot summarizes the current projection
func (d *OrderDashboard) Snapshot() DashboardSnapshot {
	all := d.projection.All()

	snap := DashboardSnapshot{
		Total:    len(all),
		ByStatus: make(map[models.OrderStatus]int, len(models.AllOrderStatuses())),
		Recent:   d.projection.List(),
		AsOf:     time.Now(),
	}
	for _, status := range models.AllOrderStatuses() {
		snap.ByStatus[status] = 0
	}
	for _, o := range all {
		snap.ByStatus[o.Status]++
	}
	return snap
}
