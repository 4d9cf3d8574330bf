package controllers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeartbeatInterval is how often an idle stream sends a keep-alive comment
var HeartbeatInterval = 25 * time.Second

// StreamOrders handles GET /api/v1/realtime/orders - order changes as Server-Sent Events
func StreamOrders(c *gin.Context) {
	streamTable(c, realtime.TableOrders)
}

// StreamPayments handles GET /api/v1/realtime/payments - payment changes as Server-Sent Events
func StreamPayments(c *gin.Context) {
	streamTable(c, realtime.TablePayments)
}

// streamTable relays change events until the client disconnects. Staff
// receive every change; customers only the rows keyed to their account.
func streamTable(c *gin.Context, table string) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	hub := realtime.GetHub()
	if hub == nil {
		respondError(c, &utils.AppError{
			Status:  http.StatusServiceUnavailable,
			Code:    "REALTIME_UNAVAILABLE",
			Message: "Realtime updates are not available",
		})
		return
	}

	key := strconv.FormatUint(uint64(user.ID), 10)
	if user.IsAdmin() {
		key = ""
	}

	ctx := c.Request.Context()
	sub, err := hub.Subscribe(ctx, table, key)
	if err != nil {
		respondError(c, utils.NewUpstreamError("Failed to subscribe to realtime updates", err))
		return
	}
	defer sub.Close()

	logger.Info(c, "Realtime stream opened", zap.String("table", table), zap.Uint("user_id", user.ID))

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"table": table})
	c.Writer.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	events := sub.Events()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return false
			}
			return true
		}
	})
}

// GetOrderDashboard handles GET /api/v1/dashboard/orders - pipeline counts and recent orders (admin only)
func GetOrderDashboard(c *gin.Context) {
	dashboard := services.GetOrderDashboard()
	if dashboard == nil {
		respondError(c, &utils.AppError{
			Status:  http.StatusServiceUnavailable,
			Code:    "DASHBOARD_UNAVAILABLE",
			Message: "The dashboard is not running",
		})
		return
	}

	select {
	case <-dashboard.Ready():
	default:
		respondError(c, &utils.AppError{
			Status:  http.StatusServiceUnavailable,
			Code:    "DASHBOARD_WARMING_UP",
			Message: "The dashboard is still loading, try again shortly",
		})
		return
	}

	respondOK(c, http.StatusOK, dashboard.Snapshot())
}
