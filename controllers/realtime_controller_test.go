package controllers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStream connects to an SSE endpoint and returns the event names it receives
func openStream(t *testing.T, user models.User, path string) <-chan string {
	t.Helper()

	r := newRouter()
	r.GET(path, asUser(user), StreamOrders)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// nextEvent returns the next event name and its data line
func nextEvent(t *testing.T, lines <-chan string) (string, string) {
	t.Helper()

	var name string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed")
			}
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && name != "":
				return name, strings.TrimPrefix(line, "data:")
			}
		case <-timeout:
			t.Fatal("timed out waiting for an event")
		}
	}
}

func placeOrder(t *testing.T, env *testEnv, customer models.User) *models.Order {
	t.Helper()
	order, err := env.orders.Create(context.Background(), customer, services.CreateOrderInput{
		ProductID: env.product.ID,
		Quantity:  10,
		Materials: models.MaterialMix{"Steel": 100},
	})
	require.NoError(t, err)
	return order
}

func TestStreamOrders_Customer(t *testing.T) {
	env := setupEnv(t)
	lines := openStream(t, env.customer, "/api/v1/realtime/orders")

	name, _ := nextEvent(t, lines)
	require.Equal(t, "ready", name)

	placeOrder(t, env, env.other)
	mine := placeOrder(t, env, env.customer)

	name, data := nextEvent(t, lines)
	assert.Equal(t, string(realtime.EventInsert), name)
	assert.Contains(t, data, mine.ID, "only the customer's own orders are streamed")
}

func TestStreamOrders_Staff(t *testing.T) {
	env := setupEnv(t)
	lines := openStream(t, env.admin, "/api/v1/realtime/orders")

	name, _ := nextEvent(t, lines)
	require.Equal(t, "ready", name)

	theirs := placeOrder(t, env, env.other)
	name, data := nextEvent(t, lines)
	assert.Equal(t, string(realtime.EventInsert), name)
	assert.Contains(t, data, theirs.ID)

	status := models.StatusContractSigning
	_, err := env.orders.Update(context.Background(), theirs.ID, env.admin, services.OrderPatch{Status: &status})
	require.NoError(t, err)

	name, data = nextEvent(t, lines)
	assert.Equal(t, string(realtime.EventUpdate), name)
	assert.Contains(t, data, string(models.StatusContractSigning))
}

func TestStreamOrders_Heartbeat(t *testing.T) {
	env := setupEnv(t)
	previous := HeartbeatInterval
	HeartbeatInterval = 20 * time.Millisecond
	t.Cleanup(func() { HeartbeatInterval = previous })

	lines := openStream(t, env.customer, "/api/v1/realtime/orders")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if line == ": keep-alive" {
				return
			}
		case <-timeout:
			t.Fatal("no keep-alive received")
		}
	}
}

func TestStreamOrders_NoHub(t *testing.T) {
	env := setupEnv(t)
	realtime.SetHub(nil)

	r := newRouter()
	r.GET("/api/v1/realtime/orders", asUser(env.customer), StreamOrders)
	w := performJSON(r, http.MethodGet, "/api/v1/realtime/orders", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "REALTIME_UNAVAILABLE", errorCodeOf(t, w))
}

func TestGetOrderDashboard(t *testing.T) {
	env := setupEnv(t)
	env.orderInStatus(t, models.StatusForEvaluation)
	env.orderInStatus(t, models.StatusInProduction)

	r := newRouter()
	r.GET("/api/v1/dashboard/orders", asUser(env.admin), GetOrderDashboard)

	services.SetOrderDashboard(nil)
	w := performJSON(r, http.MethodGet, "/api/v1/dashboard/orders", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DASHBOARD_UNAVAILABLE", errorCodeOf(t, w))

	dashboard := services.NewOrderDashboard(env.db, env.hub, 5, time.Hour)
	services.SetOrderDashboard(dashboard)
	t.Cleanup(func() { services.SetOrderDashboard(nil) })

	w = performJSON(r, http.MethodGet, "/api/v1/dashboard/orders", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DASHBOARD_WARMING_UP", errorCodeOf(t, w))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dashboard.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-dashboard.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard never became ready")
	}

	w = performJSON(r, http.MethodGet, "/api/v1/dashboard/orders", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snap services.DashboardSnapshot
	decodeData(t, w, &snap)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.ByStatus[models.StatusInProduction])
	assert.Equal(t, 0, snap.ByStatus[models.StatusCompleted])
	assert.Len(t, snap.Recent, 2)
}
