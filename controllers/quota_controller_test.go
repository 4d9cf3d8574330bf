package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLifecycle(t *testing.T) {
	env := setupEnv(t)
	first := env.orderInStatus(t, models.StatusInProduction)
	second := env.orderInStatus(t, models.StatusInProduction)
	router := staffRouter(env.admin)

	w := performJSON(router, http.MethodPost, "/api/v1/teams", gin.H{"name": "Line A"})
	require.Equal(t, http.StatusCreated, w.Code)
	var team models.Team
	decodeData(t, w, &team)

	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	w = performJSON(router, http.MethodPost, "/api/v1/quotas", gin.H{
		"name":       "November week 1",
		"team_ids":   []uint{team.ID},
		"order_ids":  []string{first.ID, second.ID},
		"start_date": start,
		"end_date":   start.AddDate(0, 0, 6),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var quota models.Quota
	decodeData(t, w, &quota)
	assert.Equal(t, 20, quota.TargetUnits, "target is the sum of order quantities")
	assert.Equal(t, models.QuotaActive, quota.Status)
	assert.Len(t, quota.Teams, 1)
	assert.Len(t, quota.Orders, 2)
	path := "/api/v1/quotas/" + uintString(quota.ID)

	t.Run("partial progress stays active", func(t *testing.T) {
		w := performJSON(router, http.MethodPatch, path, gin.H{"finished_units": 12})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		decodeData(t, w, &quota)
		assert.Equal(t, 12, quota.FinishedUnits)
		assert.Equal(t, models.QuotaActive, quota.Status)
	})

	t.Run("dropping an order shrinks the target", func(t *testing.T) {
		w := performJSON(router, http.MethodPatch, path, gin.H{"order_ids": []string{first.ID}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		decodeData(t, w, &quota)
		assert.Equal(t, 10, quota.TargetUnits)
		assert.Equal(t, models.QuotaCompleted, quota.Status, "finished units already cover the new target")
	})

	t.Run("list by status", func(t *testing.T) {
		w := performJSON(router, http.MethodGet, "/api/v1/quotas?status=Completed", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var quotas []models.Quota
		decodeData(t, w, &quotas)
		require.Len(t, quotas, 1)
		assert.Equal(t, quota.ID, quotas[0].ID)
	})

	t.Run("cancelled quotas stay cancelled", func(t *testing.T) {
		w := performJSON(router, http.MethodPatch, path, gin.H{"status": "Cancelled", "finished_units": 0})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		decodeData(t, w, &quota)
		assert.Equal(t, models.QuotaCancelled, quota.Status)
	})

	t.Run("completed cannot be set directly", func(t *testing.T) {
		w := performJSON(router, http.MethodPatch, path, gin.H{"status": "Completed"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := performJSON(router, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var links int64
		env.db.Table("quota_orders").Where("quota_id = ?", quota.ID).Count(&links)
		assert.Zero(t, links)

		w = performJSON(router, http.MethodGet, "/api/v1/quotas", nil)
		var quotas []models.Quota
		decodeData(t, w, &quotas)
		assert.Empty(t, quotas)
	})
}

func TestCreateQuota_Validation(t *testing.T) {
	env := setupEnv(t)
	router := staffRouter(env.admin)
	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body gin.H
	}{
		{name: "missing dates", body: gin.H{"name": "Q"}},
		{name: "end before start", body: gin.H{"name": "Q", "start_date": start, "end_date": start.AddDate(0, 0, -1)}},
		{name: "negative progress", body: gin.H{"name": "Q", "start_date": start, "end_date": start, "finished_units": -1}},
		{name: "unknown team", body: gin.H{"name": "Q", "start_date": start, "end_date": start, "team_ids": []uint{42}}},
		{name: "unknown order", body: gin.H{"name": "Q", "start_date": start, "end_date": start, "order_ids": []string{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPost, "/api/v1/quotas", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	var count int64
	env.db.Model(&models.Quota{}).Count(&count)
	assert.Zero(t, count)
}
