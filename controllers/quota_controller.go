package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaRequest represents the request body for creating or updating a quota.
// The target is never sent: it is derived from the assigned orders.
type QuotaRequest struct {
	Name          *string    `json:"name" binding:"omitempty,min=1"`
	TeamIDs       *[]uint    `json:"team_ids"`
	OrderIDs      *[]string  `json:"order_ids"`
	FinishedUnits *int       `json:"finished_units" binding:"omitempty,gte=0"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	Status        *string    `json:"status" binding:"omitempty,oneof=Active Cancelled"`
}

// ListQuotas handles GET /api/v1/quotas?status= (admin only)
func ListQuotas(c *gin.Context) {
	query := config.GetDB().WithContext(c.Request.Context()).Preload("Teams").Preload("Orders")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var quotas []models.Quota
	if err := query.Order("start_date DESC").Order("id DESC").Find(&quotas).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve quotas", err))
		return
	}
	respondOK(c, http.StatusOK, quotas)
}

// CreateQuota handles POST /api/v1/quotas (admin only)
func CreateQuota(c *gin.Context) {
	var req QuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Name == nil || req.StartDate == nil || req.EndDate == nil {
		respondError(c, utils.NewValidationError("Name, start_date and end_date are required", map[string]string{
			"name": "required", "start_date": "required", "end_date": "required",
		}))
		return
	}

	quota := models.Quota{
		Name:      *req.Name,
		StartDate: *req.StartDate,
		EndDate:   *req.EndDate,
		Status:    models.QuotaActive,
	}
	err := config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&quota).Error; err != nil {
			return err
		}
		return applyQuotaRequest(tx, &quota, req)
	})
	if err != nil {
		respondError(c, quotaWriteError(err))
		return
	}

	respondQuota(c, http.StatusCreated, quota.ID)
}

// UpdateQuota handles PATCH /api/v1/quotas/:id (admin only)
func UpdateQuota(c *gin.Context) {
	var req QuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	quota, err := findQuota(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			quota.Name = *req.Name
		}
		if req.StartDate != nil {
			quota.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			quota.EndDate = *req.EndDate
		}
		return applyQuotaRequest(tx, quota, req)
	})
	if err != nil {
		respondError(c, quotaWriteError(err))
		return
	}

	respondQuota(c, http.StatusOK, quota.ID)
}

// DeleteQuota handles DELETE /api/v1/quotas/:id (admin only)
func DeleteQuota(c *gin.Context) {
	quota, err := findQuota(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(quota).Association("Teams").Clear(); err != nil {
			return err
		}
		if err := tx.Model(quota).Association("Orders").Clear(); err != nil {
			return err
		}
		return tx.Delete(quota).Error
	})
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to delete quota", err))
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": quota.ID, "deleted": true})
}

// applyQuotaRequest replaces the assignments named in req, recomputes the
// target from the assigned orders and persists the quota
func applyQuotaRequest(tx *gorm.DB, quota *models.Quota, req QuotaRequest) error {
	if quota.EndDate.Before(quota.StartDate) {
		return utils.NewValidationError("end_date must not be before start_date", map[string]string{"end_date": "gtefield"})
	}

	if req.TeamIDs != nil {
		teams := []models.Team{}
		if ids := *req.TeamIDs; len(ids) > 0 {
			if err := tx.Where("id IN ?", ids).Find(&teams).Error; err != nil {
				return err
			}
			if len(teams) != len(uniqueUints(ids)) {
				return utils.NewValidationError("One or more teams do not exist", map[string]string{"team_ids": "exists"})
			}
		}
		if err := tx.Model(quota).Association("Teams").Replace(teams); err != nil {
			return err
		}
	}

	if req.OrderIDs != nil {
		orders, err := loadOrders(tx, *req.OrderIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(quota).Association("Orders").Replace(orders); err != nil {
			return err
		}
	}

	if err := tx.Model(quota).Association("Orders").Find(&quota.Orders); err != nil {
		return err
	}

	if req.Status != nil {
		quota.Status = models.QuotaStatus(*req.Status)
	}
	quota.RecomputeTarget()
	if req.FinishedUnits != nil {
		quota.RecordFinished(*req.FinishedUnits)
	}

	return tx.Omit(clause.Associations).Save(quota).Error
}

func findQuota(c *gin.Context) (*models.Quota, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, utils.NewValidationError("Invalid quota ID", map[string]string{"id": "numeric"})
	}

	var quota models.Quota
	if err := config.GetDB().WithContext(c.Request.Context()).First(&quota, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("QUOTA_NOT_FOUND", "Quota not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve quota", err)
	}
	return &quota, nil
}

func respondQuota(c *gin.Context, status int, id uint) {
	var quota models.Quota
	err := config.GetDB().WithContext(c.Request.Context()).
		Preload("Teams").Preload("Orders").First(&quota, id).Error
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load quota", err))
		return
	}
	respondOK(c, status, quota)
}

func quotaWriteError(err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.NewInternalError("Failed to save quota", err)
}
