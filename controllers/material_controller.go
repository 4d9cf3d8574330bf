package controllers

import (
	"net/http"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialRequest represents the request body for creating or updating a material
type MaterialRequest struct {
	Name       *string          `json:"name" binding:"omitempty,min=1"`
	PricePerKg *decimal.Decimal `json:"price_per_kg"`
	IsActive   *bool            `json:"is_active"`
}

// ListMaterials handles GET /api/v1/materials
func ListMaterials(c *gin.Context) {
	query := config.GetDB().WithContext(c.Request.Context()).Model(&models.Material{})
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var materials []models.Material
	if err := query.Order("name").Find(&materials).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve materials", err))
		return
	}

	respondOK(c, http.StatusOK, materials)
}

// CreateMaterial handles POST /api/v1/materials (admin only)
func CreateMaterial(c *gin.Context) {
	var req MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Name == nil || req.PricePerKg == nil {
		respondError(c, utils.NewValidationError("Name and price_per_kg are required", map[string]string{"name": "required", "price_per_kg": "required"}))
		return
	}
	if req.PricePerKg.IsNegative() {
		respondError(c, utils.NewValidationError("Price per kg cannot be negative", map[string]string{"price_per_kg": "gte"}))
		return
	}

	material := models.Material{
		Name:       *req.Name,
		PricePerKg: req.PricePerKg.Round(2),
		IsActive:   true,
	}
	err := config.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&material).Error; err != nil {
			return err
		}
		return deactivateOnCreate(tx, &material, req.IsActive, &material.IsActive)
	})
	if err != nil {
		if utils.IsUniqueViolation(err) {
			respondError(c, utils.NewConflictError("A material with this name already exists", err))
			return
		}
		respondError(c, utils.NewInternalError("Failed to create material", err))
		return
	}

	respondOK(c, http.StatusCreated, material)
}

// UpdateMaterial handles PATCH /api/v1/materials/:id (admin only)
func UpdateMaterial(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, utils.NewValidationError("Invalid material ID", map[string]string{"id": "numeric"}))
		return
	}

	var req MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var material models.Material
	if err := db.First(&material, id).Error; err != nil {
		if utils.IsNotFound(err) {
			respondError(c, utils.NewNotFoundError("MATERIAL_NOT_FOUND", "Material not found"))
			return
		}
		respondError(c, utils.NewInternalError("Failed to retrieve material", err))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.PricePerKg != nil {
		if req.PricePerKg.IsNegative() {
			respondError(c, utils.NewValidationError("Price per kg cannot be negative", map[string]string{"price_per_kg": "gte"}))
			return
		}
		updates["price_per_kg"] = req.PricePerKg.Round(2)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.Model(&material).Updates(updates).Error; err != nil {
			if utils.IsUniqueViolation(err) {
				respondError(c, utils.NewConflictError("A material with this name already exists", err))
				return
			}
			respondError(c, utils.NewInternalError("Failed to update material", err))
			return
		}
		if err := db.First(&material, id).Error; err != nil {
			respondError(c, utils.NewInternalError("Failed to fetch updated material", err))
			return
		}
	}

	respondOK(c, http.StatusOK, material)
}
