package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const duplicateProductMessage = "A product with this name already exists"

// CreateProductRequest represents the request body for adding a catalog product
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ModelKey    string  `json:"model_key"`
	WeightGrams float64 `json:"weight_grams" binding:"required,gt=0"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Description *string  `json:"description"`
	ModelKey    *string  `json:"model_key"`
	WeightGrams *float64 `json:"weight_grams" binding:"omitempty,gt=0"`
	IsActive    *bool    `json:"is_active"`
}

// ListProducts handles GET /api/v1/products - public catalog, ?active=true|false
func ListProducts(c *gin.Context) {
	query := config.GetDB().WithContext(c.Request.Context()).Model(&models.Product{})
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, utils.NewValidationError("Invalid active filter", map[string]string{"active": "boolean"}))
			return
		}
		query = query.Where("is_active = ?", active)
	}

	var products []models.Product
	if err := query.Order("name").Find(&products).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve products", err))
		return
	}

	respondOK(c, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	product, err := findProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/products (admin only)
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		ModelKey:    req.ModelKey,
		WeightGrams: req.WeightGrams,
		IsActive:    true,
	}

	db := config.GetDB().WithContext(c.Request.Context())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		return deactivateOnCreate(tx, &product, req.IsActive, &product.IsActive)
	})
	if err != nil {
		if utils.IsUniqueViolation(err) {
			respondError(c, utils.NewConflictError(duplicateProductMessage, err))
			return
		}
		respondError(c, utils.NewInternalError("Failed to create product", err))
		return
	}

	respondOK(c, http.StatusCreated, product)
}

// deactivateOnCreate stores is_active=false for a row just created. The
// column defaults to true and gorm skips zero values on insert, so the flag
// has to be written separately.
func deactivateOnCreate(tx *gorm.DB, model interface{}, requested *bool, field *bool) error {
	if requested == nil || *requested {
		return nil
	}
	if err := tx.Model(model).Update("is_active", false).Error; err != nil {
		return err
	}
	*field = false
	return nil
}

// UpdateProduct handles PATCH /api/v1/products/:id (admin only)
func UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	product, err := findProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ModelKey != nil {
		updates["model_key"] = *req.ModelKey
	}
	if req.WeightGrams != nil {
		updates["weight_grams"] = *req.WeightGrams
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(product).Updates(updates).Error; err != nil {
			if utils.IsUniqueViolation(err) {
				respondError(c, utils.NewConflictError(duplicateProductMessage, err))
				return
			}
			respondError(c, utils.NewInternalError("Failed to update product", err))
			return
		}
		if err := db.First(product, product.ID).Error; err != nil {
			respondError(c, utils.NewInternalError("Failed to fetch updated product", err))
			return
		}
	}

	respondOK(c, http.StatusOK, product)
}

// UploadProductImage handles POST /api/v1/products/:id/image - multipart "image" (admin only)
func UploadProductImage(c *gin.Context) {
	product, err := findProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, utils.NewValidationError("Image file is required", map[string]string{"image": "required"}))
		return
	}

	files := services.GetFileService()
	key, err := files.UploadImage(c.Request.Context(), services.PrefixProducts, fileHeader)
	if err != nil {
		respondError(c, uploadError(err))
		return
	}

	previous := product.ImageKey
	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(product).Update("image_key", key).Error; err != nil {
		_ = files.DeleteFile(c.Request.Context(), key)
		respondError(c, utils.NewInternalError("Failed to update product image", err))
		return
	}
	if previous != "" {
		_ = files.DeleteFile(c.Request.Context(), previous)
	}

	url, _ := files.FileURL(c.Request.Context(), key)
	respondOK(c, http.StatusOK, gin.H{
		"product":   product,
		"image_url": url,
	})
}

// DeleteProduct handles DELETE /api/v1/products/:id (admin only). Existing orders keep their reference.
func DeleteProduct(c *gin.Context) {
	product, err := findProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := config.GetDB().WithContext(c.Request.Context()).Delete(product).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to delete product", err))
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": product.ID, "deleted": true})
}

func findProduct(c *gin.Context) (*models.Product, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, utils.NewValidationError("Invalid product ID", map[string]string{"id": "numeric"})
	}

	var product models.Product
	if err := config.GetDB().WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve product", err)
	}
	return &product, nil
}

// uploadError maps a rejected upload to a 400 and anything else to a storage failure
func uploadError(err error) error {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		return utils.NewValidationError(uploadErr.Message, map[string]string{"file": uploadErr.Code})
	}
	return utils.NewUpstreamError("Failed to upload file", err)
}
