package controllers

import (
	"net/http"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// CreateFeedbackRequest represents a customer's rating of a completed order
type CreateFeedbackRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// CreateFeedback handles POST /api/v1/feedbacks - one rating per completed order
func CreateFeedback(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	svc := services.GetOrderService()
	order, err := svc.Get(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.CustomerID != user.ID {
		respondError(c, utils.NewForbiddenError("You can only rate your own orders"))
		return
	}

	view, err := svc.View(c.Request.Context(), *order)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load order state", err))
		return
	}
	if !view.Actions.Rate {
		if order.Status == models.StatusCompleted {
			respondError(c, utils.NewConflictError("Feedback has already been submitted for this order", nil))
			return
		}
		respondError(c, utils.NewTransitionError("Only completed orders can be rated", nil))
		return
	}

	feedback := models.Feedback{
		OrderID:    order.ID,
		CustomerID: user.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := config.GetDB().WithContext(c.Request.Context()).Omit("Customer").Create(&feedback).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			respondError(c, utils.NewConflictError("Feedback has already been submitted for this order", err))
			return
		}
		respondError(c, utils.NewInternalError("Failed to save feedback", err))
		return
	}

	respondOK(c, http.StatusCreated, feedback)
}

// ListFeedbacks handles GET /api/v1/feedbacks (admin only)
func ListFeedbacks(c *gin.Context) {
	page, limit := utils.ParsePagination(c)
	db := config.GetDB().WithContext(c.Request.Context())

	var total int64
	if err := db.Model(&models.Feedback{}).Count(&total).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve feedback", err))
		return
	}

	var feedbacks []models.Feedback
	if err := db.Preload("Customer").Order("created_at DESC").Order("id DESC").
		Offset(utils.Offset(page, limit)).Limit(limit).Find(&feedbacks).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve feedback", err))
		return
	}

	respondPage(c, feedbacks, utils.NewPagination(page, limit, total))
}

// GetOrderFeedback handles GET /api/v1/feedbacks/order/:id
func GetOrderFeedback(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetForUser(c.Request.Context(), c.Param("id"), *user)
	if err != nil {
		respondError(c, err)
		return
	}

	var feedback models.Feedback
	if err := config.GetDB().WithContext(c.Request.Context()).Where("order_id = ?", order.ID).First(&feedback).Error; err != nil {
		if utils.IsNotFound(err) {
			respondError(c, utils.NewNotFoundError("FEEDBACK_NOT_FOUND", "No feedback has been submitted for this order"))
			return
		}
		respondError(c, utils.NewInternalError("Failed to retrieve feedback", err))
		return
	}

	respondOK(c, http.StatusOK, feedback)
}
