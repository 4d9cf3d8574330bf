package controllers

import (
	"net/http"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes err in the standard error envelope. Server-side
// failures are logged with their cause; clients only see the sanitized message.
func respondError(c *gin.Context, err error) {
	appErr := utils.AsAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error(c, appErr.Message, appErr.Err,
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
		)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondValidation reports a binding failure with the offending fields
func respondValidation(c *gin.Context, err error) {
	respondError(c, utils.NewValidationError("Invalid request data", utils.ValidationDetails(err)))
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondPage(c *gin.Context, data interface{}, pagination utils.Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"pagination": pagination,
	})
}

// respondOrder writes order the way reads return it, with the actions the client renders
func respondOrder(c *gin.Context, status int, order *models.Order) {
	view, err := services.GetOrderService().View(c.Request.Context(), *order)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load order state", err))
		return
	}
	respondOK(c, status, view)
}

// requireUser returns the session principal or writes a 401
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    utils.CodeUnauthorized,
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}
	return user, true
}
