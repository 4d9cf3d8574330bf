package controllers

import (
	"net/http"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// SendMessageRequest represents the request body for sending a support message.
// Staff must name the customer thread; customers always write to their own.
type SendMessageRequest struct {
	CustomerID *uint  `json:"customer_id"`
	EmployeeID *uint  `json:"employee_id"`
	Text       string `json:"text" binding:"required,max=4000"`
}

// SendMessage handles POST /api/v1/messages/send
func SendMessage(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	message := models.Message{
		SenderID: user.ID,
		Text:     req.Text,
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if user.IsAdmin() {
		if req.CustomerID == nil {
			respondError(c, utils.NewValidationError("customer_id is required for staff messages", map[string]string{"customer_id": "required"}))
			return
		}
		var customer models.User
		if err := db.Where("id = ? AND role = ?", *req.CustomerID, models.RoleCustomer).First(&customer).Error; err != nil {
			if utils.IsNotFound(err) {
				respondError(c, utils.NewNotFoundError("CUSTOMER_NOT_FOUND", "Customer not found"))
				return
			}
			respondError(c, utils.NewInternalError("Failed to retrieve customer", err))
			return
		}
		message.CustomerID = customer.ID
		message.SenderType = models.SenderEmployee
		message.EmployeeID = req.EmployeeID
	} else {
		if req.CustomerID != nil && *req.CustomerID != user.ID {
			respondError(c, utils.NewForbiddenError("You can only write in your own conversation"))
			return
		}
		message.CustomerID = user.ID
		message.SenderType = models.SenderCustomer
	}

	if err := db.Omit("Customer", "Sender").Create(&message).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to create message", err))
		return
	}

	// Load the sender relationship to return complete data
	if err := db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to load message details", err))
		return
	}

	c.PureJSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// GetConversation handles GET /api/v1/messages/conversation/:customerId - oldest first
func GetConversation(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		respondError(c, utils.NewValidationError("Invalid customer ID", map[string]string{"customerId": "numeric"}))
		return
	}
	if !user.IsAdmin() && uint(customerID) != user.ID {
		respondError(c, utils.NewForbiddenError("You do not have permission to view this conversation"))
		return
	}

	page, limit := utils.ParsePagination(c)
	db := config.GetDB().WithContext(c.Request.Context())

	var total int64
	if err := db.Model(&models.Message{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve messages", err))
		return
	}

	var messages []models.Message
	if err := db.Preload("Sender").Where("customer_id = ?", customerID).
		Order("created_at ASC").Order("id ASC").
		Offset(utils.Offset(page, limit)).Limit(limit).
		Find(&messages).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve messages", err))
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       messages,
		"pagination": utils.NewPagination(page, limit, total),
	})
}
