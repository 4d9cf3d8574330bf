package controllers

import (
	"net/http"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContactRequest represents a public contact-form submission
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Company string `json:"company" binding:"max=200"`
	Phone   string `json:"phone" binding:"max=50"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

// SubmitContact handles POST /api/v1/contact - relays the form to the sales inbox
func SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	mailer := services.GetEmailService()
	if mailer == nil {
		respondError(c, utils.NewUpstreamError("Email service is not configured", services.ErrEmailNotConfigured))
		return
	}

	id, err := mailer.SendContactMessage(c.Request.Context(), services.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, utils.NewUpstreamError("Failed to send your message. Please try again later.", err))
		return
	}

	logger.Info(c, "Contact message relayed", zap.String("email_id", id))
	respondOK(c, http.StatusOK, gin.H{"message": "Thank you! We will get back to you shortly."})
}
