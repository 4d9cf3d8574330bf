package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// VerifyPaymentRequest represents staff's verdict on a submitted proof
type VerifyPaymentRequest struct {
	Status   string     `json:"status" binding:"required,oneof=Verified Rejected"`
	Deadline *time.Time `json:"deadline"`
}

// SubmitPayment handles POST /api/v1/payments/submit - multipart upload of a proof of payment
func SubmitPayment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	orderID := c.PostForm("order_id")
	if orderID == "" {
		respondError(c, utils.NewValidationError("Order ID is required", map[string]string{"order_id": "required"}))
		return
	}

	proof, err := c.FormFile("proof")
	if err != nil {
		respondError(c, utils.NewValidationError("Proof of payment is required", map[string]string{"proof": "required"}))
		return
	}

	svc := services.GetOrderService()
	payment, err := svc.SubmitPayment(c.Request.Context(), orderID, *user, c.PostForm("payment_method"), proof)
	if err != nil {
		respondError(c, err)
		return
	}

	svc.AttachProofURL(c.Request.Context(), payment)
	respondOK(c, http.StatusCreated, payment)
}

// ListPayments handles GET /api/v1/payments - payments awaiting or past review (admin only)
func ListPayments(c *gin.Context) {
	page, limit := utils.ParsePagination(c)

	query := config.GetDB().WithContext(c.Request.Context()).Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve payments", err))
		return
	}

	var payments []models.Payment
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(utils.Offset(page, limit)).Limit(limit).Find(&payments).Error; err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve payments", err))
		return
	}

	svc := services.GetOrderService()
	for i := range payments {
		svc.AttachProofURL(c.Request.Context(), &payments[i])
	}

	respondPage(c, payments, utils.NewPagination(page, limit, total))
}

// GetOrderPayment handles GET /api/v1/payments/order/:id - the latest payment of an order
func GetOrderPayment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	svc := services.GetOrderService()
	order, err := svc.GetForUser(c.Request.Context(), c.Param("id"), *user)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := svc.LatestPayment(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve payment", err))
		return
	}
	if payment == nil {
		respondError(c, utils.NewNotFoundError("PAYMENT_NOT_FOUND", "No payment has been submitted for this order"))
		return
	}

	svc.AttachProofURL(c.Request.Context(), payment)
	respondOK(c, http.StatusOK, payment)
}

// VerifyPayment handles PATCH /api/v1/payments/:id/verify (admin only)
func VerifyPayment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	payment, err := services.GetOrderService().VerifyPayment(c.Request.Context(), paymentID, *user, models.PaymentStatus(req.Status), req.Deadline)
	if err != nil {
		respondError(c, err)
		return
	}

	if payment == nil {
		respondOK(c, http.StatusOK, gin.H{
			"id":      paymentID,
			"status":  models.PaymentRejected,
			"removed": true,
		})
		return
	}
	respondOK(c, http.StatusOK, payment)
}

// DeletePayment handles DELETE /api/v1/payments/:id (admin only)
func DeletePayment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	if err := services.GetOrderService().RemovePayment(c.Request.Context(), paymentID, *user, "Payment deleted"); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": paymentID, "removed": true})
}

func paymentIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, utils.NewValidationError("Invalid payment ID", map[string]string{"id": "numeric"}))
		return 0, false
	}
	return uint(id), true
}
