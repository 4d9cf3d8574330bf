package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents the request body for placing an order
type CreateOrderRequest struct {
	ProductID       uint                 `json:"product_id" binding:"required"`
	Quantity        int                  `json:"quantity" binding:"required,gt=0"`
	Materials       map[string]float64   `json:"materials" binding:"required,min=1"`
	Customization   models.Customization `json:"customization"`
	DeliveryAddress *models.Address      `json:"delivery_address"`
}

func (r CreateOrderRequest) input() services.CreateOrderInput {
	return services.CreateOrderInput{
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		Materials:       models.MaterialMix(r.Materials),
		Customization:   r.Customization,
		DeliveryAddress: r.DeliveryAddress,
	}
}

// UpdateOrderRequest represents a staff update; omitted fields are left unchanged
type UpdateOrderRequest struct {
	Status                    *string           `json:"status" binding:"omitempty,orderstatus"`
	Reason                    string            `json:"reason"`
	TotalPrice                *decimal.Decimal  `json:"total_price"`
	FinalBreakdown            *models.Breakdown `json:"final_breakdown"`
	Deadline                  *time.Time        `json:"deadline"`
	TrackingLink              *string           `json:"tracking_link" binding:"omitempty,url"`
	RequiresContractAmendment *bool             `json:"requires_contract_amendment"`
}

// CancelOrderRequest represents the request body for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - places a new order (customers only)
func CreateOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := services.GetOrderService().Create(c.Request.Context(), *user, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusCreated, order)
}

// QuoteOrder handles POST /api/v1/orders/quote - prices a cart without placing it
func QuoteOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	breakdown, err := services.GetOrderService().Quote(c.Request.Context(), *user, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, breakdown)
}

// ListAllOrders handles GET /api/v1/orders/all - every order, filterable (admin only)
func ListAllOrders(c *gin.Context) {
	var filter services.OrderFilter

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			respondError(c, utils.NewValidationError("Invalid status filter", map[string]string{"status": "orderstatus"}))
			return
		}
		filter.Status = status
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, utils.NewValidationError("Invalid customer_id filter", map[string]string{"customer_id": "numeric"}))
			return
		}
		filter.CustomerID = uint(id)
	}
	filter.Search = c.Query("search")

	listOrders(c, filter, true)
}

// ListUserOrders handles GET /api/v1/orders/user/:id - a customer's orders
func ListUserOrders(c *gin.Context) {
	listOwnedOrders(c, false)
}

// ListUserOrdersFull handles GET /api/v1/orders/user/:id/full - a customer's orders
// with the latest payment and the available actions
func ListUserOrdersFull(c *gin.Context) {
	listOwnedOrders(c, true)
}

func listOwnedOrders(c *gin.Context, full bool) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	customerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, utils.NewValidationError("Invalid user ID", map[string]string{"id": "numeric"}))
		return
	}
	if !user.IsAdmin() && uint(customerID) != user.ID {
		respondError(c, utils.NewForbiddenError("You can only view your own orders"))
		return
	}

	listOrders(c, services.OrderFilter{CustomerID: uint(customerID)}, full)
}

func listOrders(c *gin.Context, filter services.OrderFilter, full bool) {
	page, limit := utils.ParsePagination(c)
	svc := services.GetOrderService()

	orders, total, err := svc.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve orders", err))
		return
	}

	if !full {
		respondPage(c, orders, utils.NewPagination(page, limit, total))
		return
	}

	views, err := svc.Views(c.Request.Context(), orders)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to retrieve orders", err))
		return
	}
	respondPage(c, views, utils.NewPagination(page, limit, total))
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
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

	view, err := svc.View(c.Request.Context(), *order)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load order state", err))
		return
	}

	respondOK(c, http.StatusOK, view)
}

// GetOrderActions handles GET /api/v1/orders/:id/actions - what the client may do next
func GetOrderActions(c *gin.Context) {
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

	view, err := svc.View(c.Request.Context(), *order)
	if err != nil {
		respondError(c, utils.NewInternalError("Failed to load order state", err))
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"order_id":      order.ID,
		"status":        order.Status,
		"actions":       view.Actions,
		"next_statuses": order.Status.NextStatuses(),
	})
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func GetOrderHistory(c *gin.Context) {
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

	history, err := svc.History(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, history)
}

// UpdateOrder handles PATCH /api/v1/orders/:id (admin only)
func UpdateOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	patch := services.OrderPatch{
		Reason:                    req.Reason,
		TotalPrice:                req.TotalPrice,
		FinalBreakdown:            req.FinalBreakdown,
		Deadline:                  req.Deadline,
		TrackingLink:              req.TrackingLink,
		RequiresContractAmendment: req.RequiresContractAmendment,
	}
	if req.Status != nil {
		status, err := models.ParseOrderStatus(*req.Status)
		if err != nil {
			respondError(c, utils.NewValidationError("Invalid status", map[string]string{"status": "orderstatus"}))
			return
		}
		patch.Status = &status
	}

	order, err := services.GetOrderService().Update(c.Request.Context(), c.Param("id"), *user, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel and DELETE /api/v1/orders/:id.
// The order is retained in Cancelled with the given reason.
func CancelOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if reason := c.Query("reason"); reason != "" {
		req.Reason = reason
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := services.GetOrderService().Cancel(c.Request.Context(), c.Param("id"), *user, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusOK, order)
}
