package controllers

import (
	"fmt"
	"net/http"

	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// SignContractRequest represents the request body for signing a contract
type SignContractRequest struct {
	Signature string `json:"signature"`
	Agreed    bool   `json:"agreed"`
}

// GetContract handles GET /api/v1/orders/:id/contract - renders the contract as HTML.
// With ?download=true the document is sent as an attachment.
func GetContract(c *gin.Context) {
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

	html, err := svc.Contract(c.Request.Context(), *order)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contract-%s.html"`, order.ID))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// SignContract handles POST /api/v1/orders/:id/contract/sign
func SignContract(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req SignContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := services.GetOrderService().SignContract(c.Request.Context(), c.Param("id"), *user, services.SignRequest{
		SignatureDataURL: req.Signature,
		Agreed:           req.Agreed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOrder(c, http.StatusOK, order)
}

// GetInvoice handles GET /api/v1/orders/:id/invoice - the order's price breakdown
func GetInvoice(c *gin.Context) {
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

	invoice, err := svc.Invoice(c.Request.Context(), *order)
	if err != nil {
		respondError(c, utils.AsAppError(err))
		return
	}

	respondOK(c, http.StatusOK, invoice)
}
