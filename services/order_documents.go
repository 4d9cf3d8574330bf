package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/utils"
	"go.uber.org/zap"
)

// Invoice assembles the price breakdown of an order without modifying it
func (s *OrderService) Invoice(ctx context.Context, order models.Order) (Invoice, error) {
	inv, err := s.invoices.ForOrder(ctx, order)
	if err != nil {
		return Invoice{}, utils.NewInternalError("Failed to load invoice", err)
	}
	return inv, nil
}

// Quote prices a prospective order the way checkout would, without placing it
func (s *OrderService) Quote(ctx context.Context, customer models.User, in CreateOrderInput) (models.Breakdown, error) {
	if in.Quantity <= 0 {
		return models.Breakdown{}, utils.NewValidationError("Quantity must be greater than zero", map[string]string{"quantity": "gt"})
	}
	if err := in.Materials.Validate(); err != nil {
		return models.Breakdown{}, utils.NewValidationError(err.Error(), map[string]string{"materials": "composition"})
	}

	address := customer.Address
	if in.DeliveryAddress != nil {
		address = *in.DeliveryAddress
	}
	address.Normalize()

	var product models.Product
	if err := s.db.WithContext(ctx).Select("id", "is_active").First(&product, in.ProductID).Error; err != nil {
		if utils.IsNotFound(err) {
			return models.Breakdown{}, utils.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return models.Breakdown{}, utils.NewInternalError("Failed to load product", err)
	}
	if !product.IsActive {
		return models.Breakdown{}, utils.NewValidationError("Product is not available for ordering", nil)
	}

	b, err := s.invoices.Estimate(ctx, in.ProductID, in.Quantity, in.Materials, address)
	if err != nil {
		var unknown *UnknownMaterialError
		switch {
		case errors.As(err, &unknown):
			return models.Breakdown{}, utils.NewValidationError(fmt.Sprintf("Unknown material %q", unknown.Name), map[string]string{"materials": "unknown"})
		case utils.IsNotFound(err):
			return models.Breakdown{}, utils.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return models.Breakdown{}, utils.NewInternalError("Failed to price order", err)
	}
	return b, nil
}

// Contract renders the contract of an order as a standalone HTML document,
// embedding the stored signature when there is one
func (s *OrderService) Contract(ctx context.Context, order models.Order) (string, error) {
	inv, err := s.Invoice(ctx, order)
	if err != nil {
		return "", err
	}

	var product models.Product
	if order.Product != nil {
		product = *order.Product
	}
	doc := BuildContract(order, order.Customer, product, inv.TotalPrice)

	signatureURL := ""
	if order.SignatureKey != nil && s.files != nil {
		url, err := s.files.FileURL(ctx, *order.SignatureKey)
		if err != nil {
			logger.Warn(ctx, "Failed to resolve signature URL", zap.String("order_id", order.ID), zap.Error(err))
		} else {
			signatureURL = url
		}
	}

	html, err := RenderContractHTML(doc, signatureURL)
	if err != nil {
		return "", utils.NewInternalError("Failed to render contract", err)
	}
	return html, nil
}
