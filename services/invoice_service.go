package services

import (
	"context"
	"fmt"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Invoice sources, from most to least authoritative
const (
	InvoiceSourceFinal    = "final"
	InvoiceSourceEstimate = "estimate"
	InvoiceSourceComputed = "computed"
)

// Invoice is the cost breakdown shown for an order
type Invoice struct {
	OrderID      string           `json:"order_id"`
	Breakdown    models.Breakdown `json:"breakdown"`
	TotalPrice   decimal.Decimal  `json:"total_price"`
	IsPriceFinal bool             `json:"is_price_final"`
	Source       string           `json:"source"`
}

// InvoiceService assembles invoices from persisted breakdowns or live prices
type InvoiceService struct {
	db      *gorm.DB
	vatRate decimal.Decimal
}

// NewInvoiceService creates an invoice assembler using vatRate for recomputation.
// A zero rate means VAT-exempt pricing.
func NewInvoiceService(db *gorm.DB, vatRate float64) *InvoiceService {
	return &InvoiceService{db: db, vatRate: decimal.NewFromFloat(vatRate)}
}

// ForOrder returns the final breakdown when staff entered one, else the checkout
// estimate, else a fresh computation from current catalog prices. It never writes.
func (s *InvoiceService) ForOrder(ctx context.Context, order models.Order) (Invoice, error) {
	inv := Invoice{OrderID: order.ID}

	if b, final, ok := order.EffectiveBreakdown(); ok {
		inv.Breakdown = b
		inv.IsPriceFinal = final
		inv.Source = InvoiceSourceEstimate
		if final {
			inv.Source = InvoiceSourceFinal
		}
	} else {
		// a placed order keeps its price basis even if a material is retired later
		b, err := s.estimate(ctx, order.ProductID, order.Quantity, order.MaterialMix(), order.DeliveryAddress, false)
		if err != nil {
			return Invoice{}, err
		}
		inv.Breakdown = b
		inv.Source = InvoiceSourceComputed
	}

	inv.TotalPrice = inv.Breakdown.Total
	if order.TotalPrice.Valid {
		inv.TotalPrice = order.TotalPrice.Decimal
		inv.IsPriceFinal = true
	}
	return inv, nil
}

// Estimate prices a prospective order from current product weight and material prices.
// Inactive materials count as unknown.
func (s *InvoiceService) Estimate(ctx context.Context, productID uint, quantity int, mix models.MaterialMix, address models.Address) (models.Breakdown, error) {
	return s.estimate(ctx, productID, quantity, mix, address, true)
}

// estimate loads the product and the materials concurrently and prices the mix
func (s *InvoiceService) estimate(ctx context.Context, productID uint, quantity int, mix models.MaterialMix, address models.Address, activeOnly bool) (models.Breakdown, error) {
	names := make([]string, 0, len(mix))
	for name := range mix {
		names = append(names, name)
	}

	var product models.Product
	var materials []models.Material

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.WithContext(gctx).First(&product, productID).Error; err != nil {
			return fmt.Errorf("load product %d: %w", productID, err)
		}
		return nil
	})
	g.Go(func() error {
		query := s.db.WithContext(gctx).Where("name IN ?", names)
		if activeOnly {
			query = query.Where("is_active = ?", true)
		}
		if err := query.Find(&materials).Error; err != nil {
			return fmt.Errorf("load materials: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Breakdown{}, err
	}

	prices := make(map[string]decimal.Decimal, len(materials))
	for _, m := range materials {
		prices[m.Name] = m.PricePerKg
	}

	return ComputeBreakdown(PricingInput{
		UnitWeightGrams: product.WeightGrams,
		Quantity:        quantity,
		Materials:       mix,
		PricePerKg:      prices,
		IsLocal:         address.IsLocal(),
		VATRate:         s.vatRate,
	})
}
