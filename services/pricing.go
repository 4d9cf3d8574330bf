package services

import (
	"fmt"
	"sort"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/shopspring/decimal"
)

// Delivery tariff in PHP
var (
	localDeliveryBase         = decimal.NewFromInt(1000)
	internationalDeliveryBase = decimal.NewFromInt(5000)
	localPerExtraKg           = decimal.NewFromInt(500)
	internationalPerExtraKg   = decimal.NewFromInt(1000)
	freeWeightKg              = decimal.NewFromInt(10)

	// DefaultVATRate is the Philippine VAT rate, used when VAT_RATE is unset
	DefaultVATRate = decimal.NewFromFloat(0.12)
)

// PricingInput is everything a breakdown depends on
type PricingInput struct {
	UnitWeightGrams float64
	Quantity        int
	Materials       models.MaterialMix
	PricePerKg      map[string]decimal.Decimal // keyed by material name
	IsLocal         bool
	VATRate         decimal.Decimal
}

// UnknownMaterialError is returned when the mix names a material without a price
type UnknownMaterialError struct {
	Name string
}

func (e *UnknownMaterialError) Error() string {
	return fmt.Sprintf("no price for material %q", e.Name)
}

// DeliveryCost is the flat base plus a surcharge per started kilogram over the free weight
func DeliveryCost(totalWeightKg decimal.Decimal, isLocal bool) decimal.Decimal {
	base, perKg := localDeliveryBase, localPerExtraKg
	if !isLocal {
		base, perKg = internationalDeliveryBase, internationalPerExtraKg
	}

	excess := totalWeightKg.Sub(freeWeightKg)
	if excess.IsNegative() {
		excess = decimal.Zero
	}
	return base.Add(excess.Ceil().Mul(perKg))
}

// ComputeBreakdown prices an order: materials by weight share, delivery, then VAT
func ComputeBreakdown(in PricingInput) (models.Breakdown, error) {
	if in.Quantity <= 0 {
		return models.Breakdown{}, fmt.Errorf("quantity must be positive")
	}
	if in.UnitWeightGrams <= 0 {
		return models.Breakdown{}, fmt.Errorf("unit weight must be positive")
	}

	rate := in.VATRate
	if rate.IsNegative() {
		return models.Breakdown{}, fmt.Errorf("VAT rate must not be negative")
	}

	totalWeightKg := decimal.NewFromFloat(in.UnitWeightGrams).
		Mul(decimal.NewFromInt(int64(in.Quantity))).
		Div(decimal.NewFromInt(1000))

	names := make([]string, 0, len(in.Materials))
	for name := range in.Materials {
		names = append(names, name)
	}
	sort.Strings(names)

	b := models.Breakdown{
		TotalWeightKg: totalWeightKg.Round(3),
		IsLocal:       in.IsLocal,
		VATRate:       rate,
		MaterialTotal: decimal.Zero,
	}

	for _, name := range names {
		price, ok := in.PricePerKg[name]
		if !ok {
			return models.Breakdown{}, &UnknownMaterialError{Name: name}
		}
		share := in.Materials[name]
		weight := decimal.NewFromFloat(share).Div(decimal.NewFromInt(100)).Mul(totalWeightKg)
		cost := price.Mul(weight).Round(2)

		b.Materials = append(b.Materials, models.MaterialCost{
			Name:       name,
			Percentage: share,
			WeightKg:   weight.Round(3),
			PricePerKg: price,
			Cost:       cost,
		})
		b.MaterialTotal = b.MaterialTotal.Add(cost)
	}

	b.DeliveryCost = DeliveryCost(totalWeightKg, in.IsLocal).Round(2)
	b.Subtotal = b.MaterialTotal.Add(b.DeliveryCost)
	b.VAT = b.Subtotal.Mul(rate).Round(2)
	b.Total = b.Subtotal.Add(b.VAT)

	return b, nil
}
