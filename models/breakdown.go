package models

import "github.com/shopspring/decimal"

// MaterialCost is one line of a cost breakdown
type MaterialCost struct {
	Name       string          `json:"name"`
	Percentage float64         `json:"percentage"`
	WeightKg   decimal.Decimal `json:"weight_kg"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Cost       decimal.Decimal `json:"cost"`
}

// Breakdown is a structured cost computation: materials + delivery + VAT
type Breakdown struct {
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	Materials     []MaterialCost  `json:"materials"`
	MaterialTotal decimal.Decimal `json:"material_total"`
	DeliveryCost  decimal.Decimal `json:"delivery_cost"`
	IsLocal       bool            `json:"is_local"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	VAT           decimal.Decimal `json:"vat"`
	Total         decimal.Decimal `json:"total"`
}

// IsSet reports whether the breakdown holds a computed or staff-entered total
func (b Breakdown) IsSet() bool {
	return b.Total.IsPositive()
}
