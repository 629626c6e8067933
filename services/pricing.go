package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/models"
)

// PricingPolicy holds the order pricing constants
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	PrepTime              time.Duration
}

// DefaultPricingPolicy is 8% tax, 3.99 delivery waived from 50.00, and a 30 minute prep window
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.08"),
		DeliveryFee:           decimal.RequireFromString("3.99"),
		FreeDeliveryThreshold: decimal.RequireFromString("50"),
		PrepTime:              30 * time.Minute,
	}
}

// PricingPolicyFromConfig builds the policy from the loaded configuration
func PricingPolicyFromConfig(cfg *config.Config) PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.NewFromFloat(cfg.TaxRate),
		DeliveryFee:           decimal.NewFromFloat(cfg.DeliveryFee),
		FreeDeliveryThreshold: decimal.NewFromFloat(cfg.FreeDeliveryThreshold),
		PrepTime:              time.Duration(cfg.PrepTimeMinutes) * time.Minute,
	}
}

// Totals is the money breakdown of an order
type Totals struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals prices line items. Values are exact; no rounding is applied,
// so total always equals subtotal + tax + delivery fee - discount.
func (p PricingPolicy) ComputeTotals(items []models.OrderItem, orderType string, discount float64) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	fee := decimal.Zero
	if orderType == models.OrderTypeDelivery && subtotal.LessThan(p.FreeDeliveryThreshold) {
		fee = p.DeliveryFee
	}

	t := Totals{
		Subtotal:    subtotal,
		Tax:         subtotal.Mul(p.TaxRate),
		DeliveryFee: fee,
		Discount:    decimal.NewFromFloat(discount),
	}
	t.Total = t.Subtotal.Add(t.Tax).Add(t.DeliveryFee).Sub(t.Discount)
	return t
}

// Apply stores the totals on the order. Each column holds the float64
// nearest to its exact value, so summing the stored floats may be off by one
// ULP from Total. Reading the columns back with decimal.NewFromFloat recovers
// the exact values, for which the total identity holds.
func (t Totals) Apply(order *models.Order) {
	order.Subtotal = t.Subtotal.InexactFloat64()
	order.Tax = t.Tax.InexactFloat64()
	order.DeliveryFee = t.DeliveryFee.InexactFloat64()
	order.Discount.Amount = t.Discount.InexactFloat64()
	order.Total = t.Total.InexactFloat64()
}
