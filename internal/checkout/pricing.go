package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
)

// Pricing computes order totals from a subtotal in minor units.
type Pricing struct {
	FreeShippingThreshold int64
	FlatShipping          int64
	TaxRate               decimal.Decimal
}

// Totals are the amounts charged for an order, all in minor units.
type Totals struct {
	Subtotal int64
	Shipping int64
	Tax      int64
	Total    int64
}

// NewPricing parses the configured tax rate.
func NewPricing(cfg config.CheckoutConfig) (Pricing, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return Pricing{}, fmt.Errorf("parse checkout tax rate: %w", err)
	}
	if rate.IsNegative() {
		return Pricing{}, fmt.Errorf("checkout tax rate must not be negative")
	}
	return Pricing{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShipping:          cfg.FlatShipping,
		TaxRate:               rate,
	}, nil
}

// Quote applies flat shipping below the free threshold and rounds tax half
// away from zero.
func (p Pricing) Quote(subtotal int64) Totals {
	shipping := p.FlatShipping
	if subtotal >= p.FreeShippingThreshold {
		shipping = 0
	}
	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}
