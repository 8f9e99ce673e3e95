package checkout

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
)

func defaultPricing(t *testing.T) Pricing {
	t.Helper()
	p, err := NewPricing(config.CheckoutConfig{FreeShippingThreshold: 5000, FlatShipping: 500, TaxRate: "0.08"})
	if err != nil {
		t.Fatalf("pricing: %v", err)
	}
	return p
}

func TestQuoteShippingThreshold(t *testing.T) {
	p := defaultPricing(t)
	cases := []struct {
		subtotal, shipping, tax, total int64
	}{
		{4500, 500, 360, 5360},
		{4999, 500, 400, 5899},
		{5000, 0, 400, 5400},
		{12000, 0, 960, 12960},
	}
	for _, tc := range cases {
		got := p.Quote(tc.subtotal)
		if got.Shipping != tc.shipping || got.Tax != tc.tax || got.Total != tc.total {
			t.Fatalf("subtotal %d: unexpected totals %+v", tc.subtotal, got)
		}
	}
}

func TestQuoteTaxRounding(t *testing.T) {
	p := defaultPricing(t)
	if got := p.Quote(1993).Tax; got != 159 {
		t.Fatalf("expected 159.44 to round down, got %d", got)
	}
	if got := p.Quote(1994).Tax; got != 160 {
		t.Fatalf("expected 159.52 to round up, got %d", got)
	}

	half := Pricing{FreeShippingThreshold: 5000, FlatShipping: 500, TaxRate: decimal.RequireFromString("0.1")}
	if got := half.Quote(45).Tax; got != 5 {
		t.Fatalf("expected 4.5 to round away from zero, got %d", got)
	}
}

func TestNewPricingRejectsBadRate(t *testing.T) {
	if _, err := NewPricing(config.CheckoutConfig{TaxRate: "eight percent"}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewPricing(config.CheckoutConfig{TaxRate: "-0.01"}); err == nil {
		t.Fatal("expected negative rate error")
	}
}
