package stripe

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
)

// LineItem is one priced row of a hosted checkout page.
type LineItem struct {
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest describes a payment-mode Checkout Session.
type SessionRequest struct {
	Currency         string
	LineItems        []LineItem
	SuccessURL       string
	CancelURL        string
	CustomerEmail    string
	AllowedCountries []string
	Metadata         map[string]string
	// IdempotencyKey is forwarded to Stripe so a retried request returns the
	// session created the first time.
	IdempotencyKey string
}

// Session is the subset of a created session the storefront keeps.
type Session struct {
	ID  string
	URL string
}

// CreateCheckoutSession creates a hosted card checkout for req.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured")
	}
	params := buildSessionParams(req)
	params.Context = ctx
	created, err := c.newSession(params)
	if err != nil {
		return nil, classify(err, "create stripe checkout session")
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	return params
}
