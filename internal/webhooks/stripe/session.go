package stripewebhook

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/types"
)

const guestName = "Guest"

type shippingDetails struct {
	Name    string          `json:"name"`
	Address *stripe.Address `json:"address"`
}

type customerDetails struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	Address *stripe.Address `json:"address"`
}

// checkoutSession decodes the session fields the storefront reads. Shipping
// details moved between API versions, so every known location is accepted.
type checkoutSession struct {
	ID                   string                `json:"id"`
	PaymentIntent        *stripe.PaymentIntent `json:"payment_intent"`
	CustomerEmail        string                `json:"customer_email"`
	CustomerDetails      *customerDetails      `json:"customer_details"`
	ShippingDetails      *shippingDetails      `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

func decodeSession(event stripe.Event) (*checkoutSession, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, errMissingObject
	}
	var sess checkoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sess.ID) == "" {
		return nil, errMissingObject
	}
	return &sess, nil
}

func (s *checkoutSession) shippingAddress() *types.ShippingAddress {
	var candidates []*stripe.Address
	if s.ShippingDetails != nil {
		candidates = append(candidates, s.ShippingDetails.Address)
	}
	if s.CollectedInformation != nil && s.CollectedInformation.ShippingDetails != nil {
		candidates = append(candidates, s.CollectedInformation.ShippingDetails.Address)
	}
	if s.CustomerDetails != nil {
		candidates = append(candidates, s.CustomerDetails.Address)
	}
	for _, addr := range candidates {
		if addr == nil {
			continue
		}
		out := types.ShippingAddress{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
		if !out.IsZero() {
			return &out
		}
	}
	return nil
}

// paidUpdates captures the customer and payment details onto the order.
func (s *checkoutSession) paidUpdates(order *models.Order) map[string]any {
	name, email, phone := guestName, order.CustomerEmail, ""
	if d := s.CustomerDetails; d != nil {
		if v := strings.TrimSpace(d.Name); v != "" {
			name = v
		}
		if v := strings.TrimSpace(d.Email); v != "" {
			email = v
		}
		phone = strings.TrimSpace(d.Phone)
	}
	if email == "" {
		email = strings.TrimSpace(s.CustomerEmail)
	}

	updates := map[string]any{
		"customer_name":      name,
		"customer_email":     email,
		"customer_phone":     nil,
		"fulfillment_status": enums.FulfillmentStatusProcessing,
	}
	if phone != "" {
		updates["customer_phone"] = phone
	}
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		updates["stripe_payment_id"] = s.PaymentIntent.ID
	}
	if addr := s.shippingAddress(); addr != nil {
		updates["shipping_address"] = *addr
	}
	return updates
}
