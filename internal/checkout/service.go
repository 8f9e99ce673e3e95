package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/payloads"
	pkgstripe "github.com/angelmondragon/merchdrop-backend/pkg/stripe"
)

const (
	shippingLineName = "Shipping"
	taxLineName      = "Estimated Tax"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionGateway interface {
	CreateCheckoutSession(ctx context.Context, req pkgstripe.SessionRequest) (*pkgstripe.Session, error)
}

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// CreateCheckoutInput is the storefront checkout request.
type CreateCheckoutInput struct {
	Items          []CartItem
	CustomerEmail  string
	Origin         string
	IdempotencyKey string
}

// CheckoutResult points the buyer at the hosted payment page.
type CheckoutResult struct {
	SessionURL string    `json:"session_url"`
	SessionID  string    `json:"session_id"`
	OrderID    uuid.UUID `json:"order_id"`
}

type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Products *catalog.Repository
	Orders   *orders.Repository
	Gateway  sessionGateway
	Outbox   outbox.Emitter
	Config   config.CheckoutConfig
}

// Service turns a cart into a pending order and a hosted checkout session.
type Service struct {
	logg     *logger.Logger
	db       txRunner
	products *catalog.Repository
	orders   *orders.Repository
	gateway  sessionGateway
	outbox   outbox.Emitter
	pricing  Pricing
	cfg      config.CheckoutConfig
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Products == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	pricing, err := NewPricing(params.Config)
	if err != nil {
		return nil, err
	}
	return &Service{
		logg:     params.Logger,
		db:       params.DB,
		products: params.Products,
		orders:   params.Orders,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		pricing:  pricing,
		cfg:      params.Config,
	}, nil
}

type pricedLine struct {
	item      CartItem
	variantID *uuid.UUID
	name      string
	image     string
	unitPrice int64
}

// CreateCheckout prices the cart from the catalog, opens a Stripe session and
// persists the pending order with its item snapshots.
func (s *Service) CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured")
	}
	lines, err := s.priceCart(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.unitPrice * int64(line.item.Quantity)
	}
	totals := s.pricing.Quote(subtotal)

	// Stripe caps metadata values at 500 chars; the cart lives on the order
	orderID := uuid.New()

	origin := strings.TrimRight(strings.TrimSpace(input.Origin), "/")
	if origin == "" {
		origin = strings.TrimRight(s.cfg.DefaultOrigin, "/")
	}
	email := strings.TrimSpace(input.CustomerEmail)

	session, err := s.gateway.CreateCheckoutSession(ctx, pkgstripe.SessionRequest{
		Currency:         s.cfg.Currency,
		LineItems:        sessionLines(lines, totals),
		SuccessURL:       origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        origin + "/checkout/cancel",
		CustomerEmail:    email,
		AllowedCountries: s.cfg.AllowedCountries,
		Metadata:         map[string]string{"order_id": orderID.String()},
		IdempotencyKey:   stripeIdempotencyKey(input.IdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	if email == "" {
		email = s.cfg.GuestEmail
	}
	order := &models.Order{
		ID:                orderID,
		StripeSessionID:   session.ID,
		Status:            enums.OrderStatusPending,
		CustomerEmail:     email,
		Subtotal:          totals.Subtotal,
		Shipping:          totals.Shipping,
		Tax:               totals.Tax,
		Total:             totals.Total,
		Currency:          currencyOrDefault(s.cfg.Currency),
		FulfillmentStatus: enums.FulfillmentStatusPending,
		Metadata: datatypes.JSONMap{
			"items":       input.Items,
			"session_url": session.URL,
		},
		Items: orderItems(lines),
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.ActorCheckout,
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				StripeSessionID: session.ID,
				CustomerEmail:   order.CustomerEmail,
				ItemCount:       len(order.Items),
				Subtotal:        order.Subtotal,
				Shipping:        order.Shipping,
				Tax:             order.Tax,
				Total:           order.Total,
				Currency:        order.Currency,
			},
		})
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "stripe_session_id", session.ID), "checkout.order_persist_failed", err)
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"stripe_session_id": session.ID,
		"total":             order.Total,
		"item_count":        len(order.Items),
	})
	s.logg.Info(logCtx, "checkout.session_created")

	return &CheckoutResult{SessionURL: session.URL, SessionID: session.ID, OrderID: order.ID}, nil
}

func (s *Service) priceCart(ctx context.Context, items []CartItem) ([]pricedLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	ids := make([]uuid.UUID, 0, len(items))
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].product_id is required", i))
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	lines := make([]pricedLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
		if !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", product.Name))
		}
		line := pricedLine{item: item, name: product.Name, image: product.Thumbnail, unitPrice: product.Price}
		if item.VariantID != nil {
			for _, v := range product.Variants {
				if v.ID == *item.VariantID {
					id := v.ID
					line.variantID = &id
					line.unitPrice = v.Price
					line.name = product.Name + " - " + v.Name
					break
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func sessionLines(lines []pricedLine, totals Totals) []pkgstripe.LineItem {
	out := make([]pkgstripe.LineItem, 0, len(lines)+2)
	for _, line := range lines {
		out = append(out, pkgstripe.LineItem{
			Name:       line.name,
			ImageURL:   line.image,
			UnitAmount: line.unitPrice,
			Quantity:   int64(line.item.Quantity),
		})
	}
	if totals.Shipping > 0 {
		out = append(out, pkgstripe.LineItem{Name: shippingLineName, UnitAmount: totals.Shipping, Quantity: 1})
	}
	if totals.Tax > 0 {
		out = append(out, pkgstripe.LineItem{Name: taxLineName, UnitAmount: totals.Tax, Quantity: 1})
	}
	return out
}

func orderItems(lines []pricedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.item.ProductID,
			VariantID: line.variantID,
			Name:      line.name,
			Quantity:  line.item.Quantity,
			UnitPrice: line.unitPrice,
		})
	}
	return items
}

func currencyOrDefault(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return "usd"
	}
	return currency
}

// stripeIdempotencyKey namespaces the caller's key so it cannot collide with
// keys other services send to the same Stripe account.
func stripeIdempotencyKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return "merchdrop-checkout:" + key
}
