package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"

	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/pagination"
)

// Service exposes read access to orders for operators.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns a cursor-paginated page of orders.
func (s *Service) List(ctx context.Context, input ListInput) (*OrderList, error) {
	filter := ListFilter{Limit: input.Limit}

	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(input.FulfillmentStatus); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment status filter")
		}
		filter.FulfillmentStatus = &status
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	rows, next := pagination.Trim(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, summarize(row))
	}
	return list, nil
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderSummary, error) {
	order, err := s.repo.FindByID(ctx, id)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	summary := summarize(*order)
	return &summary, nil
}

func summarize(order models.Order) OrderSummary {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderSummary{
		ID:                order.ID,
		StripeSessionID:   order.StripeSessionID,
		Status:            order.Status,
		FulfillmentStatus: order.FulfillmentStatus,
		CustomerName:      order.CustomerName,
		CustomerEmail:     order.CustomerEmail,
		ShippingAddress:   order.ShippingAddress,
		Subtotal:          order.Subtotal,
		Shipping:          order.Shipping,
		Tax:               order.Tax,
		Total:             order.Total,
		Currency:          order.Currency,
		ExternalOrderID:   order.ExternalOrderID,
		Items:             items,
		CreatedAt:         order.CreatedAt,
	}
}
