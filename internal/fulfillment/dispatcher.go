package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

const (
	standardShipping = 1

	metaError    = "printify_error"
	metaRequest  = "printify_request"
	metaResponse = "printify_order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req printify.OrderRequest) (*printify.OrderResponse, error)
}

// DispatchResult carries the provider's id for the submitted order.
type DispatchResult struct {
	ExternalOrderID string `json:"external_order_id"`
}

type DispatcherParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    *orders.Repository
	Products  *catalog.Repository
	Provider  orderCreator
	Outbox    outbox.Emitter
	StoreName string
}

// Dispatcher submits paid orders to the print provider.
type Dispatcher struct {
	logg      *logger.Logger
	db        txRunner
	orders    *orders.Repository
	products  *catalog.Repository
	provider  orderCreator
	outbox    outbox.Emitter
	storeName string
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Products == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	storeName := strings.TrimSpace(params.StoreName)
	if storeName == "" {
		storeName = "Merch Drop"
	}
	return &Dispatcher{
		logg:      params.Logger,
		db:        params.DB,
		orders:    params.Orders,
		products:  params.Products,
		provider:  params.Provider,
		outbox:    params.Outbox,
		storeName: storeName,
	}, nil
}

// Dispatch builds the provider order for orderID and submits it. Every
// failure after the order is loaded is also recorded on the order.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) (*DispatchResult, error) {
	ctx = d.logg.WithOrderID(ctx, orderID.String())

	order, err := d.orders.FindByID(ctx, orderID)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	req, err := d.buildRequest(ctx, order)
	if err != nil {
		detail := err.Error()
		if typed := pkgerrors.As(err); typed != nil {
			detail = typed.Message()
		}
		d.recordFailure(ctx, order, detail, nil)
		return nil, err
	}

	resp, err := d.provider.CreateOrder(ctx, *req)
	if err != nil {
		detail := err.Error()
		if perr, ok := printify.AsProviderError(err); ok && perr.Body != "" {
			detail = perr.Body
		}
		d.recordFailure(ctx, order, detail, req)
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "submit printify order")
	}

	if err := d.recordSuccess(ctx, order, req, resp); err != nil {
		return nil, err
	}
	d.logg.Info(d.logg.WithField(ctx, "external_order_id", resp.ID), "fulfillment.submitted")
	return &DispatchResult{ExternalOrderID: resp.ID}, nil
}

// Resend re-submits a paid order that never reached the provider.
func (d *Dispatcher) Resend(ctx context.Context, orderID uuid.UUID) (*DispatchResult, error) {
	order, err := d.orders.FindByID(ctx, orderID)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be sent to fulfillment")
	}
	if order.ExternalOrderID != nil && *order.ExternalOrderID != "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was already submitted for fulfillment")
	}
	return d.Dispatch(ctx, orderID)
}

func (d *Dispatcher) buildRequest(ctx context.Context, order *models.Order) (*printify.OrderRequest, error) {
	if missing := missingFields(order); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"shipping details incomplete: missing "+strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing})
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := d.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order products")
	}

	lines := make([]printify.OrderLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok || product.ExternalID == nil || *product.ExternalID == "" {
			d.logg.Warn(d.logg.WithProductID(ctx, item.ProductID.String()), "fulfillment.item_skipped_no_external_id")
			continue
		}
		line := printify.OrderLineItem{ProductID: *product.ExternalID, Quantity: item.Quantity}
		if item.VariantID != nil {
			variantID, err := externalVariantID(product, *item.VariantID)
			if err != nil {
				return nil, err
			}
			line.VariantID = variantID
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fulfillable items")
	}

	return &printify.OrderRequest{
		ExternalID:               order.ID.String(),
		Label:                    fmt.Sprintf("%s - Order %s", d.storeName, order.ID.String()[:8]),
		LineItems:                lines,
		ShippingMethod:           standardShipping,
		SendShippingNotification: true,
		AddressTo:                addressTo(order),
	}, nil
}

func externalVariantID(product models.Product, variantID uuid.UUID) (int, error) {
	for _, v := range product.Variants {
		if v.ID != variantID {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(v.ExternalVariantID))
		if err != nil || id <= 0 {
			break
		}
		return id, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("variant %s of %s has no provider mapping", variantID, product.Name))
}

func (d *Dispatcher) recordFailure(ctx context.Context, order *models.Order, detail string, req *printify.OrderRequest) {
	meta := mergeMetadata(order.Metadata)
	meta[metaError] = detail
	if req != nil {
		meta[metaRequest] = req
	}
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"fulfillment_status": enums.FulfillmentStatusFailed,
			"metadata":           meta,
		}); err != nil {
			return err
		}
		lineCount := 0
		if req != nil {
			lineCount = len(req.LineItems)
		}
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfillmentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.ActorSystem,
			Data: payloads.OrderFulfillmentEvent{
				OrderID:           order.ID,
				FulfillmentStatus: enums.FulfillmentStatusFailed,
				Error:             detail,
				LineItemCount:     lineCount,
			},
		})
	})
	if err != nil {
		d.logg.Error(ctx, "fulfillment.record_failure_failed", err)
		return
	}
	d.logg.Warn(d.logg.WithField(ctx, "error", detail), "fulfillment.failed")
}

func (d *Dispatcher) recordSuccess(ctx context.Context, order *models.Order, req *printify.OrderRequest, resp *printify.OrderResponse) error {
	meta := mergeMetadata(order.Metadata)
	meta[metaResponse] = resp.Raw
	delete(meta, metaError)

	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"external_order_id":  resp.ID,
			"fulfillment_status": enums.FulfillmentStatusProcessing,
			"metadata":           meta,
		}); err != nil {
			return err
		}
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfillmentSubmitted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.ActorSystem,
			Data: payloads.OrderFulfillmentEvent{
				OrderID:           order.ID,
				FulfillmentStatus: enums.FulfillmentStatusProcessing,
				ExternalOrderID:   resp.ID,
				LineItemCount:     len(req.LineItems),
			},
		})
	})
	if err != nil {
		d.logg.Error(d.logg.WithField(ctx, "external_order_id", resp.ID), "fulfillment.record_success_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fulfillment submission")
	}
	return nil
}

func mergeMetadata(existing datatypes.JSONMap) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range existing {
		out[k] = v
	}
	return out
}
