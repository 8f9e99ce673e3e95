package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/internal/fulfillment"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/payloads"
)

var errMissingObject = errors.New("event has no checkout session object")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) (*fulfillment.DispatchResult, error)
}

// Ack is returned for every accepted delivery.
type Ack struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

type ProcessorParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Ledger        *Ledger
	Orders        *orders.Repository
	Outbox        outbox.Emitter
	Dispatcher    dispatcher
	Metrics       *metrics.WebhookMetrics
	SigningSecret string
}

// Processor applies Stripe checkout events to orders exactly once.
type Processor struct {
	logg       *logger.Logger
	db         txRunner
	ledger     *Ledger
	orders     *orders.Repository
	outbox     outbox.Emitter
	dispatcher dispatcher
	metrics    *metrics.WebhookMetrics
	secret     string
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Ledger == nil {
		return nil, errors.New("webhook ledger required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Processor{
		logg:       params.Logger,
		db:         params.DB,
		ledger:     params.Ledger,
		orders:     params.Orders,
		outbox:     params.Outbox,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		secret:     strings.TrimSpace(params.SigningSecret),
	}, nil
}

// Handle verifies and records one delivery, then processes it unless another
// delivery already owns the event.
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) (*Ack, error) {
	event, verified, err := p.decode(ctx, payload, signature)
	if err != nil {
		p.metrics.Inc(SourceStripe, "invalid")
		return nil, err
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	claimed, err := p.ledger.Claim(ctx, ClaimInput{
		EventID:        event.ID,
		EventType:      string(event.Type),
		Payload:        payload,
		SignatureValid: verified,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
	}
	if !claimed {
		p.metrics.Inc(SourceStripe, "duplicate")
		p.logg.Info(ctx, "stripe.webhook.duplicate")
		return &Ack{EventID: event.ID, EventType: string(event.Type), Duplicate: true}, nil
	}
	return p.process(ctx, event)
}

// Replay re-drives a stored event that never finished processing.
func (p *Processor) Replay(ctx context.Context, eventID string) (*Ack, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	row, err := p.ledger.Find(ctx, eventID)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook event not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load webhook event")
	}
	if row.Processed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "webhook event already processed")
	}

	var event stripe.Event
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored event payload is malformed")
	}
	claimed, err := p.ledger.Reclaim(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reclaim webhook event")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "webhook event is being processed")
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"replay":            true,
	})
	return p.process(ctx, event)
}

func (p *Processor) decode(ctx context.Context, payload []byte, signature string) (stripe.Event, bool, error) {
	var event stripe.Event
	if p.secret != "" {
		if strings.TrimSpace(signature) == "" {
			return event, false, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
		}
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return event, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature")
		}
		event = verified
	} else {
		if err := json.Unmarshal(payload, &event); err != nil {
			return event, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed stripe event")
		}
		p.logg.Warn(ctx, "stripe.webhook.signature_bypassed")
	}
	if event.ID == "" || event.Type == "" {
		return event, false, pkgerrors.New(pkgerrors.CodeValidation, "stripe event id and type are required")
	}
	return event, p.secret != "", nil
}

func (p *Processor) process(ctx context.Context, event stripe.Event) (*Ack, error) {
	ack := &Ack{EventID: event.ID, EventType: string(event.Type)}

	var err error
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = p.handleCompleted(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		err = p.handlePaymentFailed(ctx, event)
	default:
		ack.Ignored = true
	}

	if err != nil {
		p.metrics.Inc(SourceStripe, "failed")
		if recErr := p.ledger.RecordError(ctx, event.ID, err); recErr != nil {
			p.logg.Error(ctx, "stripe.webhook.record_error_failed", recErr)
		}
		p.logg.Error(ctx, "stripe.webhook.failed", err)
		return nil, err
	}
	if err := p.ledger.MarkProcessed(ctx, event.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook processed")
	}

	if ack.Ignored {
		p.metrics.Inc(SourceStripe, "ignored")
	} else {
		p.metrics.Inc(SourceStripe, "processed")
	}
	p.logg.Info(ctx, "stripe.webhook.processed")
	return ack, nil
}

func (p *Processor) handleCompleted(ctx context.Context, event stripe.Event) error {
	sess, err := decodeSession(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}

	var paidOrderID uuid.UUID
	err = p.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orders.WithTx(tx)
		order, err := repo.FindBySessionID(ctx, sess.ID)
		if dbpkg.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for checkout session").
				WithDetails(map[string]any{"stripe_session_id": sess.ID})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			p.logg.Warn(p.logg.WithField(p.logg.WithOrderID(ctx, order.ID.String()), "status", order.Status), "stripe.webhook.order_not_pending")
			return nil
		}

		updates := sess.paidUpdates(order)
		moved, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !moved {
			return nil
		}
		paidOrderID = order.ID

		var paymentID string
		if sess.PaymentIntent != nil {
			paymentID = sess.PaymentIntent.ID
		}
		email, _ := updates["customer_email"].(string)
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.ActorWebhook,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				StripeSessionID: sess.ID,
				StripePaymentID: paymentID,
				CustomerEmail:   email,
				Total:           order.Total,
				Currency:        order.Currency,
			},
		})
	})
	if err != nil {
		return err
	}
	if paidOrderID == uuid.Nil {
		return nil
	}

	p.dispatch(p.logg.WithOrderID(ctx, paidOrderID.String()), paidOrderID)
	return nil
}

// dispatch hands the paid order to fulfillment. Failures are persisted on
// the order by the dispatcher and do not fail the webhook.
func (p *Processor) dispatch(ctx context.Context, orderID uuid.UUID) {
	if p.dispatcher == nil {
		p.logg.Info(ctx, "stripe.webhook.fulfillment_not_configured")
		return
	}
	result, err := p.dispatcher.Dispatch(ctx, orderID)
	if err != nil {
		p.logg.Error(ctx, "stripe.webhook.dispatch_failed", err)
		return
	}
	p.logg.Info(p.logg.WithField(ctx, "external_order_id", result.ExternalOrderID), "stripe.webhook.dispatched")
}

func (p *Processor) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	sess, err := decodeSession(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}

	return p.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orders.WithTx(tx)
		order, err := repo.FindBySessionID(ctx, sess.ID)
		if dbpkg.IsNotFound(err) {
			p.logg.Warn(p.logg.WithField(ctx, "stripe_session_id", sess.ID), "stripe.webhook.order_missing_for_failed_session")
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		moved, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusFailed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
		}
		if !moved {
			return nil
		}
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.ActorWebhook,
			Data: payloads.OrderPaymentFailedEvent{
				OrderID:         order.ID,
				StripeSessionID: sess.ID,
				Reason:          string(event.Type),
			},
		})
	})
}
