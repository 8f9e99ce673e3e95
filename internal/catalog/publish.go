package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

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
	EventPublishStarted   = "product:publish:started"
	EventPublishSucceeded = "product:publish:succeeded"
	EventPublishFailed    = "product:publish:failed"

	defaultPublishFailure = "Publish failed"
	resetPublishReason    = "Reset publish state from custom store"
)

type publishAcknowledger interface {
	PublishingSucceeded(ctx context.Context, productID string, external printify.PublishingExternal) error
	PublishingFailed(ctx context.Context, productID, reason string) error
}

// PublishEvent is a normalized provider publish notification.
type PublishEvent struct {
	Type       string
	ExternalID string
	Reason     string
}

// PublishOutcome reports what a publish event did.
type PublishOutcome struct {
	State   enums.PublishState
	Ignored bool
	Matched bool
}

// PublishAck is one acknowledgement sent during a bulk publish.
type PublishAck struct {
	ExternalID string `json:"printify_id"`
	Handle     string `json:"handle,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BulkPublishResult summarizes BulkAcknowledge.
type BulkPublishResult struct {
	Published int          `json:"published"`
	Failed    int          `json:"failed"`
	Successes []PublishAck `json:"successes"`
	Failures  []PublishAck `json:"failures"`
}

type PublisherParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Repo    *Repository
	Acks    publishAcknowledger
	Outbox  outbox.Emitter
	SiteURL string
}

// Publisher applies provider publish transitions and sends acknowledgements.
type Publisher struct {
	logg    *logger.Logger
	db      txRunner
	repo    *Repository
	acks    publishAcknowledger
	outbox  outbox.Emitter
	siteURL string
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Publisher{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repo,
		acks:    params.Acks,
		outbox:  params.Outbox,
		siteURL: strings.TrimRight(strings.TrimSpace(params.SiteURL), "/"),
	}, nil
}

// HandlePublishEvent persists the transition first and only then tells the
// provider. Acknowledgement failures are logged, never returned.
func (p *Publisher) HandlePublishEvent(ctx context.Context, event PublishEvent) (PublishOutcome, error) {
	if strings.TrimSpace(event.Type) == "" || strings.TrimSpace(event.ExternalID) == "" {
		return PublishOutcome{}, pkgerrors.New(pkgerrors.CodeValidation, "publish event requires type and product id")
	}

	var (
		state  enums.PublishState
		active *bool
	)
	switch event.Type {
	case EventPublishStarted:
		state, active = enums.PublishStatePublishing, boolPtr(false)
	case EventPublishSucceeded:
		state, active = enums.PublishStatePublished, boolPtr(true)
	case EventPublishFailed:
		state = enums.PublishStateFailed
	default:
		return PublishOutcome{Ignored: true}, nil
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"external_product_id": event.ExternalID,
		"publish_event":       event.Type,
	})

	var product *models.Product
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		if _, err := repo.UpdatePublishState(ctx, event.ExternalID, state, active); err != nil {
			return fmt.Errorf("update publish state: %w", err)
		}
		found, err := repo.FindByExternalID(ctx, event.ExternalID)
		if dbpkg.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		product = found
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductPublishStateChanged,
			AggregateType: enums.AggregateProduct,
			AggregateID:   found.ID,
			Actor:         outbox.ActorWebhook,
			Data: payloads.ProductPublishStateChangedEvent{
				ProductID:    found.ID,
				ExternalID:   event.ExternalID,
				PublishState: state,
				Active:       found.Active,
				Reason:       event.Reason,
			},
		})
	})
	if err != nil {
		return PublishOutcome{}, err
	}

	outcome := PublishOutcome{State: state, Matched: product != nil}
	if product == nil {
		p.logg.Warn(ctx, "catalog.publish.unknown_product")
	}

	if p.acks == nil {
		return outcome, nil
	}
	switch state {
	case enums.PublishStatePublished:
		external := printify.PublishingExternal{ID: event.ExternalID, Handle: p.handleFor(event.ExternalID, "")}
		if product != nil {
			external = printify.PublishingExternal{ID: product.ID.String(), Handle: p.handleFor(event.ExternalID, product.Slug)}
		}
		if err := p.acks.PublishingSucceeded(ctx, event.ExternalID, external); err != nil {
			p.logg.Error(ctx, "catalog.publish.ack_succeeded_failed", err)
		}
	case enums.PublishStateFailed:
		reason := strings.TrimSpace(event.Reason)
		if reason == "" {
			reason = defaultPublishFailure
		}
		if err := p.acks.PublishingFailed(ctx, event.ExternalID, reason); err != nil {
			p.logg.Error(ctx, "catalog.publish.ack_failed_failed", err)
		}
	}
	return outcome, nil
}

// BulkAcknowledge re-acknowledges every provider-backed product: a best
// effort reset through publishing_failed, then publishing_succeeded.
func (p *Publisher) BulkAcknowledge(ctx context.Context) (BulkPublishResult, error) {
	if p.acks == nil {
		return BulkPublishResult{}, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured")
	}
	products, err := p.repo.ListProviderBacked(ctx)
	if err != nil {
		return BulkPublishResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provider products")
	}

	result := BulkPublishResult{Successes: []PublishAck{}, Failures: []PublishAck{}}
	for _, product := range products {
		if product.ExternalID == nil || *product.ExternalID == "" {
			continue
		}
		extID := *product.ExternalID
		productCtx := p.logg.WithProductID(ctx, extID)
		if err := p.acks.PublishingFailed(productCtx, extID, resetPublishReason); err != nil {
			p.logg.Warn(p.logg.WithField(productCtx, "error", err.Error()), "catalog.publish.reset_failed")
		}
		handle := p.handleFor(extID, product.Slug)
		if err := p.acks.PublishingSucceeded(productCtx, extID, printify.PublishingExternal{ID: product.ID.String(), Handle: handle}); err != nil {
			result.Failures = append(result.Failures, PublishAck{ExternalID: extID, Error: err.Error()})
			continue
		}
		result.Successes = append(result.Successes, PublishAck{ExternalID: extID, Handle: handle})
	}
	result.Published = len(result.Successes)
	result.Failed = len(result.Failures)

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"published": result.Published,
		"failed":    result.Failed,
	}), "catalog.publish.bulk_completed")
	return result, nil
}

func (p *Publisher) handleFor(externalID, slug string) string {
	if p.siteURL == "" {
		return ""
	}
	if slug != "" {
		return p.siteURL + "/product/" + slug
	}
	return p.siteURL + "/product/" + externalID
}

func boolPtr(v bool) *bool {
	return &v
}
