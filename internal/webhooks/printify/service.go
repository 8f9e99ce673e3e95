package printifywebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
)

const (
	SourcePrintify  = "printify"
	SignatureHeader = "X-Pfy-Signature"
	consumerName    = "printify-webhook"
)

type publishHandler interface {
	HandlePublishEvent(ctx context.Context, event catalog.PublishEvent) (catalog.PublishOutcome, error)
}

type eventGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
	ClaimedBy(ctx context.Context, consumer, eventID string) (string, error)
}

type ServiceParams struct {
	Logger    *logger.Logger
	Publisher publishHandler
	Guard     eventGuard
	Metrics   *metrics.WebhookMetrics
	Secret    string
}

// Service applies Printify publish notifications to the catalog.
type Service struct {
	logg      *logger.Logger
	publisher publishHandler
	guard     eventGuard
	metrics   *metrics.WebhookMetrics
	secret    string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Publisher == nil {
		return nil, errors.New("catalog publisher required")
	}
	return &Service{
		logg:      params.Logger,
		publisher: params.Publisher,
		guard:     params.Guard,
		metrics:   params.Metrics,
		secret:    strings.TrimSpace(params.Secret),
	}, nil
}

// Result is the acknowledgement body returned to Printify.
type Result struct {
	Event     string `json:"event"`
	ProductID string `json:"product_id"`
	State     string `json:"publish_state,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type envelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Type      string          `json:"type"`
	ProductID string          `json:"product_id"`
	Error     string          `json:"error"`
	Data      *envelopeData   `json:"data"`
	Resource  *envelopeObject `json:"resource"`
}

type envelopeData struct {
	ProductID string `json:"product_id"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
}

type envelopeObject struct {
	ID string `json:"id"`
}

func (e envelope) eventName() string {
	return firstNonEmpty(e.Event, e.Type)
}

func (e envelope) productID() string {
	var dataProduct, dataID, resourceID string
	if e.Data != nil {
		dataProduct, dataID = e.Data.ProductID, e.Data.ID
	}
	if e.Resource != nil {
		resourceID = e.Resource.ID
	}
	return firstNonEmpty(dataProduct, dataID, resourceID, e.ProductID)
}

func (e envelope) reason() string {
	var message, reason string
	if e.Data != nil {
		message, reason = e.Data.Message, e.Data.Reason
	}
	return firstNonEmpty(message, reason, e.Error)
}

// Handle verifies the optional signature, drops redeliveries and hands the
// event to the catalog publisher. A redelivery is the same delivery id, or the
// same bytes when Printify sends none; a later publish cycle for the same
// product is processed.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (*Result, error) {
	if s.secret != "" && !validSignature(payload, signature, s.secret) {
		s.metrics.Inc(SourcePrintify, "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid printify signature")
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed printify event")
	}
	event, productID := env.eventName(), env.productID()
	if event == "" || productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "printify event requires type and product id")
	}
	result := &Result{Event: event, ProductID: productID}
	ctx = s.logg.WithFields(ctx, map[string]any{"printify_event": event, "external_product_id": productID})

	key := deliveryKey(env, payload)
	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, consumerName, key)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "printify.webhook.guard_unavailable")
		} else if !claimed {
			s.metrics.Inc(SourcePrintify, "duplicate")
			result.Duplicate = true
			holder, _ := s.guard.ClaimedBy(ctx, consumerName, key)
			s.logg.Info(s.logg.WithField(ctx, "claimed_by", holder), "printify.webhook.duplicate")
			return result, nil
		}
	}

	outcome, err := s.publisher.HandlePublishEvent(ctx, catalog.PublishEvent{
		Type:       event,
		ExternalID: productID,
		Reason:     env.reason(),
	})
	if err != nil {
		s.metrics.Inc(SourcePrintify, "failed")
		if s.guard != nil {
			if delErr := s.guard.Release(ctx, consumerName, key); delErr != nil {
				s.logg.Error(ctx, "printify.webhook.guard_release_failed", delErr)
			}
		}
		return nil, err
	}

	if outcome.Ignored {
		s.metrics.Inc(SourcePrintify, "ignored")
		result.Ignored = true
		s.logg.Info(ctx, "printify.webhook.ignored")
		return result, nil
	}
	s.metrics.Inc(SourcePrintify, "processed")
	result.State = string(outcome.State)
	s.logg.Info(ctx, "printify.webhook.processed")
	return result, nil
}

// deliveryKey identifies one delivery, not one product.
func deliveryKey(env envelope, payload []byte) string {
	if id := strings.TrimSpace(env.ID); id != "" {
		return "id:" + id
	}
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func validSignature(payload []byte, header, secret string) bool {
	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "sha256=")
	given, err := hex.DecodeString(header)
	if err != nil || len(given) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(given, mac.Sum(nil))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
