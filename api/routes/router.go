package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/merchdrop-backend/api/controllers/admin"
	webhookcontrollers "github.com/angelmondragon/merchdrop-backend/api/controllers/webhooks"
	"github.com/angelmondragon/merchdrop-backend/api/middleware"
	adminsvc "github.com/angelmondragon/merchdrop-backend/internal/admin"
	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/merchdrop-backend/internal/checkout"
	"github.com/angelmondragon/merchdrop-backend/internal/fulfillment"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	printifywebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/printify"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

// Store backs request idempotency and rate limiting.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type CatalogQuery interface {
	List(ctx context.Context, input catalog.ListInput) (catalog.ListResult, error)
	Detail(ctx context.Context, slug string) (*catalog.ProductDetail, error)
}

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, input checkoutsvc.CreateCheckoutInput) (*checkoutsvc.CheckoutResult, error)
}

type OrderReader interface {
	List(ctx context.Context, input orders.ListInput) (*orders.OrderList, error)
	Get(ctx context.Context, id uuid.UUID) (*orders.OrderSummary, error)
}

type CatalogSyncer interface {
	Sync(ctx context.Context) (catalog.SyncResult, error)
}

type CatalogImporter interface {
	Import(ctx context.Context, req catalog.ImportRequest) (catalog.ImportResult, error)
}

type CatalogPublisher interface {
	BulkAcknowledge(ctx context.Context) (catalog.BulkPublishResult, error)
}

type FulfillmentResender interface {
	Resend(ctx context.Context, orderID uuid.UUID) (*fulfillment.DispatchResult, error)
}

type StripeWebhooks interface {
	Handle(ctx context.Context, payload []byte, signature string) (*stripewebhook.Ack, error)
	Replay(ctx context.Context, eventID string) (*stripewebhook.Ack, error)
}

type PrintifyWebhooks interface {
	Handle(ctx context.Context, payload []byte, signature string) (*printifywebhook.Result, error)
}

// Dependencies are the services mounted by NewRouter. Provider-backed
// services stay nil when Printify is not configured; their endpoints answer
// with a configuration error.
type Dependencies struct {
	DB       controllers.Pinger
	PubSub   controllers.Pinger
	Store    Store
	Metrics  http.Handler
	Admin    adminsvc.Service
	Catalog  CatalogQuery
	Checkout CheckoutCreator
	Orders   OrderReader
	Sync     CatalogSyncer
	Publish  CatalogPublisher
	Import   CatalogImporter
	Resend   FulfillmentResender
	Stripe   StripeWebhooks
	Printify PrintifyWebhooks
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.SiteURL),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Store != nil {
		ready["redis"] = deps.Store
	}
	if deps.PubSub != nil {
		ready["pubsub"] = deps.PubSub
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	idem := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(deps.Store, logg, policy)
	}
	optional := middleware.IdempotencyPolicy{TTL: middleware.DefaultIdempotencyTTL}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(deps.Catalog, logg))
		r.With(idem(middleware.IdempotencyPolicy{TTL: middleware.LongIdempotencyTTL})).Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.Stripe, logg))
			r.Post("/printify", webhookcontrollers.PrintifyWebhook(deps.Printify, logg))
		})
	})

	sessionLimit := middleware.RateLimit(deps.Store, logg, middleware.RateLimitPolicy{
		Name:   "admin-session",
		Window: cfg.AuthRateLimit.AdminSessionWindow,
		Limit:  cfg.AuthRateLimit.AdminSessionIPLimit,
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(sessionLimit).Post("/session", admincontrollers.SessionCreate(deps.Admin, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(deps.Admin, logg))
			r.Delete("/session", admincontrollers.SessionDelete(deps.Admin, logg))

			r.Get("/orders", admincontrollers.OrderList(deps.Orders, logg))
			r.Get("/orders/{orderId}", admincontrollers.OrderDetail(deps.Orders, logg))
			r.With(idem(middleware.IdempotencyPolicy{TTL: middleware.LongIdempotencyTTL, Required: true})).
				Post("/orders/{orderId}/fulfillment", admincontrollers.FulfillmentResend(deps.Resend, logg))
			r.With(idem(optional)).Post("/catalog/sync", admincontrollers.CatalogSync(deps.Sync, logg))
			r.With(idem(optional)).Post("/catalog/publish", admincontrollers.CatalogPublish(deps.Publish, logg))
			r.With(idem(optional)).Post("/catalog/import", admincontrollers.CatalogImport(deps.Import, logg))
			r.With(idem(optional)).Post("/webhooks/{eventId}/replay", admincontrollers.WebhookReplay(deps.Stripe, logg))
		})
	})

	return r
}
