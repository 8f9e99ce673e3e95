package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/merchdrop-backend/api"
	"github.com/angelmondragon/merchdrop-backend/api/routes"
	"github.com/angelmondragon/merchdrop-backend/internal/admin"
	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/merchdrop-backend/internal/checkout"
	"github.com/angelmondragon/merchdrop-backend/internal/fulfillment"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	printifywebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/printify"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/merchdrop-backend/pkg/auth/session"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/idempotency"
	"github.com/angelmondragon/merchdrop-backend/pkg/instance"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
	"github.com/angelmondragon/merchdrop-backend/pkg/migrate"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
	"github.com/angelmondragon/merchdrop-backend/pkg/pubsub"
	"github.com/angelmondragon/merchdrop-backend/pkg/redis"
	"github.com/angelmondragon/merchdrop-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire api services", err)
		os.Exit(1)
	}

	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		deps.PubSub = pubsubClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := api.NewServer(addr, routes.NewRouter(cfg, logg, deps))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(groupCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// buildDependencies wires every service the router mounts. Provider-backed
// services are left nil when their credentials are absent.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	deps := routes.Dependencies{
		DB:      dbClient,
		Store:   redisClient,
		Metrics: promhttp.Handler(),
	}

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	sessions, err := session.NewManager(redisClient, cfg.Admin.SessionTTL)
	if err != nil {
		return deps, err
	}
	adminService, err := admin.NewService(admin.ServiceParams{
		Sessions: sessions,
		JWT:      cfg.JWT,
		KeyHash:  cfg.Admin.KeyHash,
	})
	if err != nil {
		return deps, err
	}
	deps.Admin = adminService

	query, err := catalog.NewQuery(catalogRepo)
	if err != nil {
		return deps, err
	}
	deps.Catalog = query

	importer, err := catalog.NewImporter(catalog.ImporterParams{
		Logger: logg,
		DB:     dbClient,
		Repo:   catalogRepo,
		Source: catalog.NewHTTPSource(nil),
	})
	if err != nil {
		return deps, err
	}
	deps.Import = importer

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return deps, err
	}
	deps.Orders = ordersService

	checkoutParams := checkoutsvc.ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Products: catalogRepo,
		Orders:   ordersRepo,
		Outbox:   emitter,
		Config:   cfg.Checkout,
	}
	if cfg.Stripe.APIKey != "" {
		stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			return deps, err
		}
		checkoutParams.Gateway = stripeClient
	} else {
		logg.Warn(context.Background(), "stripe api key missing; checkout disabled")
	}
	checkoutService, err := checkoutsvc.NewService(checkoutParams)
	if err != nil {
		return deps, err
	}
	deps.Checkout = checkoutService

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	publisherParams := catalog.PublisherParams{
		Logger:  logg,
		DB:      dbClient,
		Repo:    catalogRepo,
		Outbox:  emitter,
		SiteURL: cfg.App.SiteURL,
	}
	processorParams := stripewebhook.ProcessorParams{
		Logger:        logg,
		DB:            dbClient,
		Ledger:        stripewebhook.NewLedger(gormDB, cfg.Webhooks.ClaimLease),
		Orders:        ordersRepo,
		Outbox:        emitter,
		Metrics:       webhookMetrics,
		SigningSecret: cfg.Stripe.Secret,
	}

	if cfg.Printify.Configured() {
		provider, err := printify.NewFromConfig(cfg.Printify,
			printify.WithLogger(logg),
			printify.WithMetrics(metrics.NewProviderMetrics(prometheus.DefaultRegisterer)),
		)
		if err != nil {
			return deps, err
		}

		engine, err := catalog.NewEngine(catalog.EngineParams{Logger: logg, DB: dbClient, Repo: catalogRepo, Provider: provider})
		if err != nil {
			return deps, err
		}
		deps.Sync = engine

		dispatcher, err := fulfillment.NewDispatcher(fulfillment.DispatcherParams{
			Logger:    logg,
			DB:        dbClient,
			Orders:    ordersRepo,
			Products:  catalogRepo,
			Provider:  provider,
			Outbox:    emitter,
			StoreName: cfg.App.StoreName,
		})
		if err != nil {
			return deps, err
		}
		deps.Resend = dispatcher
		processorParams.Dispatcher = dispatcher
		publisherParams.Acks = provider
	} else {
		logg.Warn(context.Background(), "printify credentials missing; catalog sync and fulfillment disabled")
	}

	publisher, err := catalog.NewPublisher(publisherParams)
	if err != nil {
		return deps, err
	}
	deps.Publish = publisher

	processor, err := stripewebhook.NewProcessor(processorParams)
	if err != nil {
		return deps, err
	}
	deps.Stripe = processor

	guard, err := idempotency.NewGuard(redisClient, cfg.Printify.WebhookDedupe)
	if err != nil {
		return deps, err
	}
	printifyService, err := printifywebhook.NewService(printifywebhook.ServiceParams{
		Logger:    logg,
		Publisher: publisher,
		Guard:     guard,
		Metrics:   webhookMetrics,
		Secret:    cfg.Printify.WebhookSecret,
	})
	if err != nil {
		return deps, err
	}
	deps.Printify = printifyService

	return deps, nil
}
