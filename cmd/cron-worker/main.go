// Command cron-worker runs the storefront's scheduled maintenance jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/internal/cron"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/instance"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
	"github.com/angelmondragon/merchdrop-backend/pkg/migrate"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
	"github.com/angelmondragon/merchdrop-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "cron.worker.failed", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceName
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName+":"+env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	jobs := cron.NewRegistry()
	if err := registerJobs(ctx, jobs, cfg, logg, dbClient); err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      env,
		"instance": instance.GetID(),
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "cron.worker.starting")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron.worker.stopped")
	return nil
}

// registerJobs wires retention and stale-claim cleanup always, and catalog
// sync only when Printify credentials are present.
func registerJobs(ctx context.Context, jobs *cron.Registry, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) error {
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:          logg,
		DB:              dbClient,
		Outbox:          outbox.NewRepository(dbClient.DB()),
		Retention:       cfg.Outbox.Retention,
		ParkedRetention: cfg.Outbox.ParkedRetention,
		AttemptCeiling:  cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}
	if err := jobs.Register(retention, cfg.Cron.RetentionEvery); err != nil {
		return err
	}

	stale, err := cron.NewStaleWebhookJob(cron.StaleWebhookJobParams{
		Logger:     logg,
		Ledger:     stripewebhook.NewLedger(dbClient.DB(), cfg.Webhooks.ClaimLease),
		StaleAfter: cfg.Webhooks.ClaimLease,
	})
	if err != nil {
		return fmt.Errorf("stale webhook job: %w", err)
	}
	if err := jobs.Register(stale, 0); err != nil {
		return err
	}

	if !cfg.Printify.Configured() {
		logg.Warn(ctx, "cron.catalog_sync.disabled")
		return nil
	}
	provider, err := printify.NewFromConfig(cfg.Printify,
		printify.WithLogger(logg),
		printify.WithMetrics(metrics.NewProviderMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return fmt.Errorf("printify client: %w", err)
	}
	engine, err := catalog.NewEngine(catalog.EngineParams{
		Logger:   logg,
		DB:       dbClient,
		Repo:     catalog.NewRepository(dbClient.DB()),
		Provider: provider,
	})
	if err != nil {
		return fmt.Errorf("catalog engine: %w", err)
	}
	syncJob, err := cron.NewCatalogSyncJob(cron.CatalogSyncJobParams{Logger: logg, Syncer: engine})
	if err != nil {
		return fmt.Errorf("catalog sync job: %w", err)
	}
	return jobs.Register(syncJob, 0)
}
