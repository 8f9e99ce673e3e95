package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type catalogSyncer interface {
	Sync(ctx context.Context) (catalog.SyncResult, error)
}

type CatalogSyncJobParams struct {
	Logger *logger.Logger
	Syncer catalogSyncer
}

func NewCatalogSyncJob(params CatalogSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("catalog syncer required")
	}
	return &catalogSyncJob{logg: params.Logger, syncer: params.Syncer}, nil
}

type catalogSyncJob struct {
	logg   *logger.Logger
	syncer catalogSyncer
}

func (j *catalogSyncJob) Name() string { return "catalog-sync" }

// Run mirrors the provider catalog. Per-product failures fail the job so
// they show up in the job failure counter, after every product was tried.
func (j *catalogSyncJob) Run(ctx context.Context) error {
	result, err := j.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("catalog sync: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"synced":         result.SyncedCount,
		"pending_images": len(result.PendingImageProductIDs),
		"skipped":        len(result.Skipped),
		"failed":         len(result.Failed),
	})
	if err := result.Err(); err != nil {
		j.logg.Warn(logCtx, "catalog sync finished with failures")
		return fmt.Errorf("catalog sync: %d products failed: %w", len(result.Failed), err)
	}
	j.logg.Info(logCtx, "catalog sync complete")
	return nil
}
