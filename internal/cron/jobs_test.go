package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeSyncer struct {
	result catalog.SyncResult
	err    error
	calls  int
}

func (f *fakeSyncer) Sync(context.Context) (catalog.SyncResult, error) {
	f.calls++
	return f.result, f.err
}

func TestCatalogSyncJobSucceedsWithoutFailures(t *testing.T) {
	syncer := &fakeSyncer{result: catalog.SyncResult{SyncedCount: 3}}
	job, err := NewCatalogSyncJob(CatalogSyncJobParams{Logger: quietLogger(), Syncer: syncer})
	if err != nil {
		t.Fatalf("NewCatalogSyncJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if syncer.calls != 1 {
		t.Fatalf("expected one sync, got %d", syncer.calls)
	}
}

func TestCatalogSyncJobSurfacesProductFailures(t *testing.T) {
	syncer := &fakeSyncer{result: catalog.SyncResult{
		SyncedCount: 1,
		Failed:      []catalog.ProductFailure{{ExternalID: "p-9", Err: errors.New("detail 500")}},
	}}
	job, _ := NewCatalogSyncJob(CatalogSyncJobParams{Logger: quietLogger(), Syncer: syncer})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected per-product failure to fail the job")
	}
}

func TestCatalogSyncJobPropagatesListingError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("printify down")}
	job, _ := NewCatalogSyncJob(CatalogSyncJobParams{Logger: quietLogger(), Syncer: syncer})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected listing error")
	}
}

type fakeStaleLister struct {
	cutoff time.Time
	limit  int
	rows   []models.WebhookEvent
	err    error
}

func (f *fakeStaleLister) ListStale(_ context.Context, cutoff time.Time, limit int) ([]models.WebhookEvent, error) {
	f.cutoff, f.limit = cutoff, limit
	return f.rows, f.err
}

func TestStaleWebhookJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := "order not found"
	lister := &fakeStaleLister{rows: []models.WebhookEvent{{Source: "stripe", EventID: "evt_1", ErrorMessage: &msg}}}
	jobIface, err := NewStaleWebhookJob(StaleWebhookJobParams{Logger: quietLogger(), Ledger: lister, StaleAfter: 30 * time.Minute})
	if err != nil {
		t.Fatalf("NewStaleWebhookJob: %v", err)
	}
	job := jobIface.(*staleWebhookJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-30 * time.Minute); !lister.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, lister.cutoff)
	}
	if lister.limit != staleReportLimit {
		t.Fatalf("unexpected limit %d", lister.limit)
	}
}

func TestStaleWebhookJobPropagatesError(t *testing.T) {
	job, _ := NewStaleWebhookJob(StaleWebhookJobParams{Logger: quietLogger(), Ledger: &fakeStaleLister{err: errors.New("db")}})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
