package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const (
	defaultPublishedRetention = 30 * 24 * time.Hour
	defaultAttemptCeiling     = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	PurgePublished(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	PurgeParked(ctx context.Context, tx *gorm.DB, cutoff time.Time, attemptCeiling int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Outbox outboxPurger
	// Retention applies to delivered rows.
	Retention time.Duration
	// ParkedRetention applies to rows parked at AttemptCeiling; defaults to
	// Retention so operators have the same window to inspect failures.
	ParkedRetention time.Duration
	AttemptCeiling  int
}

// RetentionResult counts rows removed by one retention pass.
type RetentionResult struct {
	Published int64
	Parked    int64
}

// NewOutboxRetentionJob prunes delivered outbox rows and rows parked at the
// attempt ceiling once they age past their windows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (*OutboxRetentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &OutboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		outbox:    params.Outbox,
		published: params.Retention,
		parked:    params.ParkedRetention,
		ceiling:   params.AttemptCeiling,
		now:       time.Now,
	}
	if job.published <= 0 {
		job.published = defaultPublishedRetention
	}
	if job.parked <= 0 {
		job.parked = job.published
	}
	if job.ceiling <= 0 {
		job.ceiling = defaultAttemptCeiling
	}
	return job, nil
}

type OutboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	outbox    outboxPurger
	published time.Duration
	parked    time.Duration
	ceiling   int
	now       func() time.Time
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	_, err := j.Purge(ctx)
	return err
}

// Purge deletes both row classes in a single transaction.
func (j *OutboxRetentionJob) Purge(ctx context.Context) (RetentionResult, error) {
	now := j.now().UTC()
	publishedCutoff := now.Add(-j.published)
	parkedCutoff := now.Add(-j.parked)

	var result RetentionResult
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		published, err := j.outbox.PurgePublished(ctx, tx, publishedCutoff)
		if err != nil {
			return fmt.Errorf("purge published: %w", err)
		}
		parked, err := j.outbox.PurgeParked(ctx, tx, parkedCutoff, j.ceiling)
		if err != nil {
			return fmt.Errorf("purge parked: %w", err)
		}
		result = RetentionResult{Published: published, Parked: parked}
		return nil
	})
	if err != nil {
		return RetentionResult{}, fmt.Errorf("outbox retention: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"published_cutoff": publishedCutoff,
		"parked_cutoff":    parkedCutoff,
		"attempt_ceiling":  j.ceiling,
		"published_purged": result.Published,
		"parked_purged":    result.Parked,
	})
	if result.Parked > 0 {
		j.logg.Warn(logCtx, "outbox.retention.parked_rows_purged")
	}
	j.logg.Info(logCtx, "outbox.retention.complete")
	return result, nil
}
