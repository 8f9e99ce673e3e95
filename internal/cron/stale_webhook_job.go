package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const (
	defaultStaleAfter = time.Hour
	staleReportLimit  = 100
)

type staleWebhookLister interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.WebhookEvent, error)
}

type StaleWebhookJobParams struct {
	Logger     *logger.Logger
	Ledger     staleWebhookLister
	StaleAfter time.Duration
}

// NewStaleWebhookJob reports payment events that were received but never
// finished processing, so an operator can replay them.
func NewStaleWebhookJob(params StaleWebhookJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("webhook ledger required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleWebhookJob{
		logg:       params.Logger,
		ledger:     params.Ledger,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleWebhookJob struct {
	logg       *logger.Logger
	ledger     staleWebhookLister
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleWebhookJob) Name() string { return "stale-webhooks" }

func (j *staleWebhookJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	rows, err := j.ledger.ListStale(ctx, cutoff, staleReportLimit)
	if err != nil {
		return fmt.Errorf("list stale webhooks: %w", err)
	}
	for _, row := range rows {
		fields := map[string]any{
			"source":     row.Source,
			"event_id":   row.EventID,
			"event_type": row.EventType,
			"received":   row.CreatedAt,
		}
		if row.ErrorMessage != nil {
			fields["last_error"] = *row.ErrorMessage
		}
		j.logg.Warn(j.logg.WithFields(ctx, fields), "webhook event unprocessed")
	}
	j.logg.Info(j.logg.WithField(ctx, "stale_count", len(rows)), "stale webhook scan complete")
	return nil
}
