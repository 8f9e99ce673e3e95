package stripewebhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
)

const (
	SourceStripe = "stripe"

	DefaultClaimLease = 10 * time.Minute
	maxErrorLength    = 1024
)

// ClaimInput describes an inbound event about to be processed.
type ClaimInput struct {
	EventID        string
	EventType      string
	Payload        []byte
	SignatureValid bool
}

// Ledger records inbound webhook events and arbitrates which delivery gets
// to process each one. An unprocessed claim expires after the lease so a
// crashed worker does not strand the event.
type Ledger struct {
	db     *gorm.DB
	source string
	lease  time.Duration
	now    func() time.Time
}

func NewLedger(db *gorm.DB, lease time.Duration) *Ledger {
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	return &Ledger{
		db:     db,
		source: SourceStripe,
		lease:  lease,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Claim inserts the event row or takes over an expired claim. It reports
// false when another delivery owns the event or it was already processed.
func (l *Ledger) Claim(ctx context.Context, in ClaimInput) (bool, error) {
	now := l.now()
	row := models.WebhookEvent{
		ID:             uuid.New(),
		Source:         l.source,
		EventID:        in.EventID,
		EventType:      in.EventType,
		Payload:        datatypes.JSON(in.Payload),
		SignatureValid: in.SignatureValid,
		ClaimedAt:      now,
		CreatedAt:      now,
	}
	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	return l.reclaim(ctx, in.EventID, now.Add(-l.lease), now)
}

// Reclaim takes over an unprocessed event regardless of its lease. Used by
// operator replay.
func (l *Ledger) Reclaim(ctx context.Context, eventID string) (bool, error) {
	now := l.now()
	return l.reclaim(ctx, eventID, now.Add(time.Second), now)
}

func (l *Ledger) reclaim(ctx context.Context, eventID string, claimedBefore, now time.Time) (bool, error) {
	res := l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("source = ? AND event_id = ? AND processed = ? AND claimed_at < ?", l.source, eventID, false, claimedBefore).
		Updates(map[string]any{"claimed_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkProcessed closes the event and clears any earlier error.
func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) error {
	now := l.now()
	return l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("source = ? AND event_id = ?", l.source, eventID).
		Updates(map[string]any{
			"processed":     true,
			"processed_at":  now,
			"error_message": nil,
		}).Error
}

// RecordError stores the failure and releases the claim so the next
// delivery may retry immediately.
func (l *Ledger) RecordError(ctx context.Context, eventID string, cause error) error {
	msg := cause.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	return l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("source = ? AND event_id = ? AND processed = ?", l.source, eventID, false).
		Updates(map[string]any{
			"error_message": msg,
			"claimed_at":    time.Unix(0, 0).UTC(),
		}).Error
}

func (l *Ledger) Find(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var row models.WebhookEvent
	err := l.db.WithContext(ctx).
		Where("source = ? AND event_id = ?", l.source, eventID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListStale returns unprocessed events first seen before cutoff.
func (l *Ledger) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.WebhookEvent
	err := l.db.WithContext(ctx).
		Where("source = ? AND processed = ? AND created_at < ?", l.source, false, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
