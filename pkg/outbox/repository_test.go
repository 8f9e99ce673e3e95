package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
)

func seedEvent(t *testing.T, repo *Repository, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := repo.Insert(repo.db, models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	})
	require.NoError(t, err)
	return id
}

func remainingIDs(t *testing.T, repo *Repository) map[uuid.UUID]bool {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, repo.db.Find(&rows).Error)
	out := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		out[row.ID] = true
	}
	return out
}

func TestPurgePublishedKeepsRecentAndPendingRows(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	recent := cutoff.Add(time.Hour)

	gone := seedEvent(t, repo, old, &old, 1)
	fresh := seedEvent(t, repo, old, &recent, 1)
	pending := seedEvent(t, repo, old, nil, 0)

	deleted, err := repo.PurgePublished(context.Background(), repo.db, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	left := remainingIDs(t, repo)
	require.False(t, left[gone])
	require.True(t, left[fresh])
	require.True(t, left[pending])
}

func TestPurgeParkedOnlyRemovesRowsAtCeiling(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)

	parked := seedEvent(t, repo, old, nil, 10)
	retrying := seedEvent(t, repo, old, nil, 3)
	parkedRecently := seedEvent(t, repo, cutoff.Add(time.Hour), nil, 10)

	deleted, err := repo.PurgeParked(context.Background(), repo.db, cutoff, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	left := remainingIDs(t, repo)
	require.False(t, left[parked])
	require.True(t, left[retrying])
	require.True(t, left[parkedRecently])
}

func TestPurgeRequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)
	_, err := repo.PurgePublished(context.Background(), nil, time.Now())
	require.Error(t, err)
	_, err = repo.PurgeParked(context.Background(), nil, time.Now(), 10)
	require.Error(t, err)
}

func TestMarkTerminalParksRowOutOfFetch(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	now := time.Now().UTC()
	id := seedEvent(t, repo, now, nil, 0)

	require.NoError(t, repo.MarkTerminalTx(repo.db, id, errors.New("bad payload"), 10))

	rows, err := repo.FetchUnpublishedForPublish(repo.db, 10, 10)
	require.NoError(t, err)
	require.Empty(t, rows)

	var parked models.OutboxEvent
	require.NoError(t, repo.db.First(&parked, "id = ?", id).Error)
	require.True(t, parked.Parked(10))
	require.NotNil(t, parked.LastAttemptedAt)
	require.Equal(t, "bad payload", *parked.LastError)
}

func TestMarkFailedCountsAttempt(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	id := seedEvent(t, repo, time.Now().UTC(), nil, 2)

	require.NoError(t, repo.MarkFailedTx(repo.db, id, errors.New("deadline exceeded")))

	var row models.OutboxEvent
	require.NoError(t, repo.db.First(&row, "id = ?", id).Error)
	require.Equal(t, 3, row.AttemptCount)
	require.NotNil(t, row.LastAttemptedAt)
	require.False(t, row.Parked(10))
	require.True(t, row.Parked(3))
}
