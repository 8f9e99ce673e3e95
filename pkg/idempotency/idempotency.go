// Package idempotency dedupes webhook deliveries. A delivery is claimed with
// SET NX under md:idempotency:evt:<consumer>:<event id>; releasing the claim
// after a failed handler lets the provider's retry through.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/merchdrop-backend/pkg/instance"
	"github.com/angelmondragon/merchdrop-backend/pkg/redis"
)

const DefaultTTL = 24 * time.Hour

type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewGuard returns a guard whose claims live for ttl; zero means DefaultTTL.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reports true when this call is the first to see eventID for consumer.
// The stored value names the claiming instance and time.
func (g *Guard) Claim(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	marker := instance.GetID() + "@" + g.now().UTC().Format(time.RFC3339)
	return g.store.SetNX(ctx, key, marker, g.ttl)
}

// Release drops a claim so a redelivery is handled again.
func (g *Guard) Release(ctx context.Context, consumer, eventID string) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

// ClaimedBy returns the marker of an existing claim, or "" if none.
func (g *Guard) ClaimedBy(ctx context.Context, consumer, eventID string) (string, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return "", err
	}
	v, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.ErrNil) {
		return "", nil
	}
	return v, err
}

func (g *Guard) key(consumer, eventID string) (string, error) {
	consumer, eventID = strings.TrimSpace(consumer), strings.TrimSpace(eventID)
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == "":
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
