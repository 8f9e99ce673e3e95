package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/merchdrop-backend/pkg/redis"
)

type memoryStore struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.failSet != nil {
		return false, m.failSet
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "md:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func newTestGuard(t *testing.T, store *memoryStore, ttl time.Duration) *Guard {
	t.Helper()
	g, err := NewGuard(store, ttl)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestClaimFirstDeliveryOnly(t *testing.T) {
	t.Setenv("INSTANCE_ID", "web.1")
	store := newMemoryStore()
	g := newTestGuard(t, store, 12*time.Hour)
	ctx := context.Background()

	first, err := g.Claim(ctx, "printify-webhook", "product:publish:started:5d39")
	if err != nil || !first {
		t.Fatalf("first claim: claimed=%v err=%v", first, err)
	}
	again, err := g.Claim(ctx, "printify-webhook", "product:publish:started:5d39")
	if err != nil || again {
		t.Fatalf("second claim: claimed=%v err=%v", again, err)
	}

	key := "md:idempotency:evt:printify-webhook:product:publish:started:5d39"
	if store.ttls[key] != 12*time.Hour {
		t.Fatalf("unexpected ttl %v for %q", store.ttls[key], key)
	}
	holder, err := g.ClaimedBy(ctx, "printify-webhook", "product:publish:started:5d39")
	if err != nil || holder != "web.1@2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected holder %q err=%v", holder, err)
	}
}

func TestReleaseAllowsRedelivery(t *testing.T) {
	g := newTestGuard(t, newMemoryStore(), time.Hour)
	ctx := context.Background()

	if ok, _ := g.Claim(ctx, "c", "evt-1"); !ok {
		t.Fatal("expected first claim")
	}
	if err := g.Release(ctx, "c", "evt-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := g.Claim(ctx, "c", "evt-1"); !ok {
		t.Fatal("expected claim after release")
	}
}

func TestClaimedByMissingKey(t *testing.T) {
	g := newTestGuard(t, newMemoryStore(), time.Hour)
	holder, err := g.ClaimedBy(context.Background(), "c", "never-seen")
	if err != nil || holder != "" {
		t.Fatalf("expected empty holder, got %q err=%v", holder, err)
	}
}

func TestClaimSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.failSet = errors.New("connection refused")
	g := newTestGuard(t, store, time.Hour)
	if _, err := g.Claim(context.Background(), "c", "evt-1"); err == nil {
		t.Fatal("expected store error")
	}
}

func TestGuardValidation(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected nil store to fail")
	}
	if _, err := NewGuard(newMemoryStore(), -time.Second); err == nil {
		t.Fatal("expected negative ttl to fail")
	}
	g, err := NewGuard(newMemoryStore(), 0)
	if err != nil || g.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %v err=%v", g, err)
	}

	ctx := context.Background()
	for _, tc := range [][2]string{{"", "evt"}, {"c", "  "}} {
		if _, err := g.Claim(ctx, tc[0], tc[1]); err == nil || !strings.Contains(err.Error(), "required") {
			t.Fatalf("expected validation error for %q/%q, got %v", tc[0], tc[1], err)
		}
	}
}
