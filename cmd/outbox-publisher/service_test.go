package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventID string, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		AttemptCount:  attempts,
	}
}

func resolvedOrderEvent() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "md-order-events",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderPaidEvent{},
	}
}

func TestRelayBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderEvent(t, "event-one", 0),
			orderEvent(t, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedOrderEvent()}, nil)

	tally, err := service.relayBatch(context.Background())
	if err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if tally.Retried != 1 || tally.Published != 1 {
		t.Fatalf("unexpected tally %+v", tally)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("expected second row published, got %v", repo.published)
	}
	if len(pub.resumed) != 1 || pub.resumed[0] != repo.events[0].AggregateID.String() {
		t.Fatalf("expected failed ordering key resumed, got %v", pub.resumed)
	}
}

func TestRelayBatchHoldsLaterRowsOfFailedAggregate(t *testing.T) {
	created := orderEvent(t, "created", 0)
	paid := orderEvent(t, "paid", 0)
	paid.AggregateID = created.AggregateID
	other := orderEvent(t, "other-order", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{created, paid, other}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("unavailable")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedOrderEvent()}, &config.OutboxConfig{MaxAttempts: 5})

	tally, err := service.relayBatch(context.Background())
	if err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if tally != (batchTally{Published: 1, Retried: 1, Held: 1}) {
		t.Fatalf("unexpected tally %+v", tally)
	}
	if len(pub.messages) != 2 {
		t.Fatalf("held row must not be published, sent %d messages", len(pub.messages))
	}
	if len(repo.published) != 1 || repo.published[0] != other.ID {
		t.Fatalf("expected only the unrelated order published, got %v", repo.published)
	}
}

func TestRelayBatchSetsOrderingKeyAndAttributes(t *testing.T) {
	event := orderEvent(t, "attrs", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedOrderEvent()}, nil)

	if _, err := service.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one published message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.OrderingKey != event.AggregateID.String() {
		t.Fatalf("expected ordering key %s, got %q", event.AggregateID, msg.OrderingKey)
	}
	if msg.Attributes["event_type"] != string(enums.EventOrderPaid) || msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	if msg.Attributes["event_id"] != event.ID.String() {
		t.Fatalf("expected envelope event id, got %q", msg.Attributes["event_id"])
	}
}

func TestRelayBatchParksUndecodableRow(t *testing.T) {
	event := orderEvent(t, "nonretryable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	service := newTestService(t, repo, &fakePublisher{}, reg, nil)

	tally, err := service.relayBatch(context.Background())
	if err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if tally.Parked != 1 {
		t.Fatalf("expected one parked row, got %+v", tally)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if repo.terminalAttempts != 5 {
		t.Fatalf("expected parked at max attempts, got %d", repo.terminalAttempts)
	}
}

func TestRelayBatchParksAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedOrderEvent()}, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("parked row must not also be marked failed")
	}
}

func TestRelayBatchMissingPublisherIsTerminal(t *testing.T) {
	event := orderEvent(t, "no-topic", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: resolvedOrderEvent()}, nil)
	service.publisherFor = func(string) publisher { return nil }

	if _, err := service.relayBatch(context.Background()); err != nil {
		t.Fatalf("relay batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
}

func TestRelayBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, nil)
	tally, err := service.relayBatch(context.Background())
	if err != nil || tally.total() != 0 {
		t.Fatalf("expected idle batch, got %+v err=%v", tally, err)
	}
}

func TestErrorBackoffIsCapped(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, nil)
	b := service.newErrorBackoff()
	var last time.Duration
	for i := 0; i < 20; i++ {
		next, stop := b.Next()
		if stop {
			t.Fatal("error backoff must never stop")
		}
		last = next
	}
	if last > maxBackoff+jitterWindow {
		t.Fatalf("backoff exceeded cap: %v", last)
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &config.OutboxConfig{})
	if service.batchSize != defaultBatchSize || service.maxAttempts != defaultMaxAttempts {
		t.Fatalf("unexpected defaults batch=%d attempts=%d", service.batchSize, service.maxAttempts)
	}
	if service.pollInterval != defaultPollMs*time.Millisecond {
		t.Fatalf("unexpected poll interval %v", service.pollInterval)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(_ string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
	resumed  []string
}

func (f *fakePublisher) ResumePublish(key string) {
	f.resumed = append(f.resumed, key)
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}
