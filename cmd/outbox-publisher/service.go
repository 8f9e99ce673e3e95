package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

// publisher publishes with ordering keys. After a failed publish the key
// stays paused until ResumePublish is called.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// Service relays committed outbox rows to Pub/Sub. Events for one order or
// product share an ordering key so subscribers see them in commit order.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	publisherFor publisherFactory
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

// batchTally counts what one batch did with its rows. Held rows were left
// untouched because an earlier row of the same aggregate failed.
type batchTally struct {
	Published int
	Retried   int
	Parked    int
	Held      int
}

func (t batchTally) total() int { return t.Published + t.Retried + t.Parked + t.Held }

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		publisherFor: params.PublisherFactory,
		batchSize:    positiveOr(params.Config.Outbox.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(params.Config.Outbox.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(params.Config.Outbox.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}
	if s.publisherFor == nil {
		s.publisherFor = orderedPublishers(params.PubSub)
	}
	return s, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// orderedPublishers caches one ordering-enabled publisher per topic.
func orderedPublishers(client pubSubClient) publisherFactory {
	cache := map[string]publisher{}
	return func(topic string) publisher {
		if pub, ok := cache[topic]; ok {
			return pub
		}
		raw := client.Publisher(topic)
		if raw == nil {
			return nil
		}
		raw.EnableMessageOrdering = true
		pub := gcpPublisher{raw}
		cache[topic] = pub
		return pub
	}
}

func (s *Service) newErrorBackoff() retry.Backoff {
	b := retry.NewExponential(s.pollInterval)
	b = retry.WithCappedDuration(maxBackoff, b)
	return retry.WithJitter(jitterWindow, b)
}

func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	idle := retry.WithJitter(jitterWindow, retry.NewConstant(s.pollInterval))
	backoff := s.newErrorBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tally, err := s.relayBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			wait, _ = backoff.Next()
		case tally.total() == 0:
			backoff = s.newErrorBackoff()
			wait, _ = idle.Next()
		default:
			backoff = s.newErrorBackoff()
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"published": tally.Published,
				"retried":   tally.Retried,
				"parked":    tally.Parked,
				"held":      tally.Held,
			}), "outbox.batch.complete")
			// a fully held batch would spin; give the failed key a pause
			if tally.Published+tally.Parked == 0 {
				wait, _ = idle.Next()
			}
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// relayBatch publishes one batch of rows inside a single transaction so row
// locks hold until every row is marked.
func (s *Service) relayBatch(ctx context.Context) (batchTally, error) {
	var tally batchTally
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tally = batchTally{}
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}

		failedAggregates := map[uuid.UUID]bool{}
		for _, event := range events {
			if failedAggregates[event.AggregateID] {
				tally.Held++
				continue
			}
			if err := s.relayOne(ctx, tx, event, &tally, failedAggregates); err != nil {
				return err
			}
		}
		return nil
	})
	return tally, err
}

func (s *Service) relayOne(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, tally *batchTally, failedAggregates map[uuid.UUID]bool) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		tally.Parked++
		return s.park(logCtx, tx, event, "undecodable", err)
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	err = s.publish(ctx, event, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		tally.Published++
		s.logg.Info(logCtx, "outbox.event.published")
		return nil
	}

	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		tally.Parked++
		return s.park(logCtx, tx, event, "non_retryable", err)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		tally.Parked++
		return s.park(logCtx, tx, event, "max_attempts", fmt.Errorf("max publish attempts reached: %w", err))
	}

	failedAggregates[event.AggregateID] = true
	tally.Retried++
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox.event.retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return nil
}

// park moves a row to the attempt ceiling so it is never fetched again. It
// stays in the table until retention removes it.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, err error) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"park_reason": reason, "error": err.Error()})
	s.logg.Warn(ctx, "outbox.event.parked")
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	key := event.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   key,
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		pub.ResumePublish(key)
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
