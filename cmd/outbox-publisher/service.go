package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	batchTimeout       = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
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

type publishRecorder interface {
	Published(eventType string)
	Failed(eventType string)
	Terminal(eventType string)
}

type nopRecorder struct{}

func (nopRecorder) Published(string) {}
func (nopRecorder) Failed(string)    {}
func (nopRecorder) Terminal(string)  {}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
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
	Metrics          publishRecorder
}

// Service drains outbox_events into Pub/Sub. Each batch is claimed inside one
// transaction, so a row is handed to at most one publisher instance at a time.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	pubsub      pubSubClient
	registry    registryResolver
	metrics     publishRecorder
	publishers  publisherFactory
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

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

	svc := &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		pubsub:      params.PubSub,
		registry:    params.Registry,
		metrics:     params.Metrics,
		publishers:  params.PublisherFactory,
		batchSize:   orDefault(params.Config.Outbox.BatchSize, defaultBatchSize),
		maxAttempts: orDefault(params.Config.Outbox.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
	}
	if ms := params.Config.Outbox.PollIntervalMS; ms > 0 {
		svc.poll = time.Duration(ms) * time.Millisecond
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	if svc.publishers == nil {
		svc.publishers = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}
	return svc, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Run polls the outbox until ctx is canceled. Idle polls wait one interval;
// failed batches back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	wait := newBackoff(s.poll, maxBackoff)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			if err := sleep(ctx, jitter(wait.Next())); err != nil {
				return err
			}
		case processed:
			wait.Reset()
		default:
			wait.Reset()
			if err := sleep(ctx, jitter(s.poll)); err != nil {
				return err
			}
		}
	}
}

// pending is a row whose message has been handed to the Pub/Sub client but
// whose server acknowledgement has not been read yet.
type pending struct {
	event        models.OutboxEvent
	fields       map[string]any
	result       publishResult
	err          error
	unresolvable bool
}

// processBatch claims a batch, publishes every message before waiting on any
// acknowledgement so the client can batch sends, then records each outcome in
// claim order. Only bookkeeping failures abort the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, batchTimeout)
		defer cancel()

		inflight := make([]pending, 0, len(events))
		for _, event := range events {
			inflight = append(inflight, s.publish(publishCtx, event))
		}
		for _, p := range inflight {
			if p.err == nil {
				_, p.err = p.result.Get(publishCtx)
			}
			if err := s.record(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent) pending {
	p := pending{event: event, fields: eventFields(event)}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		p.err, p.unresolvable = err, true
		return p
	}
	topic := resolved.Descriptor.Topic
	p.fields["topic"] = topic
	p.fields["event_id"] = resolved.Envelope.EventID

	pub := s.publishers(topic)
	if pub == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
		return p
	}
	p.result = pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if p.result == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	return p
}

// record stores the publish outcome on the row. Unresolvable rows, non-retryable
// errors and rows out of attempts become terminal; other errors are retried.
func (s *Service) record(ctx context.Context, tx *gorm.DB, p pending) error {
	eventType := string(p.event.EventType)
	logCtx := s.logg.WithFields(ctx, p.fields)

	if p.err == nil {
		if err := s.repo.MarkPublishedTx(tx, p.event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, err)
		}
		s.metrics.Published(eventType)
		s.logg.Info(logCtx, "outbox.published")
		return nil
	}

	logCtx = s.logg.WithField(logCtx, "error", p.err.Error())
	terminalErr := p.err
	var nonRetry registry.NonRetryableError
	switch {
	case p.unresolvable, errors.As(p.err, &nonRetry):
		// terminal as is
	case p.event.AttemptCount+1 >= s.maxAttempts:
		terminalErr = fmt.Errorf("max publish attempts reached: %w", p.err)
	default:
		s.metrics.Failed(eventType)
		s.logg.Warn(logCtx, "outbox.publish_failed")
		if err := s.repo.MarkFailedTx(tx, p.event.ID, p.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", p.event.ID, err)
		}
		return nil
	}

	s.metrics.Terminal(eventType)
	s.logg.Warn(logCtx, "outbox.terminal")
	if err := s.repo.MarkTerminalTx(tx, p.event.ID, terminalErr, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", p.event.ID, err)
	}
	return nil
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// backoff doubles from base up to max.
type backoff struct {
	base, max, current time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max}
}

func (b *backoff) Next() time.Duration {
	if b.current <= 0 {
		b.current = b.base
	} else {
		b.current = min(b.current*2, b.max)
	}
	return b.current
}

func (b *backoff) Reset() { b.current = 0 }

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
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

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if res := g.p.Publish(ctx, msg); res != nil {
		return res
	}
	return nil
}
