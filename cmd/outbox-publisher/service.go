package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/config"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/idempotency"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/metrics"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	maxBackoff         = 10 * time.Second
	maxRetryDelay      = 5 * time.Minute
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, retryAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// relayGuard remembers which events already reached a sink so a crash
// between send and commit does not notify the bot twice.
type relayGuard interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Sink          sink
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Guard         relayGuard
	Metrics       *metrics.OutboxMetrics
}

// Service drains outbox_events into the configured sink. Each poll runs in
// one transaction so row locks, published marks and dead letters commit
// together.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	sink         sink
	registry     registryResolver
	dlq          dlqRepository
	guard        relayGuard
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Sink == nil:
		return nil, errors.New("sink is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		sink:         params.Sink,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		guard:        params.Guard,
		metrics:      params.Metrics,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is cancelled. Busy batches are followed immediately
// by the next poll; idle ones sleep and failing ones back off, including
// batches where the sink rejected a send.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.sink.Ping(ctx); err != nil {
		s.logg.Error(ctx, s.sink.Name()+" ping failed", err)
		return fmt.Errorf("%s ping failed: %w", s.sink.Name(), err)
	}

	backoff := pollBackoff{base: s.pollInterval, max: maxBackoff}
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		res, err := s.processBatch(ctx)
		wait := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = backoff.fail()
		case res.sendFailures > 0:
			wait = backoff.fail()
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"sink":          s.sink.Name(),
				"claimed":       res.claimed,
				"send_failures": res.sendFailures,
				"backoff_ms":    wait.Milliseconds(),
			}), "sink rejected events, backing off")
		case res.claimed > 0:
			backoff.reset()
			continue
		default:
			backoff.reset()
		}
		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

type batchResult struct {
	claimed      int
	sendFailures int
}

// processBatch reports how many rows were claimed and how many of them the
// sink refused. Only storage failures abort the batch; per-event failures
// are recorded on the row.
func (s *Service) processBatch(ctx context.Context) (batchResult, error) {
	var res batchResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		res.claimed = len(events)
		for _, event := range events {
			sendFailed, err := s.publish(ctx, tx, event)
			if err != nil {
				return err
			}
			if sendFailed {
				res.sendFailures++
			}
		}
		return nil
	})
	return res, err
}

// publish relays one event. sendFailed is true when the sink refused a
// retryable send, whether or not the row still has attempts left.
func (s *Service) publish(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (sendFailed bool, err error) {
	fields := eventLogFields(event)
	fields["sink"] = s.sink.Name()

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return false, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUndecodable, err, fields)
	}
	fields["topic"] = resolved.Descriptor.Topic
	fields["event_id"] = resolved.Envelope.EventID

	sendErr := s.relay(ctx, event, resolved)
	if sendErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return false, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "order event relayed")
		return false, nil
	}

	var permanent registry.NonRetryableError
	if errors.As(sendErr, &permanent) {
		return false, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, sendErr, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return true, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, sendErr), fields)
	}

	retryAt := s.retryAt(attempt, time.Now().UTC())
	fields["error"] = sendErr.Error()
	fields["next_attempt_at"] = retryAt
	s.logg.Warn(s.logg.WithFields(ctx, fields), "order event relay failed, will retry")
	s.metrics.IncFailed(string(event.EventType))
	if err := s.repo.MarkFailedTx(tx, event.ID, sendErr, retryAt); err != nil {
		return true, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return true, nil
}

// retryAt schedules the next delivery of a row that has failed attempt
// times: the poll interval doubled per failure, capped at maxRetryDelay.
func (s *Service) retryAt(attempt int, now time.Time) time.Time {
	delay := s.pollInterval
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return now.Add(delay)
}

// deadLetter parks the event in outbox_dlq and retires its row in the same
// transaction.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "order event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(event.EventType), string(reason))
	return nil
}

// relay sends one resolved event. An event the guard already saw counts as
// delivered; the claim is dropped again when the send fails.
func (s *Service) relay(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no destination configured for %s", event.EventType))
	}
	eventID := resolved.Envelope.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}

	scope := idempotency.RelayScope(s.sink.Name())
	claimed := false
	if s.guard != nil {
		ok, err := s.guard.Claim(ctx, scope, eventID)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "relay guard unavailable, sending anyway")
		case !ok:
			s.logg.Info(s.logg.WithField(ctx, "event_id", eventID), "order event already relayed")
			return nil
		default:
			claimed = true
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err := s.sink.Send(sendCtx, message{
		Topic:   topic,
		Key:     event.AggregateID,
		Payload: event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil && claimed {
		if relErr := s.guard.Release(ctx, scope, eventID); relErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "failed to release relay claim")
		}
	}
	return err
}

func eventLogFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// pollBackoff doubles the wait after each failed batch up to max.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func (b *pollBackoff) fail() time.Duration {
	next := b.current * 2
	if b.current <= 0 {
		next = b.base * 2
	}
	if next > b.max {
		next = b.max
	}
	b.current = next
	return next
}

func (b *pollBackoff) reset() { b.current = 0 }

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
