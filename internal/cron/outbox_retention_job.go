package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
)

const (
	defaultRelayedRetentionDays    = 30
	defaultDeadLetterRetentionDays = 90
	pruneBatchSize                 = 500
	maxPruneBatches                = 40
)

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	Events relayedEventPruner
	// DeadLetters is optional; without it only relayed events are pruned.
	DeadLetters             deadLetterPruner
	RelayedRetentionDays    int
	DeadLetterRetentionDays int
}

type relayedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob keeps the outbox tables small: relayed order and
// stock events are dropped in batches once they age out, then dead letters
// past their own window follow.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Events == nil {
		return nil, errors.New("outbox event pruner required")
	}
	return &outboxRetentionJob{
		logg:           params.Logger,
		events:         params.Events,
		deadLetters:    params.DeadLetters,
		relayedDays:    daysOr(params.RelayedRetentionDays, defaultRelayedRetentionDays),
		deadLetterDays: daysOr(params.DeadLetterRetentionDays, defaultDeadLetterRetentionDays),
		batch:          pruneBatchSize,
		now:            time.Now,
	}, nil
}

func daysOr(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	return days
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	events         relayedEventPruner
	deadLetters    deadLetterPruner
	relayedDays    int
	deadLetterDays int
	batch          int
	now            func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	relayedCutoff := now.AddDate(0, 0, -j.relayedDays)

	relayed, drained, pruneErr := j.pruneRelayed(ctx, relayedCutoff)
	var runErr error
	if pruneErr != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("prune relayed events: %w", pruneErr))
	}

	var deadLettered int64
	if j.deadLetters != nil {
		n, err := j.deadLetters.DeleteFailedBefore(ctx, now.AddDate(0, 0, -j.deadLetterDays))
		if err != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("prune dead letters: %w", err))
		}
		deadLettered = n
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"relayed_cutoff":       relayedCutoff,
		"relayed_deleted":      relayed,
		"dead_letters_deleted": deadLettered,
		"backlog_drained":      drained,
	})
	if runErr != nil {
		return runErr
	}
	if !drained {
		j.logg.Warn(logCtx, "outbox retention hit its batch cap, remaining rows wait for the next cycle")
		return nil
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}

// pruneRelayed deletes in fixed batches until a short batch signals the
// backlog is gone or the per-run cap is reached.
func (j *outboxRetentionJob) pruneRelayed(ctx context.Context, cutoff time.Time) (int64, bool, error) {
	var total int64
	for i := 0; i < maxPruneBatches; i++ {
		if err := ctx.Err(); err != nil {
			return total, false, err
		}
		n, err := j.events.DeletePublishedBefore(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return total, false, err
		}
		if n < int64(j.batch) {
			return total, true, nil
		}
	}
	return total, false, nil
}
