// Package worker provides the job execution engine: an Executor that
// runs registered handlers through middleware and applies failure
// policies, and a Pool of goroutines polling the store for due jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/ext"
	"github.com/xraph/performs/job"
	"github.com/xraph/performs/middleware"
)

// Executor runs a single job through middleware and its handler, then
// records the outcome and emits lifecycle events.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	store      job.Store
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies. bo is the
// wait strategy for failures no policy rule claims.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Executor{
		registry:   registry,
		extensions: extensions,
		store:      store,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs a job and stores the outcome. The job's policy decides
// what a failure means:
//
//   - retry rule: retried while fewer than the rule's attempts have run,
//     waiting per the rule's strategy, then failed
//   - discard rule: marked discarded, never retried
//   - no matching rule: retried up to MaxRetries with the executor's
//     backoff, then failed
//
// The handler error is returned for every failure.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	entry, ok := e.registry.Get(j.Name)
	if !ok {
		err := fmt.Errorf("%w: %q", job.ErrNoHandler, j.Name)
		j.RetryCount++
		j.LastError = err.Error()
		return e.fail(ctx, j, err, time.Now().UTC())
	}

	start := time.Now()
	err := e.mw(ctx, j, func(ctx context.Context) error {
		return entry.Handler(ctx, j.Payload)
	})
	elapsed := time.Since(start)

	now := time.Now().UTC()
	j.UpdatedAt = now
	if err != nil {
		return e.handleFailure(ctx, j, entry.Policy, err, now)
	}
	return e.handleSuccess(ctx, j, now, elapsed)
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	j.State = job.StateCompleted
	j.CompletedAt = &now
	j.LastError = ""

	if err := e.update(ctx, j, "completed"); err != nil {
		return err
	}
	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

func (e *Executor) handleFailure(ctx context.Context, j *job.Job, policy job.Policy, handlerErr error, now time.Time) error {
	j.RetryCount++
	j.LastError = handlerErr.Error()

	d := job.Decision{Action: job.ActionDefault}
	if policy != nil {
		d = policy.Decide(handlerErr)
	}

	switch d.Action {
	case job.ActionDiscard:
		return e.discard(ctx, j, d.Rule, handlerErr, now)
	case job.ActionRetry:
		if j.RetryCount < d.Attempts {
			wait := d.Wait
			if wait == nil {
				wait = e.backoff
			}
			return e.retry(ctx, j, wait.Delay(j.RetryCount), handlerErr, now)
		}
	default:
		if j.RetryCount <= j.MaxRetries {
			return e.retry(ctx, j, e.backoff.Delay(j.RetryCount), handlerErr, now)
		}
	}
	return e.fail(ctx, j, handlerErr, now)
}

func (e *Executor) retry(ctx context.Context, j *job.Job, delay time.Duration, handlerErr error, now time.Time) error {
	j.RunAt = now.Add(delay)
	j.State = job.StateRetrying

	if err := e.update(ctx, j, "retrying"); err != nil {
		return err
	}
	e.extensions.EmitJobRetrying(ctx, j, j.RetryCount, j.RunAt)

	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempt", j.RetryCount),
		slog.Duration("delay", delay),
	)
	return handlerErr
}

func (e *Executor) discard(ctx context.Context, j *job.Job, rule string, handlerErr error, now time.Time) error {
	j.State = job.StateDiscarded
	j.CompletedAt = &now

	if err := e.update(ctx, j, "discarded"); err != nil {
		return err
	}
	e.extensions.EmitJobDiscarded(ctx, j, rule, handlerErr)

	e.logger.Info("job discarded",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.String("rule", rule),
		slog.String("error", handlerErr.Error()),
	)
	return handlerErr
}

func (e *Executor) fail(ctx context.Context, j *job.Job, handlerErr error, now time.Time) error {
	j.State = job.StateFailed
	j.CompletedAt = &now

	if err := e.update(ctx, j, "failed"); err != nil {
		return err
	}
	e.extensions.EmitJobFailed(ctx, j, handlerErr)

	e.logger.Warn("job failed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempts", j.RetryCount),
		slog.String("error", handlerErr.Error()),
	)
	return handlerErr
}

func (e *Executor) update(ctx context.Context, j *job.Job, state string) error {
	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("failed to update job",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("state", state),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("update job %s: %w", j.ID, err)
	}
	return nil
}
