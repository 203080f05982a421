package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/performs/job"
)

// entry pairs a hook implementation with the extension name captured at
// registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobEnqueued  []entry[JobEnqueued]
	jobStarted   []entry[JobStarted]
	jobCompleted []entry[JobCompleted]
	jobFailed    []entry[JobFailed]
	jobRetrying  []entry[JobRetrying]
	jobDiscarded []entry[JobDiscarded]
	shutdown     []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// cache appends e to list when it implements H.
func cache[H any](list []entry[H], e Extension) []entry[H] {
	if h, ok := e.(H); ok {
		return append(list, entry[H]{name: e.Name(), hook: h})
	}
	return list
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)

	r.jobEnqueued = cache(r.jobEnqueued, e)
	r.jobStarted = cache(r.jobStarted, e)
	r.jobCompleted = cache(r.jobCompleted, e)
	r.jobFailed = cache(r.jobFailed, e)
	r.jobRetrying = cache(r.jobRetrying, e)
	r.jobDiscarded = cache(r.jobDiscarded, e)
	r.shutdown = cache(r.shutdown, e)
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

func emit[H any](r *Registry, list []entry[H], hook string, call func(H) error) {
	for _, e := range list {
		if err := call(e.hook); err != nil {
			r.logHookError(hook, e.name, err)
		}
	}
}

// EmitJobEnqueued notifies all extensions that implement JobEnqueued.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	emit(r, r.jobEnqueued, "OnJobEnqueued", func(h JobEnqueued) error {
		return h.OnJobEnqueued(ctx, j)
	})
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	emit(r, r.jobStarted, "OnJobStarted", func(h JobStarted) error {
		return h.OnJobStarted(ctx, j)
	})
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	emit(r, r.jobCompleted, "OnJobCompleted", func(h JobCompleted) error {
		return h.OnJobCompleted(ctx, j, elapsed)
	})
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	emit(r, r.jobFailed, "OnJobFailed", func(h JobFailed) error {
		return h.OnJobFailed(ctx, j, jobErr)
	})
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	emit(r, r.jobRetrying, "OnJobRetrying", func(h JobRetrying) error {
		return h.OnJobRetrying(ctx, j, attempt, nextRunAt)
	})
}

// EmitJobDiscarded notifies all extensions that implement JobDiscarded.
func (r *Registry) EmitJobDiscarded(ctx context.Context, j *job.Job, rule string, jobErr error) {
	emit(r, r.jobDiscarded, "OnJobDiscarded", func(h JobDiscarded) error {
		return h.OnJobDiscarded(ctx, j, rule, jobErr)
	})
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, r.shutdown, "OnShutdown", func(h Shutdown) error {
		return h.OnShutdown(ctx)
	})
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors never reach the caller.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
