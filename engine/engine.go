package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/ext"
	"github.com/xraph/performs/id"
	"github.com/xraph/performs/job"
	mw "github.com/xraph/performs/middleware"
	"github.com/xraph/performs/observability"
	"github.com/xraph/performs/queue"
	"github.com/xraph/performs/worker"
)

const instrumentationName = "github.com/xraph/performs"

// Engine registers handlers, persists jobs and runs them on a worker pool.
type Engine struct {
	config     Config
	logger     *slog.Logger
	store      job.Store
	extensions *ext.Registry
	registry   *job.Registry
	bo         backoff.Strategy
	pool       *worker.Pool
	mws        []mw.Middleware
	exts       []ext.Extension

	queueConfigs []queue.Config
	queueManager *queue.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	mu      sync.Mutex
	started bool
}

// New creates an Engine. A store is required.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		registry: job.NewRegistry(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.store == nil {
		return nil, job.ErrNoStore
	}
	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware and the lifecycle metrics extension.
	var (
		metricsMw mw.Middleware
		obsExt    *observability.MetricsExtension
	)
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		metricsMw = mw.Metrics()
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default stack: recover → tracing → metrics → logging → current → timeout.
	allMws := make([]mw.Middleware, 0, 6+len(eng.mws))
	allMws = append(allMws,
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Current(),
		mw.Timeout(),
	)
	allMws = append(allMws, eng.mws...)

	executor := worker.NewExecutor(eng.registry, eng.extensions, eng.store, eng.bo, eng.logger, allMws...)

	poolOpts := []worker.PoolOption{
		worker.WithPoolConcurrency(eng.config.Concurrency),
		worker.WithPoolQueues(eng.config.Queues),
		worker.WithPollInterval(eng.config.PollInterval),
	}
	if len(eng.queueConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
		poolOpts = append(poolOpts, worker.WithQueueManager(eng.queueManager))
	}
	eng.pool = worker.NewPool(eng.store, executor, eng.extensions, eng.logger, poolOpts...)

	return eng, nil
}

// Register installs the handler and failure policy for a job name.
// Registering a name again replaces the previous entry.
func (eng *Engine) Register(name string, h job.HandlerFunc, p job.Policy) {
	eng.registry.Register(name, h, p)
	eng.logger.Debug("job handler registered", slog.String("job_name", name))
}

// RegisterDefinition registers a typed job definition with the engine.
func RegisterDefinition[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// EnqueueValue marshals payload as JSON and enqueues a job for name.
func EnqueueValue[T any](ctx context.Context, eng *Engine, name string, payload T, opts ...job.Option) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %q: %w", name, err)
	}
	return eng.EnqueueRaw(ctx, name, data, opts...)
}

// EnqueueRaw enqueues a job with a pre-serialized payload.
func (eng *Engine) EnqueueRaw(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error) {
	j := job.New(name, payload, opts...)
	if err := eng.Enqueue(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Enqueue persists a prepared job and emits JobEnqueued. Empty ID, queue,
// state, RunAt and timestamps are filled in.
func (eng *Engine) Enqueue(ctx context.Context, j *job.Job) error {
	eng.prepare(j, time.Now().UTC())
	if err := eng.store.EnqueueJob(ctx, j); err != nil {
		return fmt.Errorf("enqueue %s: %w", j.Name, err)
	}
	eng.extensions.EmitJobEnqueued(ctx, j)
	return nil
}

// EnqueueBulk persists jobs with a single store call. Either every job is
// stored or none is. An empty slice is a no-op.
func (eng *Engine) EnqueueBulk(ctx context.Context, jobs []*job.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, j := range jobs {
		eng.prepare(j, now)
	}
	if err := eng.store.EnqueueJobs(ctx, jobs); err != nil {
		return fmt.Errorf("enqueue %d jobs: %w", len(jobs), err)
	}
	for _, j := range jobs {
		eng.extensions.EmitJobEnqueued(ctx, j)
	}
	eng.logger.Debug("jobs enqueued in bulk", slog.Int("count", len(jobs)))
	return nil
}

func (eng *Engine) prepare(j *job.Job, now time.Time) {
	if j.ID.IsNil() {
		j.ID = id.NewJobID()
	}
	if j.Queue == "" {
		j.Queue = job.DefaultOptions().Queue
	}
	if j.State == "" {
		j.State = job.StatePending
	}
	if j.RunAt.IsZero() {
		j.RunAt = now
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
}

// Start begins job processing. Starting a started engine is a no-op.
func (eng *Engine) Start(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.started {
		return nil
	}
	if err := eng.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	if err := eng.pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	eng.started = true
	return nil
}

// Stop stops the worker pool, notifies extensions and closes the store.
// Without a deadline on ctx, the configured ShutdownTimeout applies.
func (eng *Engine) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && eng.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.config.ShutdownTimeout)
		defer cancel()
	}

	eng.mu.Lock()
	started := eng.started
	eng.started = false
	eng.mu.Unlock()

	if started {
		if err := eng.pool.Stop(ctx); err != nil {
			eng.logger.Error("pool stop error", slog.String("error", err.Error()))
		}
	}
	eng.extensions.EmitShutdown(ctx)
	return eng.store.Close()
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Store returns the job store.
func (eng *Engine) Store() job.Store { return eng.store }

// Logger returns the engine's logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }

// Config returns a copy of the engine's configuration.
func (eng *Engine) Config() Config { return eng.config }

// WorkerID returns the identifier of the engine's worker pool.
func (eng *Engine) WorkerID() id.WorkerID { return eng.pool.WorkerID() }

// QueueManager returns the queue manager, or nil if no queue configs
// were provided.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }
