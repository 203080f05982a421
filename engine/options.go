package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/ext"
	"github.com/xraph/performs/job"
	mw "github.com/xraph/performs/middleware"
	"github.com/xraph/performs/queue"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the job store.
func WithStore(s job.Store) Option {
	return func(eng *Engine) { eng.store = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithConfig replaces the worker configuration.
func WithConfig(cfg Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithConcurrency sets the maximum number of concurrent job processors.
func WithConcurrency(n int) Option {
	return func(eng *Engine) { eng.config.Concurrency = n }
}

// WithQueues sets the queues the engine polls.
func WithQueues(queues ...string) Option {
	return func(eng *Engine) { eng.config.Queues = queues }
}

// WithPollInterval sets how often idle workers poll for new jobs.
func WithPollInterval(d time.Duration) Option {
	return func(eng *Engine) { eng.config.PollInterval = d }
}

// WithShutdownTimeout sets the default graceful shutdown bound.
func WithShutdownTimeout(d time.Duration) Option {
	return func(eng *Engine) { eng.config.ShutdownTimeout = d }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds middleware after the default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the retry backoff for failures no policy rule claims.
// If not set, backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithQueueConfig registers queue-level rate limiting and concurrency
// configurations. Queues not listed have no limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware and the observability extension. If not set, the global
// provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}
