package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/performs/job"
)

// tracerName is the instrumentation scope name for job tracing.
const tracerName = "github.com/xraph/performs"

// Tracing returns middleware that wraps job execution in an OpenTelemetry
// span named "performs.job.execute". Without a global TracerProvider the
// noop tracer is used.
//
// Span attributes: performs.job.id, performs.job.name, performs.queue and
// performs.retry_count. Errors set the span status to codes.Error.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "performs.job.execute",
			trace.WithAttributes(
				attribute.String("performs.job.id", j.ID.String()),
				attribute.String("performs.job.name", j.Name),
				attribute.String("performs.queue", j.Queue),
				attribute.Int("performs.retry_count", j.RetryCount),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}
