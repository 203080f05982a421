package middleware

import (
	"context"

	"github.com/xraph/performs/job"
)

type jobKey struct{}

// Current returns middleware that makes the executing job available to
// the handler through JobFromContext. Performed methods use it to read
// the attempt number or job id.
func Current() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		return next(context.WithValue(ctx, jobKey{}, j))
	}
}

// JobFromContext returns the job installed by Current.
func JobFromContext(ctx context.Context) (*job.Job, bool) {
	j, ok := ctx.Value(jobKey{}).(*job.Job)
	return j, ok
}
