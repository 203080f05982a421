package middleware

import (
	"context"

	"github.com/xraph/performs/job"
)

// Timeout returns middleware that enforces the job's Timeout. A zero
// Timeout leaves the context untouched; otherwise the handler sees a
// context that is cancelled at the deadline.
func Timeout() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, j.Timeout)
		defer cancel()
		return next(ctx)
	}
}
