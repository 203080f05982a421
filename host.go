package performs

import (
	"context"

	"github.com/xraph/performs/engine"
	"github.com/xraph/performs/job"
)

var (
	_ Host     = (*engine.Engine)(nil)
	_ BulkHost = (*engine.Engine)(nil)
)

// Host is the job engine generated jobs run on.
type Host interface {
	// Register installs the handler and failure policy for a job name.
	Register(name string, h job.HandlerFunc, p job.Policy)
	// Enqueue persists one job for asynchronous execution.
	Enqueue(ctx context.Context, j *job.Job) error
}

// BulkHost is implemented by hosts that can submit many jobs in one call.
type BulkHost interface {
	EnqueueBulk(ctx context.Context, jobs []*job.Job) error
}
