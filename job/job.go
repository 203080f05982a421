package job

import (
	"time"

	"github.com/xraph/performs/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be picked up by a worker.
	StatePending State = "pending"
	// StateRunning means a worker is currently executing the job.
	StateRunning State = "running"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateRetrying means the job failed and is scheduled for another attempt.
	StateRetrying State = "retrying"
	// StateFailed means the job exhausted its attempts.
	StateFailed State = "failed"
	// StateDiscarded means a discard rule matched the failure; the job
	// will not run again.
	StateDiscarded State = "discarded"
	// StateCancelled means the job was explicitly cancelled.
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further attempts will be made.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateDiscarded, StateCancelled:
		return true
	default:
		return false
	}
}

// Job is a unit of work persisted by a Store and run by a worker.
type Job struct {
	ID          id.JobID      `json:"id"`
	Name        string        `json:"name"`
	Queue       string        `json:"queue"`
	Payload     []byte        `json:"payload"`
	State       State         `json:"state"`
	Priority    int           `json:"priority"`
	MaxRetries  int           `json:"max_retries"`
	RetryCount  int           `json:"retry_count"`
	LastError   string        `json:"last_error,omitempty"`
	WorkerID    id.WorkerID   `json:"worker_id,omitempty"`
	RunAt       time.Time     `json:"run_at"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// New builds a pending job with the given options applied on top of
// DefaultOptions. RunAt defaults to now.
func New(name string, payload []byte, opts ...Option) *Job {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	now := time.Now().UTC()
	j := &Job{
		ID:         id.NewJobID(),
		Name:       name,
		Payload:    payload,
		State:      StatePending,
		Queue:      o.Queue,
		Priority:   o.Priority,
		MaxRetries: o.MaxRetries,
		Timeout:    o.Timeout,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !o.RunAt.IsZero() {
		j.RunAt = o.RunAt
	}
	return j
}

// Scheduled reports whether the job is held until a future time.
func (j *Job) Scheduled(now time.Time) bool {
	return j.RunAt.After(now)
}
