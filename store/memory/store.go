// Package memory provides an in-memory job.Store for tests and
// single-process use.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/xraph/performs/id"
	"github.com/xraph/performs/job"
)

var _ job.Store = (*Store)(nil)

// Store keeps jobs in a map guarded by a mutex. Callers always receive
// copies so they can mutate jobs without racing with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*job.Job
}

// New returns a new empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*job.Job)}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// EnqueueJob persists a new job.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return fmt.Errorf("%w: %s", job.ErrAlreadyExists, key)
	}
	cp := *j
	m.jobs[key] = &cp
	return nil
}

// EnqueueJobs persists jobs in one step. Nothing is stored when any id
// is already present or repeated.
func (m *Store) EnqueueJobs(_ context.Context, jobs []*job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		key := j.ID.String()
		if _, exists := m.jobs[key]; exists {
			return fmt.Errorf("%w: %s", job.ErrAlreadyExists, key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", job.ErrAlreadyExists, key)
		}
		seen[key] = struct{}{}
	}
	for _, j := range jobs {
		cp := *j
		m.jobs[j.ID.String()] = &cp
	}
	return nil
}

// DequeueJobs claims up to limit due jobs from the given queues, highest
// priority first and then earliest RunAt, and marks them running.
func (m *Store) DequeueJobs(_ context.Context, queues []string, limit int) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	candidates := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.State != job.StatePending && j.State != job.StateRetrying {
			continue
		}
		if j.RunAt.After(now) {
			continue
		}
		if len(queues) > 0 && !slices.Contains(queues, j.Queue) {
			continue
		}
		candidates = append(candidates, j)
	}

	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].RunAt.Before(candidates[k].RunAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*job.Job, len(candidates))
	for i, j := range candidates {
		started := now
		j.State = job.StateRunning
		j.StartedAt = &started
		j.UpdatedAt = now
		cp := *j
		result[i] = &cp
	}
	return result, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, jobID)
	}
	cp := *j
	return &cp, nil
}

// UpdateJob replaces a stored job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return fmt.Errorf("%w: %s", job.ErrNotFound, key)
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = &cp
	return nil
}

// DeleteJob removes a job by ID.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return fmt.Errorf("%w: %s", job.ErrNotFound, key)
	}
	delete(m.jobs, key)
	return nil
}

// ListJobsByState returns jobs in state ordered by creation time.
func (m *Store) ListJobsByState(_ context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if j.State != state {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].ID.String() < result[k].ID.String()
		}
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if opts.State != "" && j.State != opts.State {
			continue
		}
		count++
	}
	return count, nil
}
