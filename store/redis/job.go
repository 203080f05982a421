package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/performs/id"
	"github.com/xraph/performs/job"
)

// EnqueueJob stores the job as a Hash and adds it to its queue.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	return s.EnqueueJobs(ctx, []*job.Job{j})
}

// EnqueueJobs stores all jobs in one MULTI/EXEC transaction after
// checking that none of them exists yet.
func (s *Store) EnqueueJobs(ctx context.Context, jobs []*job.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	keys := make([]string, len(jobs))
	for i, j := range jobs {
		keys[i] = jobKey(j.ID.String())
	}
	exists, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("performs/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %d of %d ids", job.ErrAlreadyExists, exists, len(jobs))
	}

	pipe := s.client.TxPipeline()
	for i, j := range jobs {
		jID := j.ID.String()
		pipe.HSet(ctx, keys[i], jobToMap(j))
		pipe.SAdd(ctx, jobIDsKey, jID)
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: runScore(j.RunAt), Member: jID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("performs/redis: enqueue jobs: %w", err)
	}
	return nil
}

type candidate struct {
	id       string
	queue    string
	priority int
}

// DequeueJobs claims up to limit due jobs. Within the scan window the
// highest priority wins, then the earliest RunAt.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, limit int) ([]*job.Job, error) {
	now := time.Now().UTC()
	upper := strconv.FormatInt(now.UnixMilli(), 10)

	var cands []candidate
	for _, q := range queues {
		ids, err := s.client.ZRangeByScore(ctx, queueKey(q), &goredis.ZRangeBy{
			Min:   "-inf",
			Max:   upper,
			Count: int64(s.scanWindow),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("performs/redis: dequeue range: %w", err)
		}
		for _, jID := range ids {
			p, err := s.client.HGet(ctx, jobKey(jID), "priority").Int()
			if errors.Is(err, goredis.Nil) {
				s.logger.Warn("performs/redis: dropping stale queue entry", "queue", q, "job_id", jID)
				s.client.ZRem(ctx, queueKey(q), jID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("performs/redis: dequeue priority: %w", err)
			}
			cands = append(cands, candidate{id: jID, queue: q, priority: p})
		}
	}
	sort.SliceStable(cands, func(i, k int) bool { return cands[i].priority > cands[k].priority })

	stamp := now.Format(time.RFC3339Nano)
	jobs := make([]*job.Job, 0, limit)
	for _, c := range cands {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		removed, err := s.client.ZRem(ctx, queueKey(c.queue), c.id).Result()
		if err != nil {
			return nil, fmt.Errorf("performs/redis: dequeue claim: %w", err)
		}
		if removed == 0 {
			continue // claimed by another worker
		}
		key := jobKey(c.id)
		err = s.client.HSet(ctx, key,
			"state", string(job.StateRunning),
			"started_at", stamp,
			"updated_at", stamp,
		).Err()
		if err != nil {
			return nil, fmt.Errorf("performs/redis: dequeue update: %w", err)
		}
		j, err := s.getJobByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob persists changes to an existing job. Pending and retrying
// jobs are put back on their queue at their RunAt; any other state takes
// the job off the queue.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("performs/redis: update job exists: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", job.ErrNotFound, jID)
	}

	fields := jobToMap(j)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	switch j.State {
	case job.StatePending, job.StateRetrying:
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: runScore(j.RunAt), Member: jID})
	default:
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("performs/redis: update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	q, err := s.client.HGet(ctx, key, "queue").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return fmt.Errorf("%w: %s", job.ErrNotFound, jID)
		}
		return fmt.Errorf("performs/redis: delete job get queue: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jID)
	pipe.ZRem(ctx, queueKey(q), jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("performs/redis: delete job: %w", err)
	}
	return nil
}

// ListJobsByState returns jobs in state ordered by creation time.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	all, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, 0, len(all))
	for _, j := range all {
		if j.State != state {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	all, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, j := range all {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		count++
	}
	return count, nil
}

// scan loads every job listed in the id set. Ids whose Hash vanished
// are skipped.
func (s *Store) scan(ctx context.Context) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("performs/redis: smembers: %w", err)
	}
	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, err := s.getJobByKey(ctx, jobKey(jID))
		if errors.Is(err, job.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// runScore orders a queue's Sorted Set by RunAt.
func runScore(runAt time.Time) float64 {
	return float64(runAt.UnixMilli())
}

func jobToMap(j *job.Job) map[string]any {
	m := map[string]any{
		"id":          j.ID.String(),
		"name":        j.Name,
		"queue":       j.Queue,
		"payload":     string(j.Payload),
		"state":       string(j.State),
		"priority":    strconv.Itoa(j.Priority),
		"max_retries": strconv.Itoa(j.MaxRetries),
		"retry_count": strconv.Itoa(j.RetryCount),
		"last_error":  j.LastError,
		"worker_id":   "",
		"run_at":      j.RunAt.Format(time.RFC3339Nano),
		"timeout":     strconv.FormatInt(int64(j.Timeout), 10),
		"created_at":  j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !j.WorkerID.IsNil() {
		m["worker_id"] = j.WorkerID.String()
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("performs/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, key)
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("performs/redis: parse job id: %w", err)
	}

	// Fields are written by jobToMap; parse failures leave zero values.
	priority, _ := strconv.Atoi(m["priority"])
	maxRetries, _ := strconv.Atoi(m["max_retries"])
	retryCount, _ := strconv.Atoi(m["retry_count"])
	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64)

	j := &job.Job{
		ID:         jID,
		Name:       m["name"],
		Queue:      m["queue"],
		Payload:    []byte(m["payload"]),
		State:      job.State(m["state"]),
		Priority:   priority,
		MaxRetries: maxRetries,
		RetryCount: retryCount,
		LastError:  m["last_error"],
		RunAt:      parseTime(m["run_at"]),
		Timeout:    time.Duration(timeout),
		CreatedAt:  parseTime(m["created_at"]),
		UpdatedAt:  parseTime(m["updated_at"]),
	}
	if wid := m["worker_id"]; wid != "" {
		j.WorkerID, _ = id.ParseWorkerID(wid)
	}
	if v := m["started_at"]; v != "" {
		t := parseTime(v)
		j.StartedAt = &t
	}
	if v := m["completed_at"]; v != "" {
		t := parseTime(v)
		j.CompletedAt = &t
	}
	return j, nil
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}
