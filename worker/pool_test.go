package worker_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/ext"
	"github.com/xraph/performs/job"
	"github.com/xraph/performs/middleware"
	"github.com/xraph/performs/queue"
	"github.com/xraph/performs/store/memory"
	"github.com/xraph/performs/worker"
)

type fixture struct {
	pool    *worker.Pool
	store   *memory.Store
	reg     *job.Registry
	tracker *trackingExt
}

func setupTestPool(t *testing.T, concurrency int, opts ...worker.PoolOption) *fixture {
	t.Helper()
	logger := slog.Default()
	s := memory.New()
	reg := job.NewRegistry()
	extensions := ext.NewRegistry(logger)
	tracker := &trackingExt{}
	extensions.Register(tracker)

	executor := worker.NewExecutor(reg, extensions, s,
		backoff.NewConstant(10*time.Millisecond), logger,
		middleware.Recover(logger),
	)

	opts = append([]worker.PoolOption{
		worker.WithPoolConcurrency(concurrency),
		worker.WithPollInterval(10 * time.Millisecond),
		worker.WithPoolQueues([]string{"default"}),
	}, opts...)

	return &fixture{
		pool:    worker.NewPool(s, executor, extensions, logger, opts...),
		store:   s,
		reg:     reg,
		tracker: tracker,
	}
}

func stopPool(t *testing.T, p *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop error: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestPool_StartStopIdempotent(t *testing.T) {
	f := setupTestPool(t, 2)

	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected double-start error: %v", err)
	}
	stopPool(t, f.pool)
	stopPool(t, f.pool)

	// A stopped pool can be started again.
	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	stopPool(t, f.pool)
}

func TestPool_ProcessesJob(t *testing.T) {
	f := setupTestPool(t, 1)

	var processed atomic.Bool
	job.RegisterDefinition(f.reg, job.NewDefinition("greet", func(_ context.Context, p struct{ Name string }) error {
		if p.Name != "Alice" {
			t.Errorf("payload.Name = %q, want %q", p.Name, "Alice")
		}
		processed.Store(true)
		return nil
	}))

	payload, _ := json.Marshal(struct{ Name string }{Name: "Alice"})
	j := job.New("greet", payload)
	if err := f.store.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	waitFor(t, processed.Load)
	stopPool(t, f.pool)

	got, err := f.store.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get job error: %v", err)
	}
	if got.State != job.StateCompleted {
		t.Errorf("job state = %q, want %q", got.State, job.StateCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if got.WorkerID.String() != f.pool.WorkerID().String() {
		t.Errorf("WorkerID = %s, want %s", got.WorkerID, f.pool.WorkerID())
	}
	if !f.tracker.started.Load() || !f.tracker.completed.Load() {
		t.Error("expected OnJobStarted and OnJobCompleted to fire")
	}
}

func TestPool_SkipsScheduledJobs(t *testing.T) {
	f := setupTestPool(t, 1)

	var runs atomic.Int32
	f.reg.Register("later", func(context.Context, []byte) error {
		runs.Add(1)
		return nil
	}, nil)

	j := job.New("later", nil, job.WithDelay(time.Hour))
	if err := f.store.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	stopPool(t, f.pool)

	if runs.Load() != 0 {
		t.Fatal("scheduled job ran before its RunAt")
	}
}

func TestPool_QueueManagerLimits(t *testing.T) {
	qm := queue.NewManager(queue.Config{Name: "default", MaxConcurrency: 1})
	f := setupTestPool(t, 4, worker.WithQueueManager(qm))

	var active, peak atomic.Int32
	f.reg.Register("slow", func(context.Context, []byte) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return nil
	}, nil)

	for range 4 {
		if err := f.store.EnqueueJob(context.Background(), job.New("slow", nil)); err != nil {
			t.Fatalf("enqueue error: %v", err)
		}
	}

	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	waitFor(t, func() bool {
		n, _ := f.store.CountJobs(context.Background(), job.CountOpts{State: job.StateCompleted})
		return n == 4
	})
	stopPool(t, f.pool)

	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestPool_ShutdownCancelsActiveJobs(t *testing.T) {
	f := setupTestPool(t, 1)

	started := make(chan struct{})
	var cancelled atomic.Bool
	f.reg.Register("blocking", func(ctx context.Context, _ []byte) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, nil)

	if err := f.store.EnqueueJob(context.Background(), job.New("blocking", nil)); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := f.pool.Stop(ctx); err != nil {
		t.Fatalf("stop error: %v", err)
	}
	if !cancelled.Load() {
		t.Fatal("expected active job context to be cancelled")
	}
}

// trackingExt records which hooks fired.
type trackingExt struct {
	started   atomic.Bool
	completed atomic.Bool
	failed    atomic.Bool
	discarded atomic.Bool
	retries   atomic.Int32
}

func (e *trackingExt) Name() string { return "tracker" }

func (e *trackingExt) OnJobStarted(context.Context, *job.Job) error {
	e.started.Store(true)
	return nil
}

func (e *trackingExt) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	e.completed.Store(true)
	return nil
}

func (e *trackingExt) OnJobFailed(context.Context, *job.Job, error) error {
	e.failed.Store(true)
	return nil
}

func (e *trackingExt) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	e.retries.Add(1)
	return nil
}

func (e *trackingExt) OnJobDiscarded(context.Context, *job.Job, string, error) error {
	e.discarded.Store(true)
	return nil
}
