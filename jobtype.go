package performs

import (
	"sync"
	"time"

	"github.com/xraph/performs/codec"
	"github.com/xraph/performs/job"
)

var _ job.Policy = (*JobType)(nil)

// JobType is the generated job configuration of a model or one of its
// methods. Settings not set on a JobType resolve through its parent: a
// method job type inherits from its model's base job type, which
// inherits from the catalog's root type.
type JobType struct {
	name   string
	parent *JobType

	// records converts func(M) wait forms for the model's record type.
	records recordAdapter

	mu         sync.RWMutex
	queue      *string
	priority   *int
	maxRetries *int
	timeout    *time.Duration
	codec      codec.Codec
	wait       func(rec any) time.Duration
	waitUntil  func(rec any) time.Time
	rules      job.Rules
	perform    job.HandlerFunc
}

func newJobType(name string, parent *JobType) *JobType {
	return &JobType{name: name, parent: parent}
}

// newRootJobType carries the engine defaults every model inherits.
func newRootJobType(c codec.Codec) *JobType {
	o := job.DefaultOptions()
	t := newJobType("", nil)
	t.SetQueue(o.Queue)
	t.SetPriority(o.Priority)
	t.SetMaxRetries(o.MaxRetries)
	t.SetTimeout(o.Timeout)
	t.SetCodec(c)
	return t
}

// Name returns the job name the type is registered under.
func (t *JobType) Name() string { return t.name }

// Parent returns the type settings are inherited from.
func (t *JobType) Parent() *JobType { return t.parent }

// Apply applies options in order. Unknown Bag keys are rejected before
// any option applies; an invalid value stops Apply with the options
// before it applied.
func (t *JobType) Apply(opts ...Option) error {
	for _, o := range opts {
		if b, ok := o.(Bag); ok {
			if err := b.checkKeys(t); err != nil {
				return err
			}
		}
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.apply(t); err != nil {
			return err
		}
	}
	return nil
}

// SetQueue sets the queue.
func (t *JobType) SetQueue(q string) {
	t.mu.Lock()
	t.queue = &q
	t.mu.Unlock()
}

// SetPriority sets the priority. Higher runs first.
func (t *JobType) SetPriority(p int) {
	t.mu.Lock()
	t.priority = &p
	t.mu.Unlock()
}

// SetMaxRetries sets how often a failure no rule claims is retried.
func (t *JobType) SetMaxRetries(n int) {
	t.mu.Lock()
	t.maxRetries = &n
	t.mu.Unlock()
}

// SetTimeout sets the execution timeout. Zero disables it.
func (t *JobType) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = &d
	t.mu.Unlock()
}

// SetCodec sets the codec arguments are encoded with.
func (t *JobType) SetCodec(c codec.Codec) {
	t.mu.Lock()
	t.codec = c
	t.mu.Unlock()
}

// SetWait delays every enqueue by d. Zero clears the wait.
func (t *JobType) SetWait(d time.Duration) {
	t.setWait(func(any) time.Duration { return d })
}

// SetWaitUntil schedules every enqueue at at. The zero time clears it.
func (t *JobType) SetWaitUntil(at time.Time) {
	t.setWaitUntil(func(any) time.Time { return at })
}

func (t *JobType) setWait(fn func(any) time.Duration) {
	t.mu.Lock()
	t.wait = fn
	t.mu.Unlock()
}

func (t *JobType) setWaitUntil(fn func(any) time.Time) {
	t.mu.Lock()
	t.waitUntil = fn
	t.mu.Unlock()
}

// AddRule adds a retry or discard rule. A rule with the same name as an
// existing one replaces it.
func (t *JobType) AddRule(r job.Rule) {
	t.mu.Lock()
	t.rules = t.rules.With(r)
	t.mu.Unlock()
}

// Queue returns the effective queue.
func (t *JobType) Queue() string {
	return resolve(t, func(t *JobType) (string, bool) {
		if t.queue == nil {
			return "", false
		}
		return *t.queue, true
	})
}

// Priority returns the effective priority.
func (t *JobType) Priority() int {
	return resolve(t, func(t *JobType) (int, bool) {
		if t.priority == nil {
			return 0, false
		}
		return *t.priority, true
	})
}

// MaxRetries returns the effective retry limit.
func (t *JobType) MaxRetries() int {
	return resolve(t, func(t *JobType) (int, bool) {
		if t.maxRetries == nil {
			return 0, false
		}
		return *t.maxRetries, true
	})
}

// Timeout returns the effective execution timeout.
func (t *JobType) Timeout() time.Duration {
	return resolve(t, func(t *JobType) (time.Duration, bool) {
		if t.timeout == nil {
			return 0, false
		}
		return *t.timeout, true
	})
}

// Codec returns the effective argument codec.
func (t *JobType) Codec() codec.Codec {
	c := resolve(t, func(t *JobType) (codec.Codec, bool) { return t.codec, t.codec != nil })
	if c == nil {
		return codec.JSON
	}
	return c
}

// Rules returns the inherited rules followed by the type's own. Own
// rules replace inherited rules of the same name.
func (t *JobType) Rules() job.Rules {
	var rules job.Rules
	if t.parent != nil {
		rules = t.parent.Rules()
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rules {
		rules = rules.With(r)
	}
	return rules
}

// Decide implements job.Policy with the effective rules.
func (t *JobType) Decide(err error) job.Decision {
	return t.Rules().Decide(err)
}

// ScopedByWait applies the effective wait and wait-until to j for rec,
// evaluated now. Zero results are dropped. RunAt becomes now+wait, and
// wait-until takes precedence when both are set. It reports whether j
// was scheduled; an unscheduled j is left untouched.
func (t *JobType) ScopedByWait(rec any, j *job.Job, now time.Time) bool {
	var (
		runAt     time.Time
		scheduled bool
	)
	if fn := t.waitFunc(); fn != nil {
		if d := fn(rec); d > 0 {
			runAt, scheduled = now.Add(d), true
		}
	}
	if fn := t.waitUntilFunc(); fn != nil {
		if at := fn(rec); !at.IsZero() {
			runAt, scheduled = at, true
		}
	}
	if scheduled {
		j.RunAt = runAt.UTC()
	}
	return scheduled
}

func (t *JobType) waitFunc() func(any) time.Duration {
	return resolve(t, func(t *JobType) (func(any) time.Duration, bool) { return t.wait, t.wait != nil })
}

func (t *JobType) waitUntilFunc() func(any) time.Time {
	return resolve(t, func(t *JobType) (func(any) time.Time, bool) { return t.waitUntil, t.waitUntil != nil })
}

func (t *JobType) lookupAdapter() recordAdapter {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.records != nil {
			return cur.records
		}
	}
	return nil
}

// hasPerform reports whether a perform behavior is installed on t itself.
func (t *JobType) hasPerform() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.perform != nil
}

func (t *JobType) setPerform(h job.HandlerFunc) {
	t.mu.Lock()
	t.perform = h
	t.mu.Unlock()
}

func (t *JobType) performer() job.HandlerFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.perform
}

// resolve walks from t to the root and returns the first value get finds.
func resolve[V any](t *JobType, get func(*JobType) (V, bool)) V {
	for cur := t; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := get(cur)
		cur.mu.RUnlock()
		if ok {
			return v
		}
	}
	var zero V
	return zero
}

// recordAdapter turns func(M) wait forms into the record-agnostic
// functions a JobType stores.
type recordAdapter interface {
	waitFunc(v any) (func(any) time.Duration, bool)
	waitUntilFunc(v any) (func(any) time.Time, bool)
}

type adapter[M any] struct{}

func (adapter[M]) waitFunc(v any) (func(any) time.Duration, bool) {
	fn, ok := v.(func(M) time.Duration)
	if !ok {
		return nil, false
	}
	return waitOf(fn), true
}

func (adapter[M]) waitUntilFunc(v any) (func(any) time.Time, bool) {
	fn, ok := v.(func(M) time.Time)
	if !ok {
		return nil, false
	}
	return waitUntilOf(fn), true
}

func waitOf[M any](fn func(M) time.Duration) func(any) time.Duration {
	return func(rec any) time.Duration {
		m, ok := rec.(M)
		if !ok {
			return 0
		}
		return fn(m)
	}
}

func waitUntilOf[M any](fn func(M) time.Time) func(any) time.Time {
	return func(rec any) time.Time {
		m, ok := rec.(M)
		if !ok {
			return time.Time{}
		}
		return fn(m)
	}
}
