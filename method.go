package performs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xraph/performs/codec"
	"github.com/xraph/performs/id"
	"github.com/xraph/performs/job"
)

// MethodFunc is a method of M in method-expression form, receiver
// first, such as (*Article).publish.
type MethodFunc[M, A any] func(rec M, ctx context.Context, args A) error

// PerformFunc runs a declared method on a located record.
type PerformFunc[M, A any] func(ctx context.Context, rec M, args A) error

// Method is the family generated for one declared method: its job type
// and the operations that enqueue and perform it.
type Method[M, A any] struct {
	model   *Model[M]
	jobType *JobType
	name    string
	suffix  string
	fn      MethodFunc[M, A]
}

// envelope is the job payload: the record's global id, the codec name
// and the encoded arguments.
type envelope struct {
	GID   string `json:"gid"`
	Codec string `json:"codec"`
	Args  []byte `json:"args,omitempty"`
}

// Declare generates, or reuses, the job type and operations for a method
// of the model. fn is the method itself; unexported methods work through
// method expressions such as (*Article).retract.
//
// The first declaration of a normalized name creates a job type inheriting
// from the model's base job type and registers it with the host.
// Declaring the name again applies the new options to the same job type.
// Options apply in order and the catalog's overrides for
// "<Model>.<normalized>" last. The perform behavior is installed only
// when the job type has none.
//
// An unknown option key fails the declaration before any option applies.
// An invalid option value fails it with the options before that value
// still applied to the job type.
func Declare[M, A any](m *Model[M], name string, fn MethodFunc[M, A], opts ...Option) (*Method[M, A], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized, suffix := m.naming(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyMethodName, m.name)
	}

	var (
		meth  *Method[M, A]
		fresh bool
	)
	if d, ok := m.methods[normalized]; ok {
		if d.suffix != suffix {
			return nil, fmt.Errorf("%w: %s.%s declared as %q, now %q",
				ErrSuffixConflict, m.name, normalized, normalized+d.suffix, name)
		}
		existing, ok := d.method.(*Method[M, A])
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrSignatureMismatch, m.name, normalized)
		}
		meth = existing
	} else {
		meth = &Method[M, A]{
			model:   m,
			jobType: newJobType(methodJobName(m.name, normalized), m.baseLocked()),
			name:    normalized,
			suffix:  suffix,
			fn:      fn,
		}
		fresh = true
	}

	jt := meth.jobType
	if err := jt.Apply(opts...); err != nil {
		return nil, err
	}
	key := m.name + "." + normalized
	if b, ok := m.cat.override(key); ok {
		if err := jt.Apply(b); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	if !jt.hasPerform() {
		jt.setPerform(meth.handler(meth.Invoke))
	}

	if fresh {
		m.methods[normalized] = &declared{method: meth, suffix: suffix}
		m.generated[meth.LaterName()] = meth.Later
		m.generated[meth.BulkName()] = meth.LaterBulk
		m.cat.host.Register(jt.Name(), func(ctx context.Context, payload []byte) error {
			return jt.performer()(ctx, payload)
		}, jt)
	}

	m.cat.logger.Debug("method declared",
		slog.String("model", m.name),
		slog.String("method", meth.MethodName()),
		slog.String("job_name", jt.Name()),
		slog.Bool("redeclared", !fresh),
	)
	return meth, nil
}

// Lookup returns a previously declared method so overrides can call the
// generated operations explicitly.
func Lookup[M, A any](m *Model[M], name string) (*Method[M, A], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized, _ := m.naming(name)

	d, ok := m.methods[normalized]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotDeclared, m.name, normalized)
	}
	meth, ok := d.method.(*Method[M, A])
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrSignatureMismatch, m.name, normalized)
	}
	return meth, nil
}

// JobType returns the method's job type.
func (mt *Method[M, A]) JobType() *JobType { return mt.jobType }

// Model returns the declaring model.
func (mt *Method[M, A]) Model() *Model[M] { return mt.model }

// Names returns the normalized method name and the later operation name,
// e.g. "publish" and "publish_later!".
func (mt *Method[M, A]) Names() (string, string) { return mt.name, mt.LaterName() }

// MethodName returns the declared name, suffix included.
func (mt *Method[M, A]) MethodName() string { return mt.name + mt.suffix }

// LaterName returns the name of the single enqueue operation.
func (mt *Method[M, A]) LaterName() string { return laterName(mt.name, mt.suffix) }

// BulkName returns the name of the bulk enqueue operation.
func (mt *Method[M, A]) BulkName() string { return bulkName(mt.name, mt.suffix) }

// Later enqueues the method for rec with args, scheduled by the job
// type's wait settings.
func (mt *Method[M, A]) Later(ctx context.Context, rec M, args A) (*job.Job, error) {
	j, err := mt.newJob(rec, args)
	if err != nil {
		return nil, err
	}
	mt.jobType.ScopedByWait(rec, j, mt.model.cat.now())

	if err := mt.model.cat.host.Enqueue(ctx, j); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", mt.model.name, mt.LaterName(), err)
	}
	mt.model.cat.logger.Debug("method enqueued",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.String("queue", j.Queue),
		slog.Time("run_at", j.RunAt),
	)
	return j, nil
}

// LaterBulk enqueues the method for every record in one host call, each
// scheduled by its own wait evaluation and run with zero arguments. Nil
// records means every record of the model's all source; an empty slice
// enqueues nothing.
func (mt *Method[M, A]) LaterBulk(ctx context.Context, recs []M) ([]*job.Job, error) {
	bulk, ok := mt.model.cat.host.(BulkHost)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrBulkUnsupported, mt.model.name, mt.BulkName())
	}
	if recs == nil {
		mt.model.mu.Lock()
		loadAll := mt.model.all
		mt.model.mu.Unlock()
		if loadAll == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoAllRecords, mt.model.name)
		}
		all, err := loadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: load records: %w", mt.model.name, mt.BulkName(), err)
		}
		recs = all
	}
	if len(recs) == 0 {
		return nil, nil
	}

	var args A
	now := mt.model.cat.now()
	jobs := make([]*job.Job, 0, len(recs))
	for _, rec := range recs {
		j, err := mt.newJob(rec, args)
		if err != nil {
			return nil, err
		}
		mt.jobType.ScopedByWait(rec, j, now)
		jobs = append(jobs, j)
	}

	if err := bulk.EnqueueBulk(ctx, jobs); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", mt.model.name, mt.BulkName(), err)
	}
	mt.model.cat.logger.Debug("method enqueued in bulk",
		slog.String("job_name", mt.jobType.Name()),
		slog.Int("count", len(jobs)),
	)
	return jobs, nil
}

// Invoke calls the declared method directly. Replacement perform
// behaviors use it to run the original.
func (mt *Method[M, A]) Invoke(ctx context.Context, rec M, args A) error {
	return mt.fn(rec, ctx, args)
}

// Perform runs the installed perform behavior on a job payload, as the
// host does.
func (mt *Method[M, A]) Perform(ctx context.Context, payload []byte) error {
	return mt.jobType.performer()(ctx, payload)
}

// OverridePerform replaces the perform behavior. Later declarations keep
// the replacement.
func (mt *Method[M, A]) OverridePerform(fn PerformFunc[M, A]) {
	mt.jobType.setPerform(mt.handler(fn))
}

func (mt *Method[M, A]) newJob(rec M, args A) (*job.Job, error) {
	jt := mt.jobType
	c := jt.Codec()
	data, err := c.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", jt.Name(), err)
	}
	payload, err := json.Marshal(envelope{GID: mt.model.gid(rec), Codec: c.Name(), Args: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", jt.Name(), err)
	}
	return &job.Job{
		ID:         id.NewJobID(),
		Name:       jt.Name(),
		Queue:      jt.Queue(),
		Payload:    payload,
		State:      job.StatePending,
		Priority:   jt.Priority(),
		MaxRetries: jt.MaxRetries(),
		Timeout:    jt.Timeout(),
	}, nil
}

// handler decodes the envelope, locates the record, decodes the
// arguments with the envelope's codec and calls fn.
func (mt *Method[M, A]) handler(fn PerformFunc[M, A]) job.HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("decode %s envelope: %w", mt.jobType.Name(), err)
		}
		rec, err := mt.model.locate(ctx, env.GID)
		if err != nil {
			return err
		}
		var args A
		if len(env.Args) > 0 {
			c, err := codec.Get(env.Codec)
			if err != nil {
				return err
			}
			if err := c.Unmarshal(env.Args, &args); err != nil {
				return fmt.Errorf("decode %s arguments: %w", mt.jobType.Name(), err)
			}
		}
		return fn(ctx, rec, args)
	}
}
