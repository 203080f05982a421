package performs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Model is a record type methods are declared on. Records cross the job
// boundary as global ids: identify renders a record's id and find loads
// it back before perform.
type Model[M any] struct {
	cat      *Catalog
	name     string
	identify func(rec M) string
	find     func(ctx context.Context, id string) (M, error)
	all      func(ctx context.Context) ([]M, error)
	naming   NamingPolicy

	// mu guards the fields below as well as all and naming, which Define
	// may replace.
	mu        sync.Mutex
	base      *JobType
	methods   map[string]*declared
	generated map[string]any
}

// declared is one method declaration: the *Method[M, A] value and the
// suffix it was first declared with.
type declared struct {
	method any
	suffix string
}

// ModelOption configures a Model.
type ModelOption[M any] func(*Model[M])

// WithAll sets the source LaterBulk enqueues when given no records.
func WithAll[M any](all func(ctx context.Context) ([]M, error)) ModelOption[M] {
	return func(m *Model[M]) { m.all = all }
}

// WithNaming sets how declared method names are normalized. SuffixNaming
// by default.
func WithNaming[M any](p NamingPolicy) ModelOption[M] {
	return func(m *Model[M]) { m.naming = p }
}

// Define registers a model with the catalog and its locator. Defining a
// name again with the same record type returns the existing model; a
// different record type fails with ErrModelConflict.
func Define[M any](
	cat *Catalog,
	name string,
	identify func(rec M) string,
	find func(ctx context.Context, id string) (M, error),
	opts ...ModelOption[M],
) (*Model[M], error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if existing, ok := cat.models[name]; ok {
		m, ok := existing.(*Model[M])
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModelConflict, name)
		}
		m.mu.Lock()
		for _, opt := range opts {
			opt(m)
		}
		m.mu.Unlock()
		return m, nil
	}

	m := &Model[M]{
		cat:       cat,
		name:      name,
		identify:  identify,
		find:      find,
		naming:    SuffixNaming,
		methods:   make(map[string]*declared),
		generated: make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	cat.models[name] = m
	cat.locator.Register(name, func(ctx context.Context, id string) (any, error) {
		return m.find(ctx, id)
	})

	cat.logger.Debug("model defined", slog.String("model", name))
	return m, nil
}

// Name returns the model name.
func (m *Model[M]) Name() string { return m.name }

// Catalog returns the catalog the model is defined in.
func (m *Model[M]) Catalog() *Catalog { return m.cat }

// Base returns the model's base job type, creating it on first use. All
// method job types of the model inherit from it.
func (m *Model[M]) Base() *JobType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseLocked()
}

func (m *Model[M]) baseLocked() *JobType {
	if m.base == nil {
		m.base = newJobType(baseJobName(m.name), m.cat.root)
		m.base.records = adapter[M]{}
	}
	return m.base
}

// Configure applies options to the base job type, followed by the
// catalog's overrides for the model name.
func (m *Model[M]) Configure(opts ...Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := m.baseLocked()
	if err := base.Apply(opts...); err != nil {
		return err
	}
	if b, ok := m.cat.override(m.name); ok {
		if err := base.Apply(b); err != nil {
			return fmt.Errorf("override %s: %w", m.name, err)
		}
	}
	return nil
}

// Generated returns the generated later operations by name, such as
// "publish_later!" and "publish_later_bulk!". Values are the
// func(context.Context, M, A) (*job.Job, error) and
// func(context.Context, []M) ([]*job.Job, error) method values.
func (m *Model[M]) Generated() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.generated))
	for k, v := range m.generated {
		out[k] = v
	}
	return out
}

// JobType returns the job type declared for a method name.
func (m *Model[M]) JobType(name string) (*JobType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized, _ := m.naming(name)
	d, ok := m.methods[normalized]
	if !ok {
		return nil, false
	}
	return d.method.(interface{ JobType() *JobType }).JobType(), true
}

// gid renders the global id of rec.
func (m *Model[M]) gid(rec M) string {
	return m.cat.locator.Create(m.name, m.identify(rec)).String()
}

// locate resolves a global id back to a record.
func (m *Model[M]) locate(ctx context.Context, gid string) (M, error) {
	var zero M
	found, err := m.cat.locator.Locate(ctx, gid)
	if err != nil {
		return zero, err
	}
	rec, ok := found.(M)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %T", ErrModelConflict, gid, found)
	}
	return rec, nil
}
