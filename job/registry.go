package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc is a type-erased job handler that receives the raw payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Entry is what the registry knows about one job name.
type Entry struct {
	Handler HandlerFunc
	Policy  Policy
}

// Registry maps job names to handlers and failure policies.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register installs handler and policy under name, replacing any
// previous registration. A nil policy means default retries.
func (r *Registry) Register(name string, handler HandlerFunc, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = Entry{Handler: handler, Policy: policy}
}

// RegisterDefinition registers a typed definition. The handler is wrapped
// in a closure that JSON-decodes the payload into T first.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, payload []byte) error {
		var t T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &t); err != nil {
				return fmt.Errorf("unmarshal payload for job %q: %w", def.Name, err)
			}
		}
		return def.Handler(ctx, t)
	}
	r.Register(def.Name, handler, def.Policy)
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all registered job names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
