// Package globalid identifies records across the job boundary.
//
// A record is serialized to a [GlobalID] before its job is enqueued and
// resolved back through a [Locator] before the job is performed:
//
//	gid://blog/Article/42
//
// The Locator holds one [Finder] per model name; it does not load
// anything itself.
package globalid

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const scheme = "gid://"

var (
	ErrInvalid      = errors.New("globalid: invalid global id")
	ErrUnknownModel = errors.New("globalid: unknown model")
	ErrAppMismatch  = errors.New("globalid: app mismatch")
)

// GlobalID is a stable reference to one record of one model.
type GlobalID struct {
	App   string
	Model string
	ID    string
}

// String renders the id as gid://app/Model/id. The record id is
// path-escaped so it may contain slashes.
func (g GlobalID) String() string {
	return scheme + g.App + "/" + g.Model + "/" + url.PathEscape(g.ID)
}

// Parse decodes a gid:// string.
func Parse(s string) (GlobalID, error) {
	rest, ok := strings.CutPrefix(s, scheme)
	if !ok {
		return GlobalID{}, fmt.Errorf("%w: %q: missing %s scheme", ErrInvalid, s, scheme)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return GlobalID{}, fmt.Errorf("%w: %q: want app/model/id", ErrInvalid, s)
	}
	rid, err := url.PathUnescape(parts[2])
	if err != nil {
		return GlobalID{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	g := GlobalID{App: parts[0], Model: parts[1], ID: rid}
	if g.App == "" || g.Model == "" || g.ID == "" {
		return GlobalID{}, fmt.Errorf("%w: %q: empty component", ErrInvalid, s)
	}
	return g, nil
}

// Finder loads one record by id.
type Finder func(ctx context.Context, id string) (any, error)

// Locator resolves global ids of one app through registered finders.
// It is safe for concurrent use.
type Locator struct {
	app string

	mu      sync.RWMutex
	finders map[string]Finder
}

// NewLocator creates a locator for app.
func NewLocator(app string) *Locator {
	return &Locator{app: app, finders: make(map[string]Finder)}
}

// App returns the app name ids are issued for.
func (l *Locator) App() string { return l.app }

// Register installs the finder for model, replacing any previous one.
func (l *Locator) Register(model string, find Finder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finders[model] = find
}

// Registered reports whether model has a finder.
func (l *Locator) Registered(model string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.finders[model]
	return ok
}

// Create returns the global id of record rid of model.
func (l *Locator) Create(model, rid string) GlobalID {
	return GlobalID{App: l.app, Model: model, ID: rid}
}

// Locate parses s and loads the record it names.
func (l *Locator) Locate(ctx context.Context, s string) (any, error) {
	g, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return l.LocateID(ctx, g)
}

// LocateID loads the record g names. Finder errors are returned wrapped.
func (l *Locator) LocateID(ctx context.Context, g GlobalID) (any, error) {
	if g.App != l.app {
		return nil, fmt.Errorf("%w: %q is not %q", ErrAppMismatch, g.App, l.app)
	}
	l.mu.RLock()
	find, ok := l.finders[g.Model]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, g.Model)
	}
	rec, err := find(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", g, err)
	}
	return rec, nil
}
