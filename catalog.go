package performs

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/performs/codec"
	"github.com/xraph/performs/globalid"
)

// DefaultApp is the application name in generated global ids when no
// locator or app is configured.
const DefaultApp = "performs"

// Catalog holds the models declared against one host, the locator records
// are resolved through and the defaults every generated job type
// inherits.
type Catalog struct {
	host      Host
	locator   *globalid.Locator
	codec     codec.Codec
	now       func() time.Time
	logger    *slog.Logger
	overrides map[string]Bag
	root      *JobType

	mu     sync.Mutex
	models map[string]any
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the logger for declarations and enqueues.
func WithLogger(l *slog.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = l }
}

// WithClock sets the time source waits are evaluated against.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// WithApp sets the application name of generated global ids.
func WithApp(app string) CatalogOption {
	return func(c *Catalog) { c.locator = globalid.NewLocator(app) }
}

// WithLocator shares an existing locator.
func WithLocator(l *globalid.Locator) CatalogOption {
	return func(c *Catalog) { c.locator = l }
}

// WithDefaultCodec sets the codec job types use unless configured
// otherwise. JSON by default.
func WithDefaultCodec(cd codec.Codec) CatalogOption {
	return func(c *Catalog) { c.codec = cd }
}

// WithOverrides sets option bags keyed "Model" or "Model.method". They
// are applied after the options given in code.
func WithOverrides(overrides map[string]Bag) CatalogOption {
	return func(c *Catalog) {
		for k, b := range overrides {
			c.overrides[k] = b
		}
	}
}

// New creates a Catalog whose generated jobs run on host.
func New(host Host, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		host:      host,
		codec:     codec.JSON,
		now:       time.Now,
		logger:    slog.Default(),
		overrides: make(map[string]Bag),
		models:    make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.locator == nil {
		c.locator = globalid.NewLocator(DefaultApp)
	}
	c.root = newRootJobType(c.codec)
	return c
}

// Host returns the job engine.
func (c *Catalog) Host() Host { return c.host }

// Locator returns the locator records are resolved through.
func (c *Catalog) Locator() *globalid.Locator { return c.locator }

// Models returns the names of the defined models, sorted.
func (c *Catalog) Models() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) override(key string) (Bag, bool) {
	b, ok := c.overrides[key]
	return b, ok && len(b) > 0
}
