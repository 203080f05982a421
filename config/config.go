package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/xraph/performs"
	"github.com/xraph/performs/engine"
	"github.com/xraph/performs/job"
	"github.com/xraph/performs/queue"
	"github.com/xraph/performs/store/memory"
	"github.com/xraph/performs/store/redis"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

var validate = validator.New()

// File is the YAML configuration of a performs deployment.
type File struct {
	// App is the application segment of generated global ids.
	App string `yaml:"app" default:"performs" validate:"required"`

	Store  StoreConfig    `yaml:"store"`
	Engine engine.Config  `yaml:"engine"`
	Queues []queue.Config `yaml:"queues" validate:"dive"`

	// Jobs maps "<Model>" or "<Model>.<method>" to an option bag applied
	// after the options given in code.
	Jobs map[string]map[string]any `yaml:"jobs" validate:"dive,keys,required,endkeys"`
}

// StoreConfig selects and configures the job store.
type StoreConfig struct {
	Driver string      `yaml:"driver" default:"memory" validate:"oneof=memory redis"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr       string `yaml:"addr" default:"localhost:6379" validate:"required"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db" validate:"gte=0"`
	ScanWindow int    `yaml:"scan_window" default:"64" validate:"gt=0"`
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills unset fields with their defaults and
// validates the result.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &f, nil
}

// Validate checks field constraints, queue name uniqueness and that
// every job option key is one the option bag accepts.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Queues))
	for _, q := range f.Queues {
		if seen[q.Name] {
			return fmt.Errorf("queue %q configured twice", q.Name)
		}
		seen[q.Name] = true
	}

	supported := performs.SupportedOptions()
	var errs []error
	for key, bag := range f.Jobs {
		if strings.Count(key, ".") > 1 {
			errs = append(errs, fmt.Errorf("job %q: want <Model> or <Model>.<method>", key))
		}
		for opt := range bag {
			if !slices.Contains(supported, opt) {
				errs = append(errs, fmt.Errorf("job %q: %w: %q", key, performs.ErrUnsupportedOption, opt))
			}
		}
	}
	return errors.Join(errs...)
}

// Overrides returns the job sections as option bags for
// performs.WithOverrides.
func (f *File) Overrides() map[string]performs.Bag {
	out := make(map[string]performs.Bag, len(f.Jobs))
	for key, bag := range f.Jobs {
		out[key] = performs.Bag(bag)
	}
	return out
}

// CatalogOptions returns the catalog options the file describes.
func (f *File) CatalogOptions() []performs.CatalogOption {
	return []performs.CatalogOption{
		performs.WithApp(f.App),
		performs.WithOverrides(f.Overrides()),
	}
}

// EngineOptions returns the engine options the file describes. The store
// is not included; see OpenStore.
func (f *File) EngineOptions() []engine.Option {
	opts := []engine.Option{engine.WithConfig(f.Engine)}
	if len(f.Queues) > 0 {
		opts = append(opts, engine.WithQueueConfig(f.Queues...))
	}
	return opts
}

// OpenStore builds the configured job store. The returned close function
// releases connections the store does not own. A nil logger uses
// slog.Default.
func (f *File) OpenStore(logger *slog.Logger) (job.Store, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch f.Store.Driver {
	case DriverMemory, "":
		return memory.New(), func() error { return nil }, nil
	case DriverRedis:
		rc := f.Store.Redis
		client := goredis.NewClient(&goredis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		s := redis.New(client, redis.WithLogger(logger), redis.WithScanWindow(rc.ScanWindow))
		return s, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", f.Store.Driver)
	}
}
