package engine

import "time"

// Config holds the worker settings of an Engine.
type Config struct {
	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int `yaml:"concurrency" default:"10" validate:"min=1"`

	// Queues is the list of queues the engine polls.
	Queues []string `yaml:"queues" default:"[\"default\"]" validate:"min=1,dive,required"`

	// PollInterval is how often idle workers poll for new jobs.
	PollInterval time.Duration `yaml:"poll_interval" default:"1s" validate:"gt=0"`

	// ShutdownTimeout bounds Stop when the caller's context has no deadline.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s" validate:"gte=0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		Queues:          []string{"default"},
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
