package performs

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/codec"
	"github.com/xraph/performs/job"
)

// Option configures a JobType at declaration time.
type Option interface {
	apply(t *JobType) error
}

type optionFunc func(t *JobType) error

func (f optionFunc) apply(t *JobType) error { return f(t) }

// Queue sets the queue jobs are enqueued on.
func Queue(name string) Option {
	return optionFunc(func(t *JobType) error {
		t.SetQueue(name)
		return nil
	})
}

// Priority sets the job priority. Higher runs first.
func Priority(p int) Option {
	return optionFunc(func(t *JobType) error {
		t.SetPriority(p)
		return nil
	})
}

// MaxRetries sets how often a failure no rule claims is retried.
func MaxRetries(n int) Option {
	return optionFunc(func(t *JobType) error {
		if n < 0 {
			return fmt.Errorf("%w: max_retries: %d", ErrInvalidOption, n)
		}
		t.SetMaxRetries(n)
		return nil
	})
}

// Timeout sets the execution timeout.
func Timeout(d time.Duration) Option {
	return optionFunc(func(t *JobType) error {
		t.SetTimeout(d)
		return nil
	})
}

// Wait delays every enqueue by d.
func Wait(d time.Duration) Option {
	return optionFunc(func(t *JobType) error {
		t.SetWait(d)
		return nil
	})
}

// WaitFunc computes the delay from the record on every enqueue. A zero
// result enqueues without delay.
func WaitFunc[M any](fn func(rec M) time.Duration) Option {
	return optionFunc(func(t *JobType) error {
		t.setWait(waitOf(fn))
		return nil
	})
}

// WaitUntil schedules every enqueue at at.
func WaitUntil(at time.Time) Option {
	return optionFunc(func(t *JobType) error {
		t.SetWaitUntil(at)
		return nil
	})
}

// WaitUntilFunc computes the run time from the record on every enqueue.
// A zero result enqueues without delay.
func WaitUntilFunc[M any](fn func(rec M) time.Time) Option {
	return optionFunc(func(t *JobType) error {
		t.setWaitUntil(waitUntilOf(fn))
		return nil
	})
}

// WithCodec sets the codec forwarded arguments are encoded with.
func WithCodec(c codec.Codec) Option {
	return optionFunc(func(t *JobType) error {
		if c == nil {
			return fmt.Errorf("%w: codec: nil", ErrInvalidOption)
		}
		t.SetCodec(c)
		return nil
	})
}

// RetryOn retries failures matching target (errors.Is) up to attempts
// executions, waiting per wait. Zero attempts and a nil wait select
// job.DefaultRetryAttempts and job.DefaultRetryWait.
func RetryOn(target error, attempts int, wait backoff.Strategy) Option {
	return rule(job.RetryOn(target, attempts, wait))
}

// RetryIf retries failures match accepts.
func RetryIf(name string, match func(error) bool, attempts int, wait backoff.Strategy) Option {
	return rule(job.RetryIf(name, match, attempts, wait))
}

// DiscardOn drops failures matching target without retrying.
func DiscardOn(target error) Option {
	return rule(job.DiscardOn(target))
}

// DiscardIf drops failures match accepts without retrying.
func DiscardIf(name string, match func(error) bool) Option {
	return rule(job.DiscardIf(name, match))
}

func rule(r job.Rule) Option {
	return optionFunc(func(t *JobType) error {
		t.AddRule(r)
		return nil
	})
}

// Block runs fn against the job type for configuration options cannot
// express.
func Block(fn func(t *JobType) error) Option {
	return optionFunc(fn)
}

// Bag is a set of named options applied through the option table. Keys:
//
//	queue         string
//	priority      int
//	max_retries   int (alias attempts)
//	timeout       time.Duration, duration string or integer seconds
//	wait          as timeout, func() time.Duration or func(M) time.Duration
//	wait_until    time.Time, RFC 3339 string, func() time.Time or func(M) time.Time
//	codec         codec.Codec or codec name
//	retry_on      error, []error, job.Rule or []job.Rule
//	discard_on    error or []error
//
// Unknown keys fail with ErrUnsupportedOption and values of the wrong
// type with ErrInvalidOption. Keys apply in sorted order.
type Bag map[string]any

func (b Bag) checkKeys(t *JobType) error {
	for k := range b {
		if _, ok := optionTable[k]; !ok {
			return fmt.Errorf("%w: %q on %s", ErrUnsupportedOption, k, t.Name())
		}
	}
	return nil
}

func (b Bag) apply(t *JobType) error {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		set, ok := optionTable[k]
		if !ok {
			return fmt.Errorf("%w: %q on %s", ErrUnsupportedOption, k, t.Name())
		}
		if err := set(t, b[k]); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return nil
}

type setter func(t *JobType, v any) error

var optionTable = map[string]setter{
	"queue":       setQueue,
	"priority":    setPriority,
	"max_retries": setMaxRetries,
	"attempts":    setMaxRetries,
	"timeout":     setTimeout,
	"wait":        setWait,
	"wait_until":  setWaitUntil,
	"codec":       setCodec,
	"retry_on":    setRetryOn,
	"discard_on":  setDiscardOn,
}

// SupportedOptions returns the keys a Bag accepts.
func SupportedOptions() []string {
	keys := make([]string, 0, len(optionTable))
	for k := range optionTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func invalid(key string, v any) error {
	return fmt.Errorf("%w: %s: %v (%T)", ErrInvalidOption, key, v, v)
}

func setQueue(t *JobType, v any) error {
	s, ok := v.(string)
	if !ok || s == "" {
		return invalid("queue", v)
	}
	t.SetQueue(s)
	return nil
}

func setPriority(t *JobType, v any) error {
	n, ok := asInt(v)
	if !ok {
		return invalid("priority", v)
	}
	t.SetPriority(n)
	return nil
}

func setMaxRetries(t *JobType, v any) error {
	n, ok := asInt(v)
	if !ok || n < 0 {
		return invalid("max_retries", v)
	}
	t.SetMaxRetries(n)
	return nil
}

func setTimeout(t *JobType, v any) error {
	d, ok := asDuration(v)
	if !ok {
		return invalid("timeout", v)
	}
	t.SetTimeout(d)
	return nil
}

func setWait(t *JobType, v any) error {
	if d, ok := asDuration(v); ok {
		t.SetWait(d)
		return nil
	}
	switch fn := v.(type) {
	case func() time.Duration:
		t.setWait(func(any) time.Duration { return fn() })
		return nil
	case func(any) time.Duration:
		t.setWait(fn)
		return nil
	}
	if a := t.lookupAdapter(); a != nil {
		if fn, ok := a.waitFunc(v); ok {
			t.setWait(fn)
			return nil
		}
	}
	return invalid("wait", v)
}

func setWaitUntil(t *JobType, v any) error {
	switch at := v.(type) {
	case time.Time:
		t.SetWaitUntil(at)
		return nil
	case string:
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return invalid("wait_until", v)
		}
		t.SetWaitUntil(parsed)
		return nil
	case func() time.Time:
		t.setWaitUntil(func(any) time.Time { return at() })
		return nil
	case func(any) time.Time:
		t.setWaitUntil(at)
		return nil
	}
	if a := t.lookupAdapter(); a != nil {
		if fn, ok := a.waitUntilFunc(v); ok {
			t.setWaitUntil(fn)
			return nil
		}
	}
	return invalid("wait_until", v)
}

func setCodec(t *JobType, v any) error {
	switch c := v.(type) {
	case codec.Codec:
		t.SetCodec(c)
		return nil
	case string:
		got, err := codec.Get(c)
		if err != nil {
			return fmt.Errorf("%w: codec: %w", ErrInvalidOption, err)
		}
		t.SetCodec(got)
		return nil
	}
	return invalid("codec", v)
}

func setRetryOn(t *JobType, v any) error {
	switch r := v.(type) {
	case error:
		t.AddRule(job.RetryOn(r, 0, nil))
	case []error:
		for _, target := range r {
			t.AddRule(job.RetryOn(target, 0, nil))
		}
	case job.Rule:
		t.AddRule(r)
	case []job.Rule:
		for _, each := range r {
			t.AddRule(each)
		}
	default:
		return invalid("retry_on", v)
	}
	return nil
}

func setDiscardOn(t *JobType, v any) error {
	switch r := v.(type) {
	case error:
		t.AddRule(job.DiscardOn(r))
	case []error:
		for _, target := range r {
			t.AddRule(job.DiscardOn(target))
		}
	default:
		return invalid("discard_on", v)
	}
	return nil
}

// asInt accepts the integer shapes Go code and decoded YAML produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// asDuration accepts a time.Duration, a duration string or a number of
// seconds.
func asDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return time.Duration(d * float64(time.Second)), true
	}
	if n, ok := asInt(v); ok {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}
