// Package job defines the job entity, its state machine, failure
// policies, the handler registry and the store contract of the host
// engine that generated method jobs run on.
//
// # Job Entity
//
// A [Job] carries a name, a queue, an opaque payload and scheduling data.
// It moves through:
//
//	pending → running → completed
//	pending → running → retrying → running → ...
//	pending → running → failed
//	pending → running → discarded
//	pending → cancelled
//
// # Failure Policies
//
// A [Policy] is asked what to do with each failure. [Rules] is the
// standard implementation: [RetryOn] and [DiscardOn] rules are matched
// newest first, and a failure no rule matches falls back to the job's
// MaxRetries with the engine's backoff strategy.
//
//	rules := job.Rules{}.
//	    With(job.RetryOn(ErrUpstream, 5, backoff.NewPolynomial(0.15))).
//	    With(job.DiscardOn(ErrGone))
//
// # Registry
//
// [Registry] maps job names to a type-erased [HandlerFunc] and a Policy.
// Plain typed definitions register through [RegisterDefinition]:
//
//	job.RegisterDefinition(registry, job.NewDefinition("send_email",
//	    func(ctx context.Context, in EmailInput) error { ... }))
package job
