// Package engine is the host job engine generated method jobs run on. It
// owns the handler registry, the extension registry, the middleware
// chain and the worker pool, and persists jobs through a job.Store.
//
// # Building an Engine
//
//	eng, err := engine.New(
//	    engine.WithStore(redisstore.New(client)),
//	    engine.WithConcurrency(20),
//	    engine.WithQueues("default", "mailers"),
//	    engine.WithQueueConfig(queue.Config{Name: "mailers", RateLimit: 50}),
//	)
//
// # Registering and Enqueuing
//
// Handlers are registered by job name with an optional failure policy.
// The convention resolver in the root package does this for every
// declared method; plain typed handlers use [RegisterDefinition]:
//
//	engine.RegisterDefinition(eng, job.NewDefinition("send_email", sendEmail))
//	engine.EnqueueValue(ctx, eng, "send_email", EmailInput{To: "a@example.com"})
//
// [Engine.Enqueue] and [Engine.EnqueueBulk] take prepared jobs and fill
// in defaults the caller left empty.
//
// # Default Middleware
//
// Every job runs through recover, tracing, metrics, logging, current-job
// and timeout middleware, followed by anything added with [WithMiddleware].
package engine
