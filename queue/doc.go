// Package queue provides per-queue rate limiting and concurrency caps.
//
// Jobs carry a Queue field naming the queue they belong to; generated
// method jobs take theirs from the job type's queue option. The engine
// polls the queues listed in its configuration (default: ["default"]).
//
//	queue.Config{
//	    Name:           "mailers",
//	    MaxConcurrency: 5,  // at most 5 mailer jobs at once
//	    RateLimit:      10, // at most 10 jobs/s dequeued
//	    RateBurst:      20,
//	}
//
// [Manager] enforces the limits at dequeue time with a token bucket
// (golang.org/x/time/rate) and an active-count gate:
//
//	if m.Acquire(j.Queue) {
//	    defer m.Release(j.Queue)
//	    // run the job
//	}
//
// Queues without a [Config] have no limits beyond the pool-wide concurrency.
package queue
