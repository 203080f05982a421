// Package redis implements job.Store on Redis with go-redis.
//
// Each job is a Hash under performs:job:{id}. Every queue has a Sorted
// Set under performs:queue:{name} holding the ids of jobs waiting to run,
// scored by RunAt in Unix milliseconds, so scheduled jobs stay invisible
// to DequeueJobs until they are due. Workers claim a job by removing its
// id from the set; ZREM succeeds for exactly one of them.
//
// The caller owns the client lifecycle:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
