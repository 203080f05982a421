// Package config loads a performs deployment from YAML.
//
// A file selects the job store, sizes the engine, rate-limits queues and
// overrides per-job options without touching code:
//
//	app: blog
//	store:
//	  driver: redis
//	  redis:
//	    addr: localhost:6379
//	engine:
//	  concurrency: 4
//	  queues: [default, mailers]
//	queues:
//	  - name: mailers
//	    rate_limit: 10
//	jobs:
//	  Article:
//	    queue: articles
//	  Article.publish:
//	    wait: 5m
//	    max_retries: 3
//
// Unset fields take the defaults declared on the struct tags. Job keys
// are checked against performs.SupportedOptions at load time.
package config
