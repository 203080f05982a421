package redis

// All keys are prefixed with "performs:" to avoid collisions.
const keyPrefix = "performs:"

// jobKey returns the Hash key for a job: performs:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// queueKey returns the Sorted Set key for a queue: performs:queue:{name}
func queueKey(name string) string { return keyPrefix + "queue:" + name }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"
