package redis

// Redis key naming conventions for BlankLogo data.
// All keys are prefixed with "blanklogo:" to avoid collisions.

const keyPrefix = "blanklogo:"

// jobKey returns the Hash key for a job entity: blanklogo:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// queueKey returns the Sorted Set key for a queue: blanklogo:queue:{name}
// Members are job IDs scored by RunAt in unix milliseconds.
func queueKey(name string) string { return keyPrefix + "queue:" + name }

// leaseKey returns the lease key for a job: blanklogo:lease:{id}
// The value is the owning worker ID; the TTL is the lease duration.
func leaseKey(id string) string { return keyPrefix + "lease:" + id }

// eventsKey returns the List key for a job's event log: blanklogo:events:{id}
func eventsKey(id string) string { return keyPrefix + "events:" + id }

// refundKey returns the key for a job's refund record: blanklogo:refund:{id}
func refundKey(id string) string { return keyPrefix + "refund:" + id }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"
