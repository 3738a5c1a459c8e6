// Package storage publishes processed videos to object storage.
//
// Result keys are deterministic: the same job always publishes to
// processed/{jobID}/{filename}, so a crashed-and-retried job overwrites
// its own partial upload instead of leaking orphan objects. Republishing
// is idempotent by construction (uploads run in upsert mode).
package storage
