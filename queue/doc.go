// Package queue provides per-queue and per-user rate limiting and
// concurrency caps, enforced at dequeue time.
//
// Queues are named channels that group related jobs. Jobs carry a Queue
// field that determines which queue they belong to. The worker pool polls
// the queues listed in blanklogo.Config.Queues (default: ["default"]).
//
// # Per-Queue Configuration
//
// Use [Config] to set per-queue rate limits and concurrency caps:
//
//	queue.Config{
//	    Name:           "videos",
//	    MaxConcurrency: 4,      // max 4 concurrent transforms
//	    RateLimit:      2,      // max 2 jobs/s dequeued from this queue
//	    RateBurst:      5,      // allow bursts up to 5
//	}
//
// Pass configs when building the engine:
//
//	engine.Build(store,
//	    engine.WithQueueConfig(
//	        queue.Config{Name: "priority", MaxConcurrency: 8},
//	        queue.Config{Name: "bulk", RateLimit: 1, RateBurst: 3},
//	    ),
//	)
//
// # Manager
//
// [Manager] enforces the limits with a token-bucket rate limiter
// (golang.org/x/time/rate) and an active-count gate:
//
//	m := queue.NewManager(configs...)
//	if m.Acquire(queueName, userID) {
//	    defer m.Release(queueName, userID)
//	    // process the job
//	}
//
// Queues without a [Config] have no limits beyond the pool-wide concurrency.
//
// # Per-User Limits and Billing Plans
//
// [UserConfig] throttles a single user within a queue so a heavy batch
// submitter cannot starve everyone else. The presets in [PlanLimits] map
// the billing tiers (free, pro, studio) to concurrency and rate budgets:
//
//	m.SetUserPlan("videos", job.UserID, queue.PlanFree)
package queue
