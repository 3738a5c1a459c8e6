package queue

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Plan names a billing tier. Each tier maps to a preset of per-user
// limits: how many videos a user may have in flight at once and how fast
// their submissions may be picked up.
type Plan string

const (
	// PlanFree processes one video at a time, roughly one every 10s.
	PlanFree Plan = "free"
	// PlanPro allows small batches.
	PlanPro Plan = "pro"
	// PlanStudio is for bulk API customers.
	PlanStudio Plan = "studio"
)

// planPresets holds the per-plan limit templates. QueueName and UserID
// are filled in by PlanLimits.
var planPresets = map[Plan]UserConfig{
	PlanFree:   {MaxConcurrency: 1, RateLimit: 0.1, RateBurst: 1},
	PlanPro:    {MaxConcurrency: 3, RateLimit: 0.5, RateBurst: 5},
	PlanStudio: {MaxConcurrency: 8, RateLimit: 2, RateBurst: 10},
}

// PlanLimits returns the UserConfig preset for a billing plan, bound to
// the given queue and user. Unknown plans fall back to the free tier.
func PlanLimits(p Plan, queue, userID string) UserConfig {
	preset, ok := planPresets[p]
	if !ok {
		preset = planPresets[PlanFree]
	}
	preset.QueueName = queue
	preset.UserID = userID
	return preset
}

// UserConfig defines rate limits and concurrency for a specific user on a
// specific queue, identified by the job's UserID. A heavy user submitting a
// batch of videos is throttled without starving everyone else on the queue.
type UserConfig struct {
	// QueueName is the queue this config applies to.
	QueueName string

	// UserID is the submitting user (job.UserID).
	UserID string

	// RateLimit is the sustained jobs per second for this user.
	RateLimit float64

	// RateBurst is the burst size for the user's rate limiter.
	RateBurst int

	// MaxConcurrency limits simultaneous jobs for this user on this
	// queue. Zero means no user-specific concurrency limit.
	MaxConcurrency int
}

// userState tracks runtime state for a single queue+user pair.
type userState struct {
	limiter        *rate.Limiter
	maxConcurrency int
	active         int
}

// userKey builds the map key for a queue+user pair.
func userKey(queue, userID string) string {
	return fmt.Sprintf("%s:%s", queue, userID)
}

// SetUserConfig configures rate limits and concurrency for a specific user
// on a specific queue. Calling this multiple times for the same queue+user
// replaces the previous configuration.
func (m *Manager) SetUserConfig(cfg UserConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userKey(cfg.QueueName, cfg.UserID)
	existing := m.users[key]

	us := &userState{
		maxConcurrency: cfg.MaxConcurrency,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		us.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	// Preserve current active count if reconfiguring.
	if existing != nil {
		us.active = existing.active
	}
	m.users[key] = us
}

// SetUserPlan applies the billing plan's limit preset for a user on a
// queue. Typically called when a job for a not-yet-seen user is
// submitted, or after an upgrade/downgrade.
func (m *Manager) SetUserPlan(queue, userID string, p Plan) {
	m.SetUserConfig(PlanLimits(p, queue, userID))
}

// UserActiveCount returns the current number of active jobs for a
// queue+user pair.
func (m *Manager) UserActiveCount(queue, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if us := m.users[userKey(queue, userID)]; us != nil {
		return us.active
	}
	return 0
}
