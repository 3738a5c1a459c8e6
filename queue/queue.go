package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-queue behaviour such as rate limiting and concurrency.
type Config struct {
	// Name is the queue identifier (must match the job.Queue field).
	Name string

	// MaxConcurrency limits how many jobs from this queue may run
	// simultaneously across the local worker pool. Zero means no
	// queue-specific limit (pool-wide concurrency still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained jobs per second that may be
	// dequeued from this queue. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// queueState tracks runtime state for a single queue.
type queueState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Manager controls per-queue and per-user rate limiting and concurrency.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*queueState
	users  map[string]*userState
}

// NewManager creates a Manager with the given queue configurations.
// Queues not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		queues: make(map[string]*queueState, len(configs)),
		users:  make(map[string]*userState),
	}
	for _, cfg := range configs {
		m.queues[cfg.Name] = newQueueState(cfg)
	}
	return m
}

func newQueueState(cfg Config) *queueState {
	qs := &queueState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		qs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return qs
}

// Acquire checks rate limits and concurrency for the given queue and
// user. If the job is allowed to proceed it increments the active
// counters and returns true. The caller MUST call Release when the job
// completes.
//
// Concurrency caps are checked before any rate token is spent, and a
// queue token taken for a job the user's own limiter then rejects is
// cancelled: a capped-out heavy user does not drain the queue's budget
// for everyone else.
func (m *Manager) Acquire(queue, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queues[queue]
	var us *userState
	if userID != "" {
		us = m.users[userKey(queue, userID)]
	}

	if qs != nil && qs.config.MaxConcurrency > 0 && qs.active >= qs.config.MaxConcurrency {
		return false
	}
	if us != nil && us.maxConcurrency > 0 && us.active >= us.maxConcurrency {
		return false
	}

	var queueToken *rate.Reservation
	if qs != nil && qs.limiter != nil {
		queueToken = qs.limiter.Reserve()
		if !queueToken.OK() || queueToken.Delay() > 0 {
			queueToken.Cancel()
			return false
		}
	}
	if us != nil && us.limiter != nil {
		userToken := us.limiter.Reserve()
		if !userToken.OK() || userToken.Delay() > 0 {
			userToken.Cancel()
			if queueToken != nil {
				queueToken.Cancel()
			}
			return false
		}
	}

	if qs != nil {
		qs.active++
	}
	if us != nil {
		us.active++
	}
	return true
}

// Release decrements the active job count for the queue and user.
func (m *Manager) Release(queue, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qs := m.queues[queue]; qs != nil && qs.active > 0 {
		qs.active--
	}

	if userID != "" {
		if us := m.users[userKey(queue, userID)]; us != nil && us.active > 0 {
			us.active--
		}
	}
}

// SetQueueConfig dynamically updates (or creates) a queue configuration.
func (m *Manager) SetQueueConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.queues[cfg.Name]
	qs := newQueueState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		qs.active = existing.active
	}
	m.queues[cfg.Name] = qs
}

// ActiveCount returns the current number of active jobs for a queue.
func (m *Manager) ActiveCount(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qs := m.queues[queue]; qs != nil {
		return qs.active
	}
	return 0
}
