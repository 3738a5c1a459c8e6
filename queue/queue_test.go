package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	// No configs; Acquire/Release should always succeed.
	if !m.Acquire("any-queue", "") {
		t.Fatal("expected Acquire to succeed for unconfigured queue")
	}
	m.Release("any-queue", "")
}

func TestNewManager_WithConfig(t *testing.T) {
	m := NewManager(Config{
		Name:           "videos",
		MaxConcurrency: 2,
	})
	if m.ActiveCount("videos") != 0 {
		t.Fatal("expected 0 active jobs initially")
	}
}

// ---------------------------------------------------------------------------
// Concurrency limits
// ---------------------------------------------------------------------------

func TestManager_MaxConcurrency(t *testing.T) {
	m := NewManager(Config{
		Name:           "videos",
		MaxConcurrency: 2,
	})

	if !m.Acquire("videos", "") {
		t.Fatal("first Acquire should succeed")
	}
	if !m.Acquire("videos", "") {
		t.Fatal("second Acquire should succeed")
	}
	// Third should be blocked.
	if m.Acquire("videos", "") {
		t.Fatal("third Acquire should fail (max concurrency 2)")
	}

	// Release one slot.
	m.Release("videos", "")
	if !m.Acquire("videos", "") {
		t.Fatal("Acquire should succeed after Release")
	}
}

func TestManager_AcquireRelease_ActiveCount(t *testing.T) {
	m := NewManager(Config{
		Name:           "q",
		MaxConcurrency: 5,
	})

	for i := range 3 {
		if !m.Acquire("q", "") {
			t.Fatalf("Acquire %d should succeed", i)
		}
	}
	if m.ActiveCount("q") != 3 {
		t.Fatalf("expected 3 active, got %d", m.ActiveCount("q"))
	}

	m.Release("q", "")
	m.Release("q", "")
	if m.ActiveCount("q") != 1 {
		t.Fatalf("expected 1 active, got %d", m.ActiveCount("q"))
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestManager_RateLimit_Throttles(t *testing.T) {
	m := NewManager(Config{
		Name:      "limited",
		RateLimit: 1.0, // 1 per second
		RateBurst: 1,
	})

	// First should succeed (burst allows it).
	if !m.Acquire("limited", "") {
		t.Fatal("first Acquire should succeed (within burst)")
	}
	m.Release("limited", "")

	// Immediately after, token bucket is empty.
	if m.Acquire("limited", "") {
		t.Fatal("second Acquire should fail (rate limited)")
	}

	// Wait for token refill.
	time.Sleep(1100 * time.Millisecond)
	if !m.Acquire("limited", "") {
		t.Fatal("Acquire should succeed after token refill")
	}
	m.Release("limited", "")
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{
		Name:      "bursty",
		RateLimit: 10.0,
		RateBurst: 3,
	})

	// Three immediate acquires should succeed (burst = 3).
	for i := range 3 {
		if !m.Acquire("bursty", "") {
			t.Fatalf("Acquire %d should succeed (within burst)", i)
		}
		m.Release("bursty", "")
	}
}

// ---------------------------------------------------------------------------
// Per-user isolation
// ---------------------------------------------------------------------------

func TestManager_UserConcurrencyLimit(t *testing.T) {
	m := NewManager(Config{
		Name:           "shared",
		MaxConcurrency: 100, // high queue limit
	})

	m.SetUserConfig(UserConfig{
		QueueName:      "shared",
		UserID:         "user-a",
		MaxConcurrency: 1,
	})

	// User A: first job succeeds.
	if !m.Acquire("shared", "user-a") {
		t.Fatal("user-a first Acquire should succeed")
	}
	// User A: second job blocked.
	if m.Acquire("shared", "user-a") {
		t.Fatal("user-a second Acquire should fail (user max 1)")
	}

	// User B (no config): should still succeed.
	if !m.Acquire("shared", "user-b") {
		t.Fatal("user-b Acquire should succeed (no user limit)")
	}

	m.Release("shared", "user-a")
	m.Release("shared", "user-b")
}

func TestManager_UserIsolation(t *testing.T) {
	m := NewManager(Config{
		Name:           "work",
		MaxConcurrency: 100,
	})

	m.SetUserConfig(UserConfig{
		QueueName:      "work",
		UserID:         "user-a",
		MaxConcurrency: 2,
	})
	m.SetUserConfig(UserConfig{
		QueueName:      "work",
		UserID:         "user-b",
		MaxConcurrency: 2,
	})

	// Fill user-a slots.
	m.Acquire("work", "user-a")
	m.Acquire("work", "user-a")

	// user-a is maxed.
	if m.Acquire("work", "user-a") {
		t.Fatal("user-a should be blocked at max concurrency")
	}

	// user-b is unaffected.
	if !m.Acquire("work", "user-b") {
		t.Fatal("user-b should not be affected by user-a's limits")
	}

	m.Release("work", "user-a")
	m.Release("work", "user-a")
	m.Release("work", "user-b")
}

func TestManager_UserActiveCount(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 10})
	m.SetUserConfig(UserConfig{
		QueueName:      "q",
		UserID:         "u1",
		MaxConcurrency: 5,
	})

	m.Acquire("q", "u1")
	m.Acquire("q", "u1")

	if got := m.UserActiveCount("q", "u1"); got != 2 {
		t.Fatalf("expected user active 2, got %d", got)
	}

	m.Release("q", "u1")
	if got := m.UserActiveCount("q", "u1"); got != 1 {
		t.Fatalf("expected user active 1, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Billing plans
// ---------------------------------------------------------------------------

func TestPlanLimits_Presets(t *testing.T) {
	free := PlanLimits(PlanFree, "videos", "u1")
	if free.MaxConcurrency != 1 || free.QueueName != "videos" || free.UserID != "u1" {
		t.Fatalf("free preset = %+v", free)
	}

	pro := PlanLimits(PlanPro, "videos", "u1")
	studio := PlanLimits(PlanStudio, "videos", "u1")
	if pro.MaxConcurrency <= free.MaxConcurrency || studio.MaxConcurrency <= pro.MaxConcurrency {
		t.Errorf("plan tiers should widen limits: free=%d pro=%d studio=%d",
			free.MaxConcurrency, pro.MaxConcurrency, studio.MaxConcurrency)
	}

	// Unknown plans get the free tier.
	unknown := PlanLimits(Plan("enterprise"), "videos", "u1")
	if unknown.MaxConcurrency != free.MaxConcurrency {
		t.Errorf("unknown plan = %+v, want free preset", unknown)
	}
}

func TestManager_SetUserPlan_FreeTierIsSingleFlight(t *testing.T) {
	m := NewManager(Config{Name: "videos", MaxConcurrency: 100})
	m.SetUserPlan("videos", "free-user", PlanFree)

	if !m.Acquire("videos", "free-user") {
		t.Fatal("first Acquire should succeed")
	}
	if m.Acquire("videos", "free-user") {
		t.Fatal("free plan should allow one job in flight")
	}

	m.Release("videos", "free-user")
	// Concurrency slot is back, but the free tier's rate budget is spent.
	if m.Acquire("videos", "free-user") {
		t.Fatal("free plan rate budget should still be spent")
	}
}

func TestManager_CappedUserDoesNotDrainQueueBudget(t *testing.T) {
	m := NewManager(Config{
		Name:      "videos",
		RateLimit: 1.0,
		RateBurst: 1,
	})
	m.SetUserConfig(UserConfig{
		QueueName:      "videos",
		UserID:         "heavy",
		MaxConcurrency: 1,
	})

	if !m.Acquire("videos", "heavy") {
		t.Fatal("heavy user's first Acquire should succeed")
	}

	// Wait for the queue bucket to refill, then let the capped-out heavy
	// user knock: the denial must not consume the queue's token.
	time.Sleep(1100 * time.Millisecond)
	if m.Acquire("videos", "heavy") {
		t.Fatal("heavy user should be blocked at max concurrency")
	}
	if !m.Acquire("videos", "other") {
		t.Fatal("queue token should survive the capped user's denial")
	}
}

// ---------------------------------------------------------------------------
// Dynamic reconfiguration
// ---------------------------------------------------------------------------

func TestManager_SetQueueConfig(t *testing.T) {
	m := NewManager(Config{
		Name:           "dyn",
		MaxConcurrency: 1,
	})

	m.Acquire("dyn", "")
	if m.Acquire("dyn", "") {
		t.Fatal("should be blocked at concurrency 1")
	}

	// Raise the limit dynamically.
	m.SetQueueConfig(Config{
		Name:           "dyn",
		MaxConcurrency: 3,
	})

	// Now should succeed.
	if !m.Acquire("dyn", "") {
		t.Fatal("should succeed after raising concurrency")
	}
	m.Release("dyn", "")
	m.Release("dyn", "")
}

// ---------------------------------------------------------------------------
// Concurrency safety
// ---------------------------------------------------------------------------

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(Config{
		Name:           "concurrent",
		MaxConcurrency: 50,
	})

	var acquired atomic.Int64
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("concurrent", "") {
				acquired.Add(1)
				// Simulate work.
				time.Sleep(time.Millisecond)
				m.Release("concurrent", "")
			}
		}()
	}

	wg.Wait()

	// At least some should have succeeded.
	if acquired.Load() == 0 {
		t.Fatal("expected some Acquires to succeed")
	}

	// Active should be back to 0.
	if m.ActiveCount("concurrent") != 0 {
		t.Fatalf("expected 0 active after all goroutines, got %d", m.ActiveCount("concurrent"))
	}
}

func TestManager_UnconfiguredQueue_AlwaysSucceeds(t *testing.T) {
	m := NewManager(Config{
		Name:           "configured",
		MaxConcurrency: 1,
	})

	// "other" queue has no config, so no limits apply.
	for range 10 {
		if !m.Acquire("other", "") {
			t.Fatal("unconfigured queue should always allow Acquire")
		}
	}
	for range 10 {
		m.Release("other", "")
	}
}

func TestManager_ReleaseUnderflow(t *testing.T) {
	m := NewManager(Config{
		Name:           "q",
		MaxConcurrency: 5,
	})

	// Release without Acquire should not go negative.
	m.Release("q", "")
	if m.ActiveCount("q") != 0 {
		t.Fatal("active count should not go below 0")
	}
}
