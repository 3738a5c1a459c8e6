// Package storetest is a conformance suite for store.Store
// implementations. Every backend must satisfy the same contract —
// atomic dequeue, compare-and-set leases, owner-fenced updates,
// conditional cancel, insert-if-absent refunds — so the suite is written
// once and each backend package runs it against its own store.
//
// The memory backend runs it unconditionally; networked backends gate it
// behind a BLANKLOGO_TEST_* environment variable pointing at a live
// instance.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
	"github.com/IsaiahDupree/BlankLogo-sub004/store"
)

// Factory returns a fresh, empty store for one subtest. Factories backed
// by a shared live instance must clear its state before returning.
type Factory func(t *testing.T) store.Store

// Run exercises the Store contract against stores produced by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("EnqueueRejectsDuplicate", func(t *testing.T) { testEnqueueRejectsDuplicate(t, factory(t)) })
	t.Run("DequeueClaimsLease", func(t *testing.T) { testDequeueClaimsLease(t, factory(t)) })
	t.Run("DequeueSkipsFutureRunAt", func(t *testing.T) { testDequeueSkipsFutureRunAt(t, factory(t)) })
	t.Run("GetJobNotFound", func(t *testing.T) { testGetJobNotFound(t, factory(t)) })
	t.Run("UpdateJobRoundTrip", func(t *testing.T) { testUpdateJobRoundTrip(t, factory(t)) })
	t.Run("UpdateJobOwnedFencesStaleOwner", func(t *testing.T) { testUpdateJobOwnedFencesStaleOwner(t, factory(t)) })
	t.Run("ClaimLeaseContention", func(t *testing.T) { testClaimLeaseContention(t, factory(t)) })
	t.Run("RenewLeaseRequiresHolder", func(t *testing.T) { testRenewLeaseRequiresHolder(t, factory(t)) })
	t.Run("ReapFindsExpiredLeases", func(t *testing.T) { testReapFindsExpiredLeases(t, factory(t)) })
	t.Run("CancelQueuedOnly", func(t *testing.T) { testCancelQueuedOnly(t, factory(t)) })
	t.Run("RetriedJobReentersQueue", func(t *testing.T) { testRetriedJobReentersQueue(t, factory(t)) })
	t.Run("ListAndCountByStatus", func(t *testing.T) { testListAndCountByStatus(t, factory(t)) })
	t.Run("EventLogAppendOrder", func(t *testing.T) { testEventLogAppendOrder(t, factory(t)) })
	t.Run("RefundIsInsertIfAbsent", func(t *testing.T) { testRefundIsInsertIfAbsent(t, factory(t)) })
}

func newJob(queue string) *job.Job {
	now := time.Now().UTC()
	j := &job.Job{
		ID:           id.NewJobID(),
		Queue:        queue,
		SourceURL:    "https://cdn.example.com/video.mp4",
		Mode:         job.ModeAuto,
		CropPixels:   100,
		CropPosition: job.PositionBottom,
		Status:       job.StatusQueued,
		MaxAttempts:  3,
		RunAt:        now,
		UserID:       "user_123",
		CostCredits:  1,
	}
	j.CreatedAt = now
	j.UpdatedAt = now
	return j
}

func enqueue(t *testing.T, s store.Store, j *job.Job) {
	t.Helper()
	if err := s.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func dequeueOne(t *testing.T, s store.Store, queue string, w id.WorkerID, lease time.Duration) *job.Job {
	t.Helper()
	claimed, err := s.DequeueJobs(context.Background(), []string{queue}, w, lease, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("dequeue: jobs=%d err=%v", len(claimed), err)
	}
	return claimed[0]
}

func testEnqueueRejectsDuplicate(t *testing.T, s store.Store) {
	j := newJob("default")
	enqueue(t, s, j)
	if err := s.EnqueueJob(context.Background(), j); !errors.Is(err, blanklogo.ErrJobAlreadyExists) {
		t.Fatalf("expected ErrJobAlreadyExists, got %v", err)
	}
}

func testDequeueClaimsLease(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	w := id.NewWorkerID()
	got := dequeueOne(t, s, "default", w, time.Minute)
	if got.Status != job.StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.LeaseOwnerID != w {
		t.Errorf("lease owner = %s, want %s", got.LeaseOwnerID, w)
	}
	if got.LeaseExpiresAt == nil || !got.LeaseExpiresAt.After(time.Now()) {
		t.Error("lease expiry not set in the future")
	}
	if got.StartedAt == nil {
		t.Error("StartedAt not set")
	}

	again, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), time.Minute, 10)
	if err != nil {
		t.Fatalf("second dequeue: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed job visible to second dequeue: %d", len(again))
	}
}

func testDequeueSkipsFutureRunAt(t *testing.T, s store.Store) {
	j := newJob("default")
	j.RunAt = time.Now().UTC().Add(time.Hour)
	enqueue(t, s, j)

	got, err := s.DequeueJobs(context.Background(), []string{"default"}, id.NewWorkerID(), time.Minute, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 jobs, got %d", len(got))
	}
}

func testGetJobNotFound(t *testing.T, s store.Store) {
	if _, err := s.GetJob(context.Background(), id.NewJobID()); !errors.Is(err, blanklogo.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testUpdateJobRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	j.AttemptsMade = 2
	j.Status = job.StatusFailed
	j.ErrorCode = "FAILED_DOWNLOAD"
	j.ErrorMessage = "source returned 502"
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AttemptsMade != 2 || got.Status != job.StatusFailed {
		t.Errorf("update not persisted: attempts=%d status=%s", got.AttemptsMade, got.Status)
	}
	if got.ErrorCode != j.ErrorCode || got.ErrorMessage != j.ErrorMessage {
		t.Errorf("error fields not persisted: code=%s msg=%q", got.ErrorCode, got.ErrorMessage)
	}
}

func testUpdateJobOwnedFencesStaleOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	owner := id.NewWorkerID()
	cur := dequeueOne(t, s, "default", owner, time.Minute)

	cur.Status = job.StatusCompleted
	ok, err := s.UpdateJobOwned(ctx, cur, owner)
	if err != nil || !ok {
		t.Fatalf("owned update by holder: ok=%v err=%v", ok, err)
	}

	stale := *cur
	stale.Status = job.StatusFailed
	ok, err = s.UpdateJobOwned(ctx, &stale, id.NewWorkerID())
	if err != nil {
		t.Fatalf("owned update by stranger: %v", err)
	}
	if ok {
		t.Fatal("expected non-owner write to be fenced out")
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Errorf("status = %s, want completed (fenced write must not land)", got.Status)
	}
}

func testClaimLeaseContention(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	w1 := id.NewWorkerID()
	w2 := id.NewWorkerID()

	ok, err := s.ClaimLease(ctx, j.ID, w1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = s.ClaimLease(ctx, j.ID, w1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("re-claim by holder: ok=%v err=%v", ok, err)
	}
	ok, err = s.ClaimLease(ctx, j.ID, w2, time.Minute)
	if err != nil {
		t.Fatalf("contended claim: %v", err)
	}
	if ok {
		t.Fatal("expected contended claim to fail")
	}
}

func testRenewLeaseRequiresHolder(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	w := id.NewWorkerID()
	dequeueOne(t, s, "default", w, time.Minute)

	ok, err := s.RenewLease(ctx, j.ID, w, time.Minute)
	if err != nil || !ok {
		t.Fatalf("renew by holder: ok=%v err=%v", ok, err)
	}
	ok, err = s.RenewLease(ctx, j.ID, id.NewWorkerID(), time.Minute)
	if err != nil {
		t.Fatalf("renew by stranger: %v", err)
	}
	if ok {
		t.Fatal("expected renew by non-holder to fail")
	}
}

func testReapFindsExpiredLeases(t *testing.T, s store.Store) {
	ctx := context.Background()
	expiredJob := newJob("default")
	liveJob := newJob("default")
	enqueue(t, s, expiredJob)
	enqueue(t, s, liveJob)

	// The first claim's lease is near-instant and allowed to lapse; the
	// second stays live.
	claimed, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), 10*time.Millisecond, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("dequeue expired: jobs=%d err=%v", len(claimed), err)
	}
	dequeueOne(t, s, "default", id.NewWorkerID(), time.Minute)
	time.Sleep(20 * time.Millisecond)

	reaped, err := s.ReapExpiredLeases(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(reaped) != 1 {
		t.Fatalf("expected 1 expired lease, got %d", len(reaped))
	}
	if reaped[0].ID != claimed[0].ID {
		t.Errorf("reaped job = %s, want %s", reaped[0].ID, claimed[0].ID)
	}
}

func testCancelQueuedOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	queued := newJob("default")
	enqueue(t, s, queued)

	if err := s.CancelJob(ctx, queued.ID); err != nil {
		t.Fatalf("cancel queued: %v", err)
	}
	got, err := s.GetJob(ctx, queued.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != job.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Cancelled is terminal.
	if err := s.CancelJob(ctx, queued.ID); !errors.Is(err, blanklogo.ErrInvalidTransition) {
		t.Errorf("second cancel err = %v, want ErrInvalidTransition", err)
	}

	// A processing job cannot be cancelled either.
	processing := newJob("default")
	enqueue(t, s, processing)
	dequeueOne(t, s, "default", id.NewWorkerID(), time.Minute)
	if err := s.CancelJob(ctx, processing.ID); !errors.Is(err, blanklogo.ErrInvalidTransition) {
		t.Errorf("cancel processing err = %v, want ErrInvalidTransition", err)
	}

	if err := s.CancelJob(ctx, id.NewJobID()); !errors.Is(err, blanklogo.ErrJobNotFound) {
		t.Errorf("cancel missing err = %v, want ErrJobNotFound", err)
	}
}

func testRetriedJobReentersQueue(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	owner := id.NewWorkerID()
	cur := dequeueOne(t, s, "default", owner, time.Minute)

	// The retry write lands the job back in queued with a cleared lease;
	// it must become claimable again.
	cur.Status = job.StatusQueued
	cur.AttemptsMade = 1
	cur.RunAt = time.Now().UTC()
	cur.LeaseOwnerID = id.Nil
	cur.LeaseExpiresAt = nil
	cur.StartedAt = nil
	ok, err := s.UpdateJobOwned(ctx, cur, owner)
	if err != nil || !ok {
		t.Fatalf("retry write: ok=%v err=%v", ok, err)
	}

	again := dequeueOne(t, s, "default", id.NewWorkerID(), time.Minute)
	if again.ID != j.ID {
		t.Errorf("re-dequeued job = %s, want %s", again.ID, j.ID)
	}
	if again.AttemptsMade != 1 {
		t.Errorf("attempts = %d, want 1", again.AttemptsMade)
	}
}

func testListAndCountByStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	for range 3 {
		enqueue(t, s, newJob("videos"))
	}
	enqueue(t, s, newJob("bulk"))

	listed, err := s.ListJobsByStatus(ctx, job.StatusQueued, job.ListOpts{Queue: "videos"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("listed = %d, want 3", len(listed))
	}

	limited, err := s.ListJobsByStatus(ctx, job.StatusQueued, job.ListOpts{Queue: "videos", Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited = %d, want 2", len(limited))
	}

	count, err := s.CountJobs(ctx, job.CountOpts{Status: job.StatusQueued})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

func testEventLogAppendOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	first := job.NewStateChange(j.ID, job.StatusQueued, job.StatusProcessing, "claimed")
	second := job.NewNote(j.ID, "downloading source")
	for _, evt := range []*job.Event{first, second} {
		if err := s.AppendEvent(ctx, evt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := s.ListEvents(ctx, j.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != job.EventStateChange || events[1].Message != "downloading source" {
		t.Errorf("events out of order: %+v", events)
	}
}

func testRefundIsInsertIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("default")
	enqueue(t, s, j)

	missing, err := s.GetRefund(ctx, j.ID)
	if err != nil {
		t.Fatalf("get missing refund: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil refund before record, got %+v", missing)
	}

	r := ledger.NewRefund(j.ID, "user_123", 1, time.Now())
	applied, err := s.RecordRefund(ctx, r)
	if err != nil || !applied {
		t.Fatalf("first record: applied=%v err=%v", applied, err)
	}

	applied, err = s.RecordRefund(ctx, ledger.NewRefund(j.ID, "user_123", 1, time.Now()))
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if applied {
		t.Fatal("expected second refund to be a no-op")
	}

	got, err := s.GetRefund(ctx, j.ID)
	if err != nil {
		t.Fatalf("get refund: %v", err)
	}
	if got == nil || got.Credits != 1 || got.UserID != "user_123" {
		t.Errorf("refund = %+v", got)
	}
}
