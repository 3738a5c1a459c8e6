package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

func newTestJob(queue string) *job.Job {
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

func TestEnqueueJob_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")

	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.EnqueueJob(ctx, j); !errors.Is(err, blanklogo.ErrJobAlreadyExists) {
		t.Fatalf("expected ErrJobAlreadyExists, got %v", err)
	}
}

func TestDequeueJobs_ClaimsLease(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker := id.NewWorkerID()
	got, err := s.DequeueJobs(ctx, []string{"default"}, worker, time.Minute, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 job, got %d", len(got))
	}
	if got[0].Status != job.StatusProcessing {
		t.Errorf("status = %s, want processing", got[0].Status)
	}
	if got[0].LeaseOwnerID != worker {
		t.Errorf("lease owner = %s, want %s", got[0].LeaseOwnerID, worker)
	}
	if got[0].LeaseExpiresAt == nil || !got[0].LeaseExpiresAt.After(time.Now()) {
		t.Error("lease expiry not set in the future")
	}
	if got[0].StartedAt == nil {
		t.Error("StartedAt not set")
	}

	// A second dequeue must not see the claimed job.
	again, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), time.Minute, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected 0 jobs on second dequeue, got %d", len(again))
	}
}

func TestDequeueJobs_SkipsFutureRunAt(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	j.RunAt = time.Now().UTC().Add(time.Hour)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), time.Minute, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 jobs, got %d", len(got))
	}
}

func TestDequeueJobs_QueueFilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	old := newTestJob("videos")
	old.RunAt = time.Now().UTC().Add(-2 * time.Minute)
	recent := newTestJob("videos")
	recent.RunAt = time.Now().UTC().Add(-time.Minute)
	other := newTestJob("bulk")
	other.RunAt = time.Now().UTC().Add(-time.Minute)

	for _, j := range []*job.Job{recent, old, other} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	got, err := s.DequeueJobs(ctx, []string{"videos"}, id.NewWorkerID(), time.Minute, 1)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 job, got %d", len(got))
	}
	if got[0].ID != old.ID {
		t.Errorf("expected oldest RunAt first, got %s", got[0].ID)
	}
	if got[0].Queue != "videos" {
		t.Errorf("queue = %s, want videos", got[0].Queue)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetJob(context.Background(), id.NewJobID())
	if !errors.Is(err, blanklogo.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestUpdateJob_RoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	j.AttemptsMade = 2
	j.Status = job.StatusFailed
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
}

func TestUpdateJobOwned_FencesStaleOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	owner := id.NewWorkerID()
	claimed, err := s.DequeueJobs(ctx, []string{"default"}, owner, time.Minute, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("dequeue: jobs=%d err=%v", len(claimed), err)
	}

	// The holder's write lands.
	cur := claimed[0]
	cur.Status = job.StatusCompleted
	ok, err := s.UpdateJobOwned(ctx, cur, owner)
	if err != nil || !ok {
		t.Fatalf("owned update by holder: ok=%v err=%v", ok, err)
	}

	// A writer with a different owner snapshot is fenced out.
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

func TestUpdateJobOwned_NotFound(t *testing.T) {
	s := New()
	j := newTestJob("default")
	_, err := s.UpdateJobOwned(context.Background(), j, id.NewWorkerID())
	if !errors.Is(err, blanklogo.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestClaimLease_Contention(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w1 := id.NewWorkerID()
	w2 := id.NewWorkerID()

	ok, err := s.ClaimLease(ctx, j.ID, w1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}

	// Re-acquisition by the holder is idempotent.
	ok, err = s.ClaimLease(ctx, j.ID, w1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("re-claim by holder: ok=%v err=%v", ok, err)
	}

	// Another worker must not steal a live lease.
	ok, err = s.ClaimLease(ctx, j.ID, w2, time.Minute)
	if err != nil {
		t.Fatalf("contended claim: %v", err)
	}
	if ok {
		t.Fatal("expected contended claim to fail")
	}
}

func TestClaimLease_ExpiredLeaseIsClaimable(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w1 := id.NewWorkerID()
	w2 := id.NewWorkerID()

	// Negative duration expires the lease immediately.
	if ok, err := s.ClaimLease(ctx, j.ID, w1, -time.Second); err != nil || !ok {
		t.Fatalf("seed claim: ok=%v err=%v", ok, err)
	}

	ok, err := s.ClaimLease(ctx, j.ID, w2, time.Minute)
	if err != nil {
		t.Fatalf("claim after expiry: %v", err)
	}
	if !ok {
		t.Fatal("expected expired lease to be claimable")
	}
}

func TestRenewLease_OnlyHolder(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w1 := id.NewWorkerID()
	if ok, err := s.ClaimLease(ctx, j.ID, w1, time.Minute); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	ok, err := s.RenewLease(ctx, j.ID, w1, time.Minute)
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

func TestReapExpiredLeases(t *testing.T) {
	s := New()
	ctx := context.Background()

	crashed := newTestJob("default")
	crashed.RunAt = time.Now().UTC().Add(-time.Minute)
	healthy := newTestJob("default")
	healthy.RunAt = time.Now().UTC().Add(-time.Minute)
	for _, j := range []*job.Job{crashed, healthy} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	// Claim both; the crashed worker's lease is already expired.
	if _, err := s.DequeueJobs(ctx, nil, id.NewWorkerID(), time.Hour, 10); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	past := time.Now().UTC().Add(-time.Second)
	got, err := s.GetJob(ctx, crashed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.LeaseExpiresAt = &past
	if err := s.UpdateJob(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	expired, err := s.ReapExpiredLeases(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired lease, got %d", len(expired))
	}
	if expired[0].ID != crashed.ID {
		t.Errorf("reaped %s, want %s", expired[0].ID, crashed.ID)
	}
}

func TestCancelJob_OnlyQueued(t *testing.T) {
	s := New()
	ctx := context.Background()
	j := newTestJob("default")
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := s.CancelJob(ctx, j.ID); err != nil {
		t.Fatalf("cancel queued: %v", err)
	}
	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != job.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Cancelled is not queued; a second cancel is an invalid transition.
	if err := s.CancelJob(ctx, j.ID); !errors.Is(err, blanklogo.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestListJobsByStatus_Pagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		j := newTestJob("default")
		j.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	page, err := s.ListJobsByStatus(ctx, job.StatusQueued, job.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(page))
	}
	if !page[0].CreatedAt.Before(page[1].CreatedAt) {
		t.Error("expected CreatedAt ascending order")
	}
}

func TestCountJobs(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.EnqueueJob(ctx, newTestJob("videos")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := s.EnqueueJob(ctx, newTestJob("bulk")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	n, err := s.CountJobs(ctx, job.CountOpts{Queue: "videos", Status: job.StatusQueued})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	n, err = s.CountJobs(ctx, job.CountOpts{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
}

func TestAppendEvent_Order(t *testing.T) {
	s := New()
	ctx := context.Background()
	jobID := id.NewJobID()

	for _, msg := range []string{"download started", "probe done", "crop done"} {
		if err := s.AppendEvent(ctx, job.NewProgress(jobID, msg)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := s.ListEvents(ctx, jobID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []string{"download started", "probe done", "crop done"}
	for i, evt := range events {
		if evt.Message != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, evt.Message, want[i])
		}
	}

	// Unknown jobs have empty logs, not errors.
	none, err := s.ListEvents(ctx, id.NewJobID())
	if err != nil {
		t.Fatalf("list unknown: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty log, got %d events", len(none))
	}
}

func TestRecordRefund_ExactlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	jobID := id.NewJobID()

	r := ledger.NewRefund(jobID, "user_123", 1, time.Now())
	applied, err := s.RecordRefund(ctx, r)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !applied {
		t.Fatal("expected first refund to apply")
	}

	applied, err = s.RecordRefund(ctx, r)
	if err != nil {
		t.Fatalf("record again: %v", err)
	}
	if applied {
		t.Fatal("expected second refund to be a no-op")
	}

	got, err := s.GetRefund(ctx, jobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Credits != 1 || got.UserID != "user_123" {
		t.Errorf("unexpected refund: %+v", got)
	}

	none, err := s.GetRefund(ctx, id.NewJobID())
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil refund, got %+v", none)
	}
}
