package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	return "https://storage.example.com/" + key, nil
}

func testConfig() blanklogo.Config {
	cfg := blanklogo.DefaultConfig()
	cfg.Concurrency = 1
	cfg.PollInterval = 10 * time.Millisecond
	cfg.HeartbeatInterval = 0
	return cfg
}

func testEngine(t *testing.T, s *memory.Store) *Engine {
	t.Helper()
	eng, err := Build(s, testConfig(), testLogger(), WithUploader(stubUploader{}))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return eng
}

func TestBuild_RequiresStore(t *testing.T) {
	_, err := Build(nil, testConfig(), testLogger(), WithUploader(stubUploader{}))
	if !errors.Is(err, blanklogo.ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}

func TestBuild_RequiresUploader(t *testing.T) {
	if _, err := Build(memory.New(), testConfig(), testLogger()); err == nil {
		t.Fatal("expected error when no uploader configured")
	}
}

func TestEnqueue_AppliesDefaults(t *testing.T) {
	eng := testEngine(t, memory.New())

	j, err := eng.Enqueue(context.Background(), EnqueueRequest{
		SourceURL: "https://cdn.example.com/video.mp4",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if j.Mode != job.ModeAuto {
		t.Errorf("mode = %s, want auto", j.Mode)
	}
	if j.CropPixels != 100 {
		t.Errorf("crop pixels = %d, want 100", j.CropPixels)
	}
	if j.CropPosition != job.PositionBottom {
		t.Errorf("crop position = %s, want bottom", j.CropPosition)
	}
	if j.Queue != "default" {
		t.Errorf("queue = %s, want default", j.Queue)
	}
	if j.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", j.MaxAttempts)
	}
	if j.Status != job.StatusQueued {
		t.Errorf("status = %s, want queued", j.Status)
	}

	got, err := eng.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SourceURL != j.SourceURL {
		t.Errorf("persisted source URL = %s", got.SourceURL)
	}
}

func TestEnqueue_RejectsInvalidRequests(t *testing.T) {
	eng := testEngine(t, memory.New())

	cases := []struct {
		name string
		req  EnqueueRequest
	}{
		{"missing source url", EnqueueRequest{}},
		{"bad mode", EnqueueRequest{SourceURL: "https://x.example.com/v.mp4", Mode: "blur"}},
		{"bad position", EnqueueRequest{SourceURL: "https://x.example.com/v.mp4", CropPosition: "middle"}},
		{"negative pixels", EnqueueRequest{SourceURL: "https://x.example.com/v.mp4", CropPixels: -10}},
		{"forbidden webhook target", EnqueueRequest{
			SourceURL:  "https://x.example.com/v.mp4",
			WebhookURL: "http://169.254.169.254/latest/meta-data",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := eng.Enqueue(context.Background(), tc.req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCancel_QueuedJobOnly(t *testing.T) {
	s := memory.New()
	eng := testEngine(t, s)

	j, err := eng.Enqueue(context.Background(), EnqueueRequest{
		SourceURL: "https://cdn.example.com/video.mp4",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := eng.Cancel(context.Background(), j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := eng.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != job.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Cancelled is terminal; a second cancel is rejected.
	if err := eng.Cancel(context.Background(), j.ID); !errors.Is(err, blanklogo.ErrInvalidTransition) {
		t.Errorf("second cancel err = %v, want ErrInvalidTransition", err)
	}
}

func TestEngine_EndToEndFailureWithRefund(t *testing.T) {
	// The source is larger than the configured cap, a non-retryable limits
	// violation, so the job fails permanently on the first attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	s := memory.New()
	cfg := testConfig()
	cfg.MaxSourceBytes = 1024
	eng, err := Build(s, cfg, testLogger(), WithUploader(stubUploader{}))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	j, err := eng.Enqueue(context.Background(), EnqueueRequest{
		SourceURL:   srv.URL + "/huge.mp4",
		Mode:        "crop",
		UserID:      "user_123",
		CostCredits: 2,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Stop(ctx) //nolint:errcheck
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, getErr := eng.GetJob(context.Background(), j.ID)
		if getErr == nil && got.Status == job.StatusFailed {
			if got.ErrorCode != fault.FailedLimits {
				t.Errorf("error code = %s, want %s", got.ErrorCode, fault.FailedLimits)
			}
			refund, refErr := s.GetRefund(context.Background(), j.ID)
			if refErr != nil {
				t.Fatalf("get refund: %v", refErr)
			}
			if refund == nil || refund.Credits != 2 {
				t.Fatalf("expected 2-credit refund, got %+v", refund)
			}
			// The audit hook records the enqueue and the failure.
			events, evtErr := eng.ListEvents(context.Background(), j.ID)
			if evtErr != nil {
				t.Fatalf("list events: %v", evtErr)
			}
			if len(events) == 0 {
				t.Error("expected audit events")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached failed state")
}
