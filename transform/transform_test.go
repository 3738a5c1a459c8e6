package transform_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/media"
	"github.com/IsaiahDupree/BlankLogo-sub004/transform"
)

// ---------------------------------------------------------------------------
// Crop filter construction
// ---------------------------------------------------------------------------

func TestCropFilter(t *testing.T) {
	tests := []struct {
		pos  job.Position
		want string
	}{
		{job.PositionBottom, "crop=1920:980:0:0"},
		{job.PositionTop, "crop=1920:980:0:100"},
		{job.PositionLeft, "crop=1820:1080:100:0"},
		{job.PositionRight, "crop=1820:1080:0:0"},
	}
	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			got := transform.CropFilter(1920, 1080, 100, tt.pos)
			if got != tt.want {
				t.Errorf("CropFilter(1920, 1080, 100, %s) = %q, want %q", tt.pos, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Crop validation
// ---------------------------------------------------------------------------

func TestCrop_RejectsFrameConsumingCrop(t *testing.T) {
	c := transform.NewCropper()
	info := &media.Info{Width: 640, Height: 480}

	tests := []struct {
		name   string
		pixels int
		pos    job.Position
	}{
		{"full height", 480, job.PositionBottom},
		{"over height", 500, job.PositionTop},
		{"full width", 640, job.PositionLeft},
		{"zero pixels", 0, job.PositionBottom},
		{"negative pixels", -10, job.PositionBottom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Crop(context.Background(), "in.mp4", "out.mp4", tt.pixels, tt.pos, info)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if fault.CodeOf(err) != fault.FailedInput {
				t.Errorf("code = %s, want %s", fault.CodeOf(err), fault.FailedInput)
			}
			if fault.CodeOf(err).Retryable() {
				t.Error("input fault should not be retryable")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Inpaint client
// ---------------------------------------------------------------------------

func TestInpaint_SendsMultipartAndWritesOutput(t *testing.T) {
	source := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(source, []byte("source-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	var gotFields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("path = %s, want /process", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFields = map[string]string{
			"mode":          r.FormValue("mode"),
			"crop_pixels":   r.FormValue("crop_pixels"),
			"crop_position": r.FormValue("crop_position"),
		}
		f, _, err := r.FormFile("video")
		if err != nil {
			t.Errorf("video part missing: %v", err)
		} else {
			body, _ := io.ReadAll(f)
			if string(body) != "source-bytes" {
				t.Errorf("video part = %q", body)
			}
			f.Close()
		}
		w.Write([]byte("inpainted-bytes"))
	}))
	defer srv.Close()

	output := filepath.Join(t.TempDir(), "out.mp4")
	c := transform.NewInpaintClient(srv.URL)

	err := c.Inpaint(context.Background(), id.NewJobID(), source, output, 100, job.PositionBottom)
	if err != nil {
		t.Fatalf("Inpaint: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "inpainted-bytes" {
		t.Errorf("output = %q, want inpainted bytes", got)
	}
	if gotFields["mode"] != "inpaint" || gotFields["crop_pixels"] != "100" || gotFields["crop_position"] != "bottom" {
		t.Errorf("form fields = %v", gotFields)
	}
}

func TestInpaint_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   fault.Code
	}{
		{http.StatusInternalServerError, fault.FailedProvider},
		{http.StatusBadGateway, fault.FailedProvider},
		{http.StatusTooManyRequests, fault.FailedRateLimit},
		{http.StatusGatewayTimeout, fault.FailedTimeout},
		{http.StatusBadRequest, fault.FailedInput},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))

		source := filepath.Join(t.TempDir(), "in.mp4")
		os.WriteFile(source, []byte("x"), 0o600)

		c := transform.NewInpaintClient(srv.URL)
		err := c.Inpaint(context.Background(), id.NewJobID(), source,
			filepath.Join(t.TempDir(), "out.mp4"), 100, job.PositionBottom)
		if fault.CodeOf(err) != tt.want {
			t.Errorf("status %d: code = %s, want %s", tt.status, fault.CodeOf(err), tt.want)
		}
		srv.Close()
	}
}

func TestInpaint_UnreachableIsProviderFault(t *testing.T) {
	source := filepath.Join(t.TempDir(), "in.mp4")
	os.WriteFile(source, []byte("x"), 0o600)

	c := transform.NewInpaintClient("http://127.0.0.1:1")
	err := c.Inpaint(context.Background(), id.NewJobID(), source,
		filepath.Join(t.TempDir(), "out.mp4"), 100, job.PositionBottom)
	if fault.CodeOf(err) != fault.FailedProvider {
		t.Errorf("code = %s, want %s", fault.CodeOf(err), fault.FailedProvider)
	}
	if !fault.CodeOf(err).Retryable() {
		t.Error("provider fault should be retryable")
	}
}

func TestInpaint_StalledRequestIsTimeoutFault(t *testing.T) {
	// The service accepts the upload and never answers; the client deadline
	// fires and the attempt classifies as retryable FAILED_TIMEOUT.
	stall := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-stall
	}))
	t.Cleanup(func() {
		close(stall)
		srv.Close()
	})

	source := filepath.Join(t.TempDir(), "in.mp4")
	os.WriteFile(source, []byte("x"), 0o600)

	c := transform.NewInpaintClient(srv.URL, transform.WithInpaintTimeout(50*time.Millisecond))
	err := c.Inpaint(context.Background(), id.NewJobID(), source,
		filepath.Join(t.TempDir(), "out.mp4"), 100, job.PositionBottom)
	if fault.CodeOf(err) != fault.FailedTimeout {
		t.Errorf("code = %s, want %s", fault.CodeOf(err), fault.FailedTimeout)
	}
	if !fault.CodeOf(err).Retryable() {
		t.Error("timeout fault should be retryable")
	}
}

func TestInpaintHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := transform.NewInpaintClient(srv.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	down := transform.NewInpaintClient("http://127.0.0.1:1")
	if err := down.Health(context.Background()); err == nil {
		t.Error("Health should fail for unreachable service")
	}
}

// ---------------------------------------------------------------------------
// Router
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_InpaintModeFailsWithoutService(t *testing.T) {
	r := transform.NewRouter(transform.NewCropper(), nil, discardLogger())

	_, err := r.Process(context.Background(), &transform.Request{
		JobID: id.NewJobID(),
		Mode:  job.ModeInpaint,
		Info:  &media.Info{Width: 1920, Height: 1080},
	})
	if fault.CodeOf(err) != fault.FailedProvider {
		t.Errorf("code = %s, want %s", fault.CodeOf(err), fault.FailedProvider)
	}
}

func TestRouter_UnknownModeRejected(t *testing.T) {
	r := transform.NewRouter(transform.NewCropper(), nil, discardLogger())

	_, err := r.Process(context.Background(), &transform.Request{
		JobID: id.NewJobID(),
		Mode:  job.Mode("upscale"),
	})
	if fault.CodeOf(err) != fault.FailedInput {
		t.Errorf("code = %s, want %s", fault.CodeOf(err), fault.FailedInput)
	}
}

func TestRouter_AutoMode_InpaintSuccess(t *testing.T) {
	source := filepath.Join(t.TempDir(), "in.mp4")
	os.WriteFile(source, []byte("x"), 0o600)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("inpainted"))
	}))
	defer srv.Close()

	r := transform.NewRouter(transform.NewCropper(),
		transform.NewInpaintClient(srv.URL), discardLogger())

	res, err := r.Process(context.Background(), &transform.Request{
		JobID:        id.NewJobID(),
		InputPath:    source,
		OutputPath:   filepath.Join(t.TempDir(), "out.mp4"),
		Mode:         job.ModeAuto,
		CropPixels:   100,
		CropPosition: job.PositionBottom,
		Info:         &media.Info{Width: 1920, Height: 1080},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.StrategyUsed != "inpaint" {
		t.Errorf("StrategyUsed = %q, want inpaint", res.StrategyUsed)
	}
	if res.Note != "" {
		t.Errorf("Note should be empty on direct inpaint success, got %q", res.Note)
	}
}

// Auto mode with a failing inpaint service must fall back to crop. The
// crop itself fails here (no ffmpeg input), but the test pins the routing:
// the returned error must come from the crop stage, not the inpaint stage.
func TestRouter_AutoMode_FallsBackToCropOnProviderError(t *testing.T) {
	source := filepath.Join(t.TempDir(), "in.mp4")
	os.WriteFile(source, []byte("x"), 0o600)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := transform.NewRouter(transform.NewCropper(),
		transform.NewInpaintClient(srv.URL), discardLogger())

	// Invalid crop params force the crop stage to report FAILED_INPUT,
	// proving the router moved past the inpaint failure.
	_, err := r.Process(context.Background(), &transform.Request{
		JobID:        id.NewJobID(),
		InputPath:    source,
		OutputPath:   filepath.Join(t.TempDir(), "out.mp4"),
		Mode:         job.ModeAuto,
		CropPixels:   5000,
		CropPosition: job.PositionBottom,
		Info:         &media.Info{Width: 1920, Height: 1080},
	})
	if fault.CodeOf(err) != fault.FailedInput {
		t.Errorf("code = %s, want %s (from crop stage, not %s from inpaint)",
			fault.CodeOf(err), fault.FailedInput, fault.FailedProvider)
	}
}
