package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// InpaintClient calls the remote GPU inpainting service. The service
// accepts a multipart upload and returns the transformed video bytes.
type InpaintClient struct {
	baseURL string
	client  *http.Client
}

// InpaintOption configures an InpaintClient.
type InpaintOption func(*InpaintClient)

// WithInpaintTimeout overrides the per-request timeout (default 10m; GPU
// inference on long videos is slow).
func WithInpaintTimeout(d time.Duration) InpaintOption {
	return func(c *InpaintClient) { c.client.Timeout = d }
}

// WithInpaintHTTPClient swaps the underlying HTTP client.
func WithInpaintHTTPClient(hc *http.Client) InpaintOption {
	return func(c *InpaintClient) { c.client = hc }
}

// NewInpaintClient creates a client for the inpainting service at baseURL.
func NewInpaintClient(baseURL string, opts ...InpaintOption) *InpaintClient {
	c := &InpaintClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Inpaint streams the source file to POST {base}/process and writes the
// returned video to output. Crop parameters ride along as hints for the
// watermark detector. Non-2xx responses map through fault.FromStatus, so a
// 500 is retryable FAILED_PROVIDER and a 429 is FAILED_RATE_LIMIT.
func (c *InpaintClient) Inpaint(ctx context.Context, jobID id.JobID, input, output string, pixels int, pos job.Position) error {
	src, err := os.Open(input)
	if err != nil {
		return fault.Wrap(fault.FailedUnknown, err, "open source for inpaint")
	}
	defer src.Close()

	// Stream the multipart body through a pipe so the source file is never
	// buffered in memory.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("video", "input.mp4")
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			_ = form.WriteField("mode", "inpaint")
			_ = form.WriteField("crop_pixels", strconv.Itoa(pixels))
			_ = form.WriteField("crop_position", string(pos))
			_ = form.WriteField("job_id", jobID.String())
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", pr)
	if err != nil {
		return fault.Wrap(fault.FailedUnknown, err, "build inpaint request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return fault.Wrap(fault.FailedTimeout, err, "inpaint request timed out")
		}
		return fault.Wrap(fault.FailedProvider, err, "inpaint service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.Newf(fault.FromStatus(resp.StatusCode),
			"inpaint service returned %d: %s", resp.StatusCode, msg)
	}

	out, err := os.Create(output)
	if err != nil {
		return fault.Wrap(fault.FailedUnknown, err, "create inpaint output")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fault.Wrap(fault.FailedProvider, err, "inpaint response interrupted")
	}
	return out.Sync()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Health probes GET {base}/health. Used at startup and by the auto router
// to skip a doomed inpaint call when the service is down.
func (c *InpaintClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inpaint service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
