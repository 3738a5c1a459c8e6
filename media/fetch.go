package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
)

// Fetcher downloads source videos over HTTP with a hard byte cap.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. maxBytes caps the downloaded size; a source
// that exceeds it fails with FAILED_LIMITS. Zero means no cap.
func NewFetcher(maxBytes int64) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		maxBytes: maxBytes,
	}
}

// Fetch downloads url to dest. Any network failure or non-2xx status from
// the source host comes back as retryable FAILED_DOWNLOAD; CDNs routinely
// return 403/404 for a window after upload, so client statuses are not
// treated as proof the URL is bad. An oversize body is FAILED_LIMITS;
// FAILED_INPUT is reserved for a source that is unreadable once fetched.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fault.Wrap(fault.FailedInput, err, "invalid source url")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fault.Wrap(fault.FailedDownload, err, "source download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fault.Newf(fault.FailedDownload, "source returned %d", resp.StatusCode)
	}

	// Reject early when the server declares an oversize body.
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return 0, fault.Newf(fault.FailedLimits,
			"source size %d exceeds limit %d", resp.ContentLength, f.maxBytes)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fault.Wrap(fault.FailedUnknown, err, "create scratch file")
	}
	defer out.Close()

	// Copy with a one-byte sentinel past the cap so truncated-at-limit and
	// over-limit are distinguishable.
	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(out, reader)
	if err != nil {
		return 0, fault.Wrap(fault.FailedDownload, err, "source download interrupted")
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return 0, fault.Newf(fault.FailedLimits,
			"source exceeds %d byte limit", f.maxBytes)
	}
	if n == 0 {
		return 0, fault.New(fault.FailedInput, "source is empty")
	}

	if err := out.Sync(); err != nil {
		return 0, fmt.Errorf("sync scratch file: %w", err)
	}
	return n, nil
}
