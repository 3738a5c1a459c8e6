package fault

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/exec"
)

// Classify maps a raw error into the taxonomy. Errors already carrying a
// Code pass through unchanged; everything else is matched against known
// shapes (deadline, network, process spawn) before falling back to
// FailedUnknown.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(FailedTimeout, err, "operation exceeded deadline")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(FailedTimeout, err, "network timeout")
		}
		return Wrap(FailedDownload, err, "network error")
	}

	// A transcoding subprocess that could not be spawned at all is a
	// transient host condition, not a media problem.
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return Wrap(FailedUnknown, err, "failed to spawn subprocess")
	}

	return Wrap(FailedUnknown, err, "")
}

// FromStatus classifies a non-2xx HTTP status from the remote inpainting
// provider.
func FromStatus(status int) Code {
	switch {
	case status == http.StatusTooManyRequests:
		return FailedRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return FailedTimeout
	case status >= 500:
		return FailedProvider
	case status >= 400:
		// The provider rejected our input outright.
		return FailedInput
	default:
		return FailedUnknown
	}
}
