package backoff

import "github.com/IsaiahDupree/BlankLogo-sub004/fault"

// ShouldRetry is the retry decision: a failed attempt is retried only when
// the failure class is retryable and the job still has attempts remaining.
// attemptsMade counts the attempt that just failed.
func ShouldRetry(code fault.Code, attemptsMade, maxAttempts int) bool {
	return code.Retryable() && attemptsMade < maxAttempts
}
