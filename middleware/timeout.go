package middleware

import (
	"context"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Timeout returns middleware that enforces the processing deadline. The
// deadline bounds the whole pipeline (download, transform, upload); when
// it expires the context cancels and the stage in flight reports
// FAILED_TIMEOUT. Zero disables the deadline.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *job.Job, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
