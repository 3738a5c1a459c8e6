package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Recover returns middleware that recovers from panics in the pipeline.
// Panics are converted to FAILED_UNKNOWN errors and logged with a stack
// trace, so a buggy transform takes down one job instead of the worker.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job pipeline panicked",
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fault.Newf(fault.FailedUnknown, "panic in job %s: %v", j.ID, r)
			}
		}()
		return next(ctx)
	}
}
