package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Logging returns middleware that logs job start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.Info("job processing started",
			slog.String("job_id", j.ID.String()),
			slog.String("queue", j.Queue),
			slog.String("mode", string(j.Mode)),
			slog.Int("attempt", j.AttemptsMade+1),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("job processing failed",
				slog.String("job_id", j.ID.String()),
				slog.String("mode", string(j.Mode)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("job processing completed",
				slog.String("job_id", j.ID.String()),
				slog.String("mode", string(j.Mode)),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
