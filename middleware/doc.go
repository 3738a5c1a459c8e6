// Package middleware provides composable middleware for job processing.
//
// A [Middleware] is a function that wraps the processing pipeline.
// Middleware are composed into a chain using [Chain] and applied around
// each job attempt. They are applied right-to-left: the first middleware
// in the slice is the outermost wrapper.
//
//	// logging → recover → timeout → pipeline
//	chain := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.Timeout(10*time.Minute),
//	)
//
// # Built-in Middleware
//
//   - [Logging] — logs job ID, queue, mode, duration, and outcome
//   - [Recover] — catches panics and converts them to FAILED_UNKNOWN errors
//   - [Timeout] — cancels the pipeline context after the processing deadline
//   - [Tracing] — wraps processing in an OpenTelemetry span
//   - [Metrics] — records per-job duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
