package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// meterName is the instrumentation scope name for worker metrics.
const meterName = "github.com/IsaiahDupree/BlankLogo-sub004"

// Metrics returns middleware that records per-job processing metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - blanklogo.job.duration (Float64Histogram): processing time in
//     seconds, with attributes: mode, queue, status ("ok" or "error")
//   - blanklogo.job.processed (Int64Counter): total processing attempts,
//     with attributes: mode, queue, status, error_code (on error)
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"blanklogo.job.duration",
		metric.WithDescription("Duration of job processing in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	processed, pErr := meter.Int64Counter(
		"blanklogo.job.processed",
		metric.WithDescription("Total number of job processing attempts"),
		metric.WithUnit("{attempt}"),
	)
	_ = pErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		attrs := []attribute.KeyValue{
			attribute.String("mode", string(j.Mode)),
			attribute.String("queue", j.Queue),
		}
		if err != nil {
			status = "error"
			attrs = append(attrs, attribute.String("error_code", string(fault.CodeOf(err))))
		}
		attrs = append(attrs, attribute.String("status", status))

		set := metric.WithAttributes(attrs...)
		duration.Record(ctx, elapsed, set)
		processed.Add(ctx, 1, set)

		return err
	}
}
