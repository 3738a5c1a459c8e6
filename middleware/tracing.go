package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// tracerName is the instrumentation scope name for worker tracing.
const tracerName = "github.com/IsaiahDupree/BlankLogo-sub004"

// Tracing returns middleware that wraps job processing in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// Span attributes include: blanklogo.job.id, blanklogo.job.mode,
// blanklogo.queue, blanklogo.attempt, blanklogo.user_id. On error, the
// span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "blanklogo.job.process",
			trace.WithAttributes(
				attribute.String("blanklogo.job.id", j.ID.String()),
				attribute.String("blanklogo.job.mode", string(j.Mode)),
				attribute.String("blanklogo.queue", j.Queue),
				attribute.Int("blanklogo.attempt", j.AttemptsMade+1),
				attribute.String("blanklogo.user_id", j.UserID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
