package core

import (
	"context"
	"time"
)

// TraceSpan terminates a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// MetricsRecorder aggregates service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// observer bundles the optional tracer and metrics recorder shared by the
// managers. Both hooks are nil-safe.
type observer struct {
	tracer  Tracer
	metrics MetricsRecorder
}

// begin opens a span and returns a finish func the operation defers with its
// final error.
func (o *observer) begin(ctx context.Context, operation string) (context.Context, func(error)) {
	if o == nil || (o.tracer == nil && o.metrics == nil) {
		return ctx, func(error) {}
	}
	started := time.Now()
	var span TraceSpan
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, operation)
	}
	return ctx, func(err error) {
		duration := time.Since(started)
		if span != nil {
			span.End(err)
		}
		if o.metrics != nil {
			o.metrics.Observe(ctx, operation, err == nil, duration)
		}
	}
}
