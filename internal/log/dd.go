package log

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithDD returns base enriched with dd.trace_id and dd.span_id when ctx
// carries a span, so log lines join up with traces in Datadog.
func WithDD(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	if sp, ok := tracer.SpanFromContext(ctx); ok && sp != nil {
		if sc, ok := sp.Context().(ddtrace.SpanContext); ok && sc.TraceID() != 0 {
			extra = append(extra,
				zap.String("dd.trace_id", strconv.FormatUint(sc.TraceID(), 10)),
				zap.String("dd.span_id", strconv.FormatUint(sc.SpanID(), 10)),
			)
		}
	}
	return base.With(extra...)
}
