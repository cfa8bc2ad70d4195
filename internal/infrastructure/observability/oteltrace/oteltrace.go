package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultName = "kiosk-orders"

type tracer struct{ t trace.Tracer }

// New returns a use case tracer from the global provider. attrs describe the
// instrumentation scope, e.g. the deployment environment.
// Spans are exported only once an sdktrace.TracerProvider is installed with otel.SetTracerProvider.
func New(name string, attrs ...attribute.KeyValue) observability.Tracer {
	if name == "" {
		name = defaultName
	}
	return &tracer{t: otel.Tracer(name, trace.WithInstrumentationAttributes(attrs...))}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}
