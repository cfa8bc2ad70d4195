package workerpresentation

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type fieldLogger struct {
	fields []observability.Field
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	return &fieldLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}
func (l *fieldLogger) Debug(string, ...observability.Field) {}
func (l *fieldLogger) Info(string, ...observability.Field)  {}
func (l *fieldLogger) Warn(string, ...observability.Field)  {}
func (l *fieldLogger) Error(string, ...observability.Field) {}

func (l *fieldLogger) value(key string) (any, bool) {
	for _, f := range l.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func TestWithEventContextTagsLogger(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	ctx = WithEventContext(ctx, &fieldLogger{}, Event{Name: "order.registered", OrderID: 9})
	l, ok := logctx.From(ctx).(*fieldLogger)
	require.True(t, ok)

	id, ok := l.value("event_id")
	require.True(t, ok)
	assert.NotEmpty(t, id)
	v, _ := l.value("order_id")
	assert.EqualValues(t, 9, v)
	v, _ = l.value("trace_id")
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", v)
	_, ok = l.value("use_case")
	assert.False(t, ok)
}

func TestWithEventContextFallsBackToContextLogger(t *testing.T) {
	base := &fieldLogger{fields: []observability.Field{observability.F("component", "payment_worker")}}
	ctx := logctx.With(context.Background(), base)

	ctx = WithEventContext(ctx, nil, Event{ID: "evt-1"})
	l := logctx.From(ctx).(*fieldLogger)
	v, _ := l.value("component")
	assert.Equal(t, "payment_worker", v)
	v, _ = l.value("event_id")
	assert.Equal(t, "evt-1", v)
	_, ok := l.value("trace_id")
	assert.False(t, ok)
}
