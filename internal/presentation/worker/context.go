package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Event identifies one background execution: a bus delivery or one order
// handled by a reconciler sweep.
type Event struct {
	Name    string
	ID      string // generated when empty
	OrderID int64
	UseCase string
}

// WithEventContext returns ctx carrying a logger tagged with the event and the
// active trace, so handlers log the same way HTTP requests do.
func WithEventContext(ctx context.Context, base observability.Logger, evt Event) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}

	fields := make([]observability.Field, 0, 6)
	fields = append(fields, observability.F("event_id", evt.ID))
	if evt.Name != "" {
		fields = append(fields, observability.F("event", evt.Name))
	}
	if evt.UseCase != "" {
		fields = append(fields, observability.F("use_case", evt.UseCase))
	}
	if evt.OrderID > 0 {
		fields = append(fields, observability.F("order_id", evt.OrderID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	return logctx.With(ctx, base.With(fields...))
}
