package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instruments holds the telemetry a service resolves once at construction.
type Instruments struct {
	Log          observability.Logger
	Tracer       observability.Tracer
	Metrics      observability.Metrics
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return Instruments{
		Log:          tel.Logger().With(observability.F("service", service)),
		Tracer:       tel.Tracer(),
		Metrics:      metrics,
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Run tracks one use case execution and emits its span, RED metrics and the
// closing use_case_done log line.
type Run struct {
	ins     Instruments
	useCase string
	start   time.Time
	span    trace.Span
	logger  observability.Logger
	fields  []observability.Field

	Outcome string
	Status  string
}

func (ins Instruments) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, ins.Log).With(observability.F("use_case", useCase))
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := ins.Tracer.Start(ctx, spanPrefix+spanName, attrs...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Run{
		ins:     ins,
		useCase: useCase,
		start:   time.Now(),
		span:    span,
		logger:  logger,
		Outcome: "success",
		Status:  "OK",
	}
}

// Fail records an error outcome with a stable status code.
func (r *Run) Fail(status string) {
	r.Outcome, r.Status = "error", status
}

// Note adds a field to the closing log line.
func (r *Run) Note(key string, value any) {
	r.fields = append(r.fields, observability.F(key, value))
}

func (r *Run) Span() trace.Span { return r.span }

func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.Outcome == "success" {
		r.Outcome = "error"
		if r.Status == "OK" {
			r.Status = "FAILED"
		}
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.Status)
		} else {
			r.span.SetStatus(codes.Ok, r.Status)
		}
		r.span.End()
	}

	if r.ins.reqCounter != nil {
		r.ins.reqCounter.Add(1,
			observability.L("use_case", r.useCase),
			observability.L("outcome", r.Outcome),
		)
	}
	if r.ins.durHistogram != nil {
		r.ins.durHistogram.Observe(lat, observability.L("use_case", r.useCase))
	}

	fields := append([]observability.Field{
		observability.F("outcome", r.Outcome),
		observability.F("status", r.Status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}
