package observability

import (
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Instruments are the metric instruments registered up front, keyed the way
// application code looks them up.
type Instruments struct {
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
	Gauges     map[observability.MetricKey]observability.Gauge
}

func (in Instruments) empty() bool {
	return len(in.Counters) == 0 && len(in.Histograms) == 0 && len(in.Gauges) == 0
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	in Instruments
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.in.Counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.in.Histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

func (m *registeredMetrics) Gauge(name observability.MetricKey) observability.Gauge {
	if g, ok := m.in.Gauges[name]; ok && g != nil {
		return g
	}
	return observability.NopGauge()
}

// New bundles tracer, logger and instruments. Nil parts fall back to no-ops.
func New(tracer observability.Tracer, logger observability.Logger, in Instruments) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	var metrics observability.Metrics = observability.NopMetrics()
	if !in.empty() {
		metrics = &registeredMetrics{in: in}
	}
	return &provider{tracer: tracer, logger: logger, metrics: metrics}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

// Standard registers every instrument the use cases, HTTP middleware,
// outbound clients and the dispatch reconciler look up by key.
func Standard(reg prometrics.Registry, tracer observability.Tracer, logger observability.Logger) observability.Observability {
	key := func(k observability.MetricKey) string { return string(k) }

	return New(tracer, logger, Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: reg.Counter(key(observability.MUsecaseRequests),
				"Total number of use case invocations.", "use_case", "outcome"),
			observability.MHTTPRequests: reg.Counter(key(observability.MHTTPRequests),
				"Total number of HTTP requests.", "method", "route", "status"),
			observability.MExternalRequests: reg.Counter(key(observability.MExternalRequests),
				"Outbound calls to the payment gateway, the kitchen and the event bus.", "peer", "endpoint", "outcome"),
			observability.MEventPublishFailures: reg.Counter(key(observability.MEventPublishFailures),
				"Order events that could not be published or relayed.", "event"),
			observability.MKitchenDispatchRetries: reg.Counter(key(observability.MKitchenDispatchRetries),
				"Kitchen dispatch retries issued by the reconciler.", "outcome"),
		},
		Histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: reg.Histogram(key(observability.MUsecaseDuration),
				"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
			observability.MHTTPRequestDuration: reg.Histogram(key(observability.MHTTPRequestDuration),
				"HTTP request latency in seconds.", prometheus.DefBuckets, "method", "route", "status"),
			observability.MExternalRequestDuration: reg.Histogram(key(observability.MExternalRequestDuration),
				"Outbound call latency in seconds.", prometheus.DefBuckets, "peer", "endpoint"),
		},
		Gauges: map[observability.MetricKey]observability.Gauge{
			observability.MKitchenDispatchPending: reg.Gauge(key(observability.MKitchenDispatchPending),
				"Orders found in DispatchPending by the last reconciler sweep."),
		},
	})
}
