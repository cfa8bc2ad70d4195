package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	appsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/application/solicitation"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "kiosk-orders.http"
	maxBodyBytes         = 1 << 20
)

type Handler struct {
	solicitations *appsolicitation.Service
	orders        *apporder.Service
	metrics       http.Handler
	log           observability.Logger

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

// NewHandler wires the REST and webhook routes. metricsHandler may be nil.
func NewHandler(
	solicitations *appsolicitation.Service,
	orders *apporder.Service,
	metricsHandler http.Handler,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		solicitations: solicitations,
		orders:        orders,
		metrics:       metricsHandler,
		log:           tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:    tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram:  tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "POST /order-solicitations", h.handleInitiate)
	h.handle(mux, "GET /order-solicitations/{id}", h.handleGetSolicitation)
	h.handle(mux, "POST /order-solicitations/{id}/customer", h.handleIdentifyCustomer)
	h.handle(mux, "POST /order-solicitations/{id}/anonymous", h.handleAssociateAnonymous)
	h.handle(mux, "POST /order-solicitations/{id}/items", h.handleAddItem)
	h.handle(mux, "DELETE /order-solicitations/{id}/items", h.handleRemoveItem)
	h.handle(mux, "POST /order-solicitations/{id}/confirm", h.handleConfirm)

	h.handle(mux, "GET /orders", h.handleListOrders)
	h.handle(mux, "GET /orders/current", h.handleListCurrentOrders)
	h.handle(mux, "GET /orders/{id}", h.handleGetOrder)
	h.handle(mux, "PATCH /orders/{id}/status", h.handleChangeStatus)
	h.handle(mux, "POST /orders/{id}/kitchen-dispatch", h.handleRetryDispatch)
	h.handle(mux, "PATCH /orders/{id}/payment-status", h.handleCorrectPayment)

	h.handle(mux, "POST /payment-status", h.handlePaymentStatus)

	mux.HandleFunc("GET /health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return mux
}

// handle wraps a route: Trace -> request logger -> HTTP metrics -> access log -> handler.
func (h *Handler) handle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	wrapped := h.withTrace(pattern,
		ObservabilityMiddleware(h.log, func(r *http.Request) string {
			return r.Header.Get(headerRequestID)
		})(
			h.withHTTPMetrics(pattern,
				h.withAccessLog(pattern, handler),
			),
		),
	)
	mux.Handle(pattern, wrapped)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes one access log line per request with the request-scoped logger.
func (h *Handler) withAccessLog(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", route),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace starts a server span continuing any W3C parent in the headers.
func (h *Handler) withTrace(route string, next http.Handler) http.Handler {
	prop := otel.GetTextMapPropagator()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := otel.Tracer(tracerName).Start(parent, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records request count and latency with the route pattern as label.
func (h *Handler) withHTTPMetrics(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", route),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

var errEmptyBody = errors.New("request body is required")

// decodeJSON decodes one of our own request bodies; unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	return decodeBody(r, dst, true)
}

// decodeCallback decodes a body sent by an external system, which may carry
// fields we do not model.
func decodeCallback(r *http.Request, dst any) error {
	return decodeBody(r, dst, false)
}

func decodeBody(r *http.Request, dst any, strict bool) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
