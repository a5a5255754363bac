package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	appinventory "github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-inventory/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-inventory/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"

	maxBodyBytes = 1 << 20
)

// UseCases are the operations the HTTP surface exposes. Health is optional.
type UseCases struct {
	CreateProduct application.UseCase[appinventory.CreateProductInput, *domproduct.Product]
	GetProduct    application.UseCase[appinventory.GetProductInput, *domproduct.Product]
	ListProducts  application.UseCase[appinventory.ListProductsInput, []*domproduct.Product]
	UpdateProduct application.UseCase[appinventory.UpdateProductInput, *domproduct.Product]
	DeleteProduct application.UseCase[appinventory.DeleteProductInput, struct{}]

	CreateOrder    application.UseCase[apporder.CreateOrderInput, *domorder.Order]
	GetOrder       application.UseCase[apporder.GetOrderInput, *domorder.Order]
	ListOrders     application.UseCase[apporder.ListOrdersInput, []*domorder.Order]
	SetOrderStatus application.UseCase[apporder.SetOrderStatusInput, *domorder.Order]
	CancelOrder    application.UseCase[apporder.CancelOrderInput, *domorder.Order]

	ConfirmPayment application.UseCase[apppayment.ConfirmPaymentInput, *apppayment.ConfirmPaymentResult]

	Health func(ctx context.Context) error
}

type Handler struct {
	uc  UseCases
	log observability.Logger

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(uc UseCases, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	return &Handler{
		uc:           uc,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Each route: Trace → request logger → HTTP metrics → access log → handler
	h.muxHandle(mux, http.MethodPost, "/products", h.handleCreateProduct)
	h.muxHandle(mux, http.MethodGet, "/products", h.handleListProducts)
	h.muxHandle(mux, http.MethodGet, "/products/{id}", h.handleGetProduct)
	h.muxHandle(mux, http.MethodPatch, "/products/{id}", h.handleUpdateProduct)
	h.muxHandle(mux, http.MethodDelete, "/products/{id}", h.handleDeleteProduct)

	h.muxHandle(mux, http.MethodPost, "/orders", h.handleCreateOrder)
	h.muxHandle(mux, http.MethodGet, "/orders", h.handleListOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodPatch, "/orders/{id}", h.handleSetOrderStatus)
	h.muxHandle(mux, http.MethodDelete, "/orders/{id}", h.handleCancelOrder)

	h.muxHandle(mux, http.MethodPost, "/webhooks/payment", h.handlePaymentWebhook)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, path string, handler http.HandlerFunc) {
	route := method + " " + path
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)
	mux.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.uc.Health != nil {
		if err := h.uc.Health(r.Context()); err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("health_check_failed", observability.F("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("minishop.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.Pattern),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctxWithSpan))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

var errEmptyBody = errors.New("request body is required")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
