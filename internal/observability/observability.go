// Package observability declares the logging, tracing and metrics ports the service
// depends on. Adapters live under internal/infrastructure/observability; nil-safe
// no-op implementations are in this package.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the three ports handed to every use case, handler and worker.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a structured log attribute.
type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Metrics resolves registered instruments by key. Callers resolve once at
// construction and keep the instrument.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

type MetricKey string

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"            // {use_case,outcome}
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"          // {use_case}
	MHTTPRequests            MetricKey = "http_requests_total"               // {method,route,status}
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"     // {method,route,status}
	MExternalRequests        MetricKey = "external_requests_total"           // {peer,endpoint,outcome}
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // {peer,endpoint}
	MStockReservations       MetricKey = "inventory_reservations_total"      // {op,outcome}
	MLowStock                MetricKey = "inventory_low_stock_total"         // {product_id}
	MPaymentWebhooks         MetricKey = "payment_webhooks_total"            // {outcome}
)

// Label is a metric label; keep values low-cardinality.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

// BoundCounter has its labels fixed, for hot paths.
type BoundCounter interface {
	Add(delta float64)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

type BoundHistogram interface {
	Observe(value float64)
}
