// Package oteltrace adapts OpenTelemetry to the Tracer port and installs the SDK.
package oteltrace

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer on the global provider; call Setup first to export spans.
func New(name string) observability.Tracer {
	if name == "" {
		name = "minishop-inventory"
	}
	return FromProvider(otel.GetTracerProvider(), name)
}

// FromProvider binds to an explicit provider, which keeps tests off the globals.
func FromProvider(tp trace.TracerProvider, name string) observability.Tracer {
	return &tracer{t: tp.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

type SetupOptions struct {
	ServiceName string
	Environment string
	// Endpoint is an OTLP/HTTP host:port. Without it spans are sampled and propagated
	// but never exported.
	Endpoint string
	Insecure bool
}

// Setup installs the global tracer provider and the W3C propagator. The returned
// function flushes and stops the provider.
func Setup(ctx context.Context, opts SetupOptions) (func(context.Context) error, error) {
	res := resource.NewWithAttributes("",
		attribute.String("service.name", opts.ServiceName),
		attribute.String("deployment.environment", opts.Environment),
	)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	if opts.Endpoint != "" {
		expOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			expOpts = append(expOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
