package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instruments holds the telemetry a use case needs, resolved once at construction
// (RED metrics are supplied via DI; never instantiate them inside methods).
type Instruments struct {
	Log     observability.Logger
	Tracer  observability.Tracer
	Metrics observability.Metrics

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()
	return Instruments{
		Log:          tel.Logger().With(observability.F("service", service)),
		Tracer:       tel.Tracer(),
		Metrics:      metrics,
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Run tracks a single use case execution and emits its span, metrics and
// use_case_done log line when End is called.
type Run struct {
	ctx     context.Context
	span    trace.Span
	log     observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
	inst    Instruments
}

func (in Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, in.Log).With(observability.F("use_case", useCase))

	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.Tracer.Start(ctx, spanPrefix+spanName, attrs...)

	return ctx, &Run{
		ctx:     ctx,
		span:    span,
		log:     logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
		inst:    in,
	}
}

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Status overrides the status text of a successful run.
func (r *Run) Status(status string) {
	r.status = status
}

func (r *Run) With(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *Run) Span() trace.Span { return r.span }

func (r *Run) Logger() observability.Logger { return r.log }

func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.outcome != "error" {
		r.Fail("FAILED")
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.inst.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.inst.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, r.fields...)
	fields = append(fields, logctx.TraceFields(r.ctx)...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}
