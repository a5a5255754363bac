package order

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	workerService      = "order-worker"
	useCaseLowStock    = "order.worker.low_stock"
	workerSpanLowStock = "UC.LowStock"
)

// LowStockWorker watches committed reservations and flags products whose remaining
// stock fell to the threshold or below.
type LowStockWorker struct {
	subscriber domoutbox.Subscriber
	threshold  int
	tel        observability.Observability

	log          observability.Logger
	lowStock     observability.Counter   // inventory_low_stock_total{product_id}
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewLowStockWorker(subscriber domoutbox.Subscriber, threshold int, tel observability.Observability) *LowStockWorker {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()
	return &LowStockWorker{
		subscriber:   subscriber,
		threshold:    threshold,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", workerService)),
		lowStock:     metrics.Counter(observability.MLowStock),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (w *LowStockWorker) Start() {
	if w.subscriber == nil || w.threshold < 0 {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handleOrderCreated)
}

func (w *LowStockWorker) handleOrderCreated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		w.count("ignored")
		return nil
	}

	ctx, span := w.tel.Tracer().Start(ctx, workerSpanLowStock,
		attribute.String("use_case", useCaseLowStock),
		attribute.String("event", e.EventName()),
		attribute.String("product.id", evt.ProductID),
	)
	start := time.Now()
	status := "OK"

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCaseLowStock),
		observability.F("event", e.EventName()),
		observability.F("product_id", evt.ProductID),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	defer func() {
		lat := time.Since(start).Seconds()
		w.count("success")
		w.durHistogram.Observe(lat, observability.L("use_case", useCaseLowStock))
		logger.Info("use_case_done",
			observability.F("outcome", "success"),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		)
		span.SetStatus(codes.Ok, status)
		span.End()
	}()

	if evt.RemainingStock > w.threshold {
		return nil
	}

	status = "LOW_STOCK"
	w.lowStock.Add(1, observability.L("product_id", evt.ProductID))
	span.AddEvent("inventory.low_stock")
	logger.Warn("inventory_low_stock",
		observability.F("order_id", evt.OrderID),
		observability.F("remaining_stock", evt.RemainingStock),
		observability.F("threshold", w.threshold),
	)
	return nil
}

func (w *LowStockWorker) count(outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCaseLowStock),
		observability.L("outcome", outcome),
	)
}
