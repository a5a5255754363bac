package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type captureSubscriber struct{ names []string }

func (s *captureSubscriber) Subscribe(name string, _ domoutbox.Handler) {
	s.names = append(s.names, name)
}

func header(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestRelayWritesKeyedEnvelope(t *testing.T) {
	w := &fakeWriter{}
	r := NewRelay(w, nil)
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	evt := domorder.OrderCreatedEvent{OrderID: "o-1", ProductID: "p-1", Quantity: 2, RemainingStock: 8}
	if err := r.Handle(context.Background(), evt); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	m := w.msgs[0]
	if string(m.Key) != "o-1" {
		t.Fatalf("key = %q", m.Key)
	}
	if header(m, "event_name") != "order.created" || header(m, "event_id") == "" {
		t.Fatalf("headers = %v", m.Headers)
	}

	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Name != "order.created" || env.Key != "o-1" || !env.OccurredAt.Equal(fixed) || env.ID != header(m, "event_id") {
		t.Fatalf("envelope = %+v", env)
	}
	var payload domorder.OrderCreatedEvent
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.RemainingStock != 8 || payload.ProductID != "p-1" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestRelayPropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &fakeWriter{}
	if err := NewRelay(w, nil).Handle(ctx, domorder.OrderPaidEvent{OrderID: "o-9"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := TraceContext(context.Background(), w.msgs[0].Headers)
	if got.TraceID() != traceID {
		t.Fatalf("trace id = %s", got.TraceID())
	}
}

func TestRelayReturnsWriteErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	r := NewRelay(w, nil)
	if err := r.Handle(context.Background(), domorder.OrderShippedEvent{OrderID: "o-1"}); err == nil {
		t.Fatalf("want write error")
	}
	if err := r.Close(); err != nil || !w.closed {
		t.Fatalf("close: %v closed=%v", err, w.closed)
	}
}

func TestRegisterSubscribesEachEvent(t *testing.T) {
	sub := &captureSubscriber{}
	NewRelay(&fakeWriter{}, nil).Register(sub, "order.created", "order.paid")
	if len(sub.names) != 2 || sub.names[0] != "order.created" || sub.names[1] != "order.paid" {
		t.Fatalf("subscribed %v", sub.names)
	}
}
