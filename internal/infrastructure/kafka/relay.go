package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"
	workerpresentation "github.com/Zhima-Mochi/minishop-inventory/internal/presentation/worker"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentRelay = "kafka-relay"
	peerKafka      = "kafka"
)

// MessageWriter is the part of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
}

// Envelope is the JSON value of every relayed message.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Relay forwards order lifecycle events from the in-process bus to a Kafka topic,
// keyed by order id so one order's events stay in partition order.
type Relay struct {
	writer MessageWriter
	tel    observability.Observability
	log    observability.Logger
	now    func() time.Time

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewRelay(writer MessageWriter, tel observability.Observability) *Relay {
	tel = observability.OrNop(tel)
	return &Relay{
		writer:       writer,
		tel:          tel,
		log:          tel.Logger().With(observability.F("component", componentRelay)),
		now:          time.Now,
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Register subscribes the relay to each event name.
func (r *Relay) Register(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		sub.Subscribe(name, r.Handle)
	}
}

func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	name := e.EventName()
	ctx, span := r.tel.Tracer().Start(ctx, "Kafka.Publish",
		attribute.String("messaging.system", "kafka"),
		attribute.String("event", name),
	)
	id := uuid.NewString()
	ctx = workerpresentation.WithEventContext(ctx, r.log, name, id)
	logger := logctx.FromOr(ctx, r.log)

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "KAFKA_WRITE_FAILED")
			logger.Warn("kafka_relay_failed", observability.F("error", err.Error()))
		} else {
			span.SetStatus(codes.Ok, "OK")
			logger.Debug("kafka_relayed")
		}
		span.End()
		r.extCounter.Add(1,
			observability.L("peer", peerKafka),
			observability.L("endpoint", name),
			observability.L("outcome", outcome),
		)
		r.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerKafka),
			observability.L("endpoint", name),
		)
	}()

	msg, err := r.message(ctx, e, id)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, msg)
}

func (r *Relay) message(ctx context.Context, e domoutbox.Event, id string) (kafkago.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	env := Envelope{
		ID:         id,
		Name:       e.EventName(),
		OccurredAt: r.now().UTC(),
		Payload:    payload,
	}
	if k, ok := e.(domoutbox.Keyed); ok {
		env.Key = k.PartitionKey()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode envelope: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(env.Key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_name", Value: []byte(env.Name)},
			{Key: "event_id", Value: []byte(env.ID)},
		},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return msg, nil
}

// Close flushes pending writes.
func (r *Relay) Close() error {
	return r.writer.Close()
}

// TraceContext restores the span context a relayed message was written under.
func TraceContext(ctx context.Context, headers []kafkago.Header) trace.SpanContext {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(ctx, carrier))
}
