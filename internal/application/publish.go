package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
)

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// EventPublisher publishes committed domain events best-effort and records
// external_requests_* for every attempt.
type EventPublisher struct {
	publisher    domoutbox.Publisher
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewEventPublisher(publisher domoutbox.Publisher, tel observability.Observability) *EventPublisher {
	metrics := observability.OrNop(tel).Metrics()
	return &EventPublisher{
		publisher:    publisher,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Publish is nil-safe on both the receiver and the underlying publisher.
func (p *EventPublisher) Publish(ctx context.Context, event domoutbox.Event) error {
	if p == nil || p.publisher == nil || event == nil {
		return nil
	}

	endpoint := event.EventName()
	// The unit already committed; a departed caller must not suppress its events.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	start := time.Now()
	err := p.publisher.Publish(pubCtx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	p.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
	)
	return err
}
