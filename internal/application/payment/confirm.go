package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService        = "payment-service"
	useCasePaymentConfirm = "payment.confirm"

	DefaultRetention = 72 * time.Hour
)

var ErrRepository = errors.New("payment: repository failure")

type Config struct {
	Secret []byte
	// Retention is how long a processed event id keeps rejecting replays.
	Retention time.Duration
}

type ConfirmPaymentInput struct {
	Body      []byte
	Signature string
	// EventID comes from the delivery header; the payload event_id is the fallback.
	EventID string
}

type ConfirmPaymentResult struct {
	Outcome     dompayment.Outcome
	EventID     string
	OrderID     string
	OrderStatus domorder.Status
}

// ConfirmPaymentUseCase applies a verified payment notification exactly once. The
// event id is recorded in the same atomic unit as PENDING -> PAID, so a failed order
// update leaves the id free for a legitimate retry.
type ConfirmPaymentUseCase struct {
	store  application.Store
	guard  InflightGuard
	events *application.EventPublisher
	cfg    Config
	now    func() time.Time

	inst     application.Instruments
	webhooks observability.Counter // payment_webhooks_total{outcome}
}

type Option func(*ConfirmPaymentUseCase)

// WithInflightGuard is optional; without it concurrent duplicates still resolve in the store.
func WithInflightGuard(g InflightGuard) Option {
	return func(uc *ConfirmPaymentUseCase) { uc.guard = g }
}

func WithClock(now func() time.Time) Option {
	return func(uc *ConfirmPaymentUseCase) { uc.now = now }
}

func NewConfirmPaymentUseCase(
	store application.Store,
	events *application.EventPublisher,
	cfg Config,
	tel observability.Observability,
	opts ...Option,
) *ConfirmPaymentUseCase {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	inst := application.NewInstruments(tel, paymentService)
	uc := &ConfirmPaymentUseCase{
		store:    store,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
		inst:     inst,
		webhooks: inst.Metrics.Counter(observability.MPaymentWebhooks),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, cmd ConfirmPaymentInput) (_ *ConfirmPaymentResult, err error) {
	ctx, run := uc.inst.Begin(ctx, useCasePaymentConfirm, "ConfirmPayment")
	webhookOutcome := "error"
	defer func() {
		uc.webhooks.Add(1, observability.L("outcome", webhookOutcome))
		run.End(err)
	}()

	if err := dompayment.Verify(cmd.Body, cmd.Signature, uc.cfg.Secret); err != nil {
		webhookOutcome = "unauthorized"
		run.Fail("SIGNATURE_INVALID")
		run.Logger().Warn("payment_signature_rejected",
			observability.F("body_bytes", len(cmd.Body)),
			observability.F("signature_present", cmd.Signature != ""),
		)
		return nil, err
	}

	n, err := dompayment.ParseNotification(cmd.Body)
	if err != nil {
		webhookOutcome = "invalid"
		run.Fail("PAYLOAD_MALFORMED")
		return nil, err
	}
	eventID := cmd.EventID
	if eventID == "" {
		eventID = n.EventID
	}
	if eventID == "" {
		webhookOutcome = "invalid"
		run.Fail("EVENT_ID_REQUIRED")
		return nil, application.Invalid(dompayment.ErrMissingEventID)
	}
	handled := n.Event == dompayment.EventPaymentSucceeded
	if handled && n.OrderID == "" {
		webhookOutcome = "invalid"
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.Invalid(dompayment.ErrMissingOrderID)
	}

	run.With(
		observability.F("event_id", eventID),
		observability.F("event_type", n.Event),
		observability.F("order_id", n.OrderID),
	)
	run.Span().SetAttributes(
		attribute.String("payment.event_id", eventID),
		attribute.String("payment.event_type", n.Event),
		attribute.String("order.id", n.OrderID),
	)

	if uc.guard != nil {
		release, acquired, gerr := uc.guard.Acquire(ctx, eventID)
		switch {
		case gerr != nil:
			// The store still rejects duplicates; carry on without the guard.
			run.Logger().Warn("inflight_guard_unavailable", observability.F("error", gerr.Error()))
		case !acquired:
			webhookOutcome = "in_flight"
			run.Fail("EVENT_IN_FLIGHT")
			return nil, dompayment.ErrEventInFlight
		default:
			defer release(context.WithoutCancel(ctx))
		}
	}

	res := &ConfirmPaymentResult{EventID: eventID, OrderID: n.OrderID}
	outcome := dompayment.OutcomeIgnored
	if handled {
		outcome = dompayment.OutcomeConfirmed
	}

	var paid *domorder.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		now := uc.now().UTC()
		record := dompayment.ProcessedEvent{
			EventID:     eventID,
			OrderID:     n.OrderID,
			Outcome:     outcome,
			ProcessedAt: now,
		}
		inserted, err := repos.ProcessedEvents().InsertIfAbsent(ctx, record, now.Add(-uc.cfg.Retention))
		if err != nil {
			return err
		}
		if !inserted {
			return dompayment.ErrDuplicateEvent
		}
		if !handled {
			return nil
		}

		o, err := repos.Orders().Lock(ctx, n.OrderID)
		if err != nil {
			return err
		}
		if err := o.MarkPaid(eventID); err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, o); err != nil {
			return err
		}
		paid = o
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, dompayment.ErrDuplicateEvent):
		webhookOutcome = string(dompayment.OutcomeDuplicate)
		run.Status("DUPLICATE_EVENT")
		run.Span().AddEvent("payment.duplicate",
			trace.WithAttributes(attribute.String("payment.event_id", eventID)),
		)
		res.Outcome = dompayment.OutcomeDuplicate
		return res, nil
	case errors.Is(err, domorder.ErrNotFound):
		webhookOutcome = "not_found"
		run.Fail("ORDER_NOT_FOUND")
		return nil, err
	case errors.Is(err, domorder.ErrInvalidTransition):
		webhookOutcome = "invalid_transition"
		run.Fail("INVALID_TRANSITION")
		return nil, err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	default:
		run.Fail("REPO_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	res.Outcome = outcome
	webhookOutcome = string(outcome)
	if !handled {
		run.Status("EVENT_IGNORED")
		return res, nil
	}

	res.OrderStatus = paid.Status
	if perr := uc.events.Publish(ctx, domorder.NewOrderPaidEvent(paid)); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.With(observability.F("event_publish_error", perr.Error()))
	}
	run.Span().AddEvent("order.paid",
		trace.WithAttributes(attribute.String("order.id", paid.ID)),
	)
	return res, nil
}
