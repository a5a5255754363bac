package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domain "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Policy holds the business choices the state machine leaves open.
type Policy struct {
	// ReleaseOnPaidCancel returns the reservation of a PAID order that is canceled
	// before shipping. PENDING cancellations always release.
	ReleaseOnPaidCancel bool
}

func DefaultPolicy() Policy {
	return Policy{ReleaseOnPaidCancel: true}
}

type canceled struct {
	order    *domain.Order
	previous domain.Status
	released int
}

// canceler is the cancel path shared by CancelOrder and SetOrderStatus(CANCELED).
type canceler struct {
	ledger *inventory.Ledger
	policy Policy
}

func (c canceler) cancel(ctx context.Context, repos application.Repositories, id string) (canceled, error) {
	o, err := repos.Orders().Lock(ctx, id)
	if err != nil {
		return canceled{}, err
	}
	previous := o.Status
	if err := o.TransitionTo(domain.StatusCanceled); err != nil {
		return canceled{}, err
	}

	released := 0
	if previous == domain.StatusPending || (previous == domain.StatusPaid && c.policy.ReleaseOnPaidCancel) {
		if released, err = c.ledger.Release(ctx, repos, o); err != nil {
			return canceled{}, err
		}
	}
	if err := repos.Orders().Update(ctx, o); err != nil {
		return canceled{}, err
	}
	return canceled{order: o, previous: previous, released: released}, nil
}

type CancelOrderInput struct {
	ID string
}

type CancelOrderUseCase struct {
	store    application.Store
	canceler canceler
	events   *application.EventPublisher
	inst     application.Instruments
}

func NewCancelOrderUseCase(
	store application.Store,
	ledger *inventory.Ledger,
	policy Policy,
	events *application.EventPublisher,
	tel observability.Observability,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		store:    store,
		canceler: canceler{ledger: ledger, policy: policy},
		events:   events,
		inst:     application.NewInstruments(tel, orderService),
	}
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, cmd CancelOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", cmd.ID),
	)
	defer func() { run.End(err) }()
	run.With(observability.F("order_id", cmd.ID))

	var res canceled
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		res, err = uc.canceler.cancel(ctx, repos, cmd.ID)
		return err
	})
	if err != nil {
		run.Fail(failureStatus(err))
		return nil, wrapRepositoryError(err)
	}

	publishCanceled(ctx, run, uc.events, res)
	return res.order, nil
}

func publishCanceled(ctx context.Context, run *application.Run, events *application.EventPublisher, res canceled) {
	run.With(
		observability.F("previous_status", string(res.previous)),
		observability.F("released", res.released),
	)
	if err := events.Publish(ctx, domain.NewOrderCanceledEvent(res.order, res.previous, res.released)); err != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.With(observability.F("event_publish_error", err.Error()))
	}
}
