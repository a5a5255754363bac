package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domain "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type SetOrderStatusInput struct {
	ID     string
	Status string
}

// SetOrderStatusUseCase drives manual transitions such as fulfillment. A CANCELED target
// takes the same path as CancelOrder, so stock is released exactly as it would be there.
type SetOrderStatusUseCase struct {
	store    application.Store
	canceler canceler
	events   *application.EventPublisher
	inst     application.Instruments
}

func NewSetOrderStatusUseCase(
	store application.Store,
	ledger *inventory.Ledger,
	policy Policy,
	events *application.EventPublisher,
	tel observability.Observability,
) *SetOrderStatusUseCase {
	return &SetOrderStatusUseCase{
		store:    store,
		canceler: canceler{ledger: ledger, policy: policy},
		events:   events,
		inst:     application.NewInstruments(tel, orderService),
	}
}

func (uc *SetOrderStatusUseCase) Execute(ctx context.Context, cmd SetOrderStatusInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderSetStatus, "SetOrderStatus",
		attribute.String("order.id", cmd.ID),
		attribute.String("order.requested_status", cmd.Status),
	)
	defer func() { run.End(err) }()
	run.With(
		observability.F("order_id", cmd.ID),
		observability.F("requested_status", cmd.Status),
	)

	target, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid(err)
	}

	if target == domain.StatusCanceled {
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

	var updated *domain.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := repos.Orders().Lock(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if err := o.TransitionTo(target); err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		var terr *domain.TransitionError
		if errors.As(err, &terr) {
			run.With(observability.F("current_status", string(terr.Current)))
		}
		run.Fail(failureStatus(err))
		return nil, wrapRepositoryError(err)
	}

	var event domoutbox.Event
	switch target {
	case domain.StatusPaid:
		event = domain.NewOrderPaidEvent(updated)
	case domain.StatusShipped:
		event = domain.NewOrderShippedEvent(updated)
	}
	if perr := uc.events.Publish(ctx, event); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.With(observability.F("event_publish_error", perr.Error()))
	}
	return updated, nil
}
