package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domain "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type CreateOrderInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderUseCase reserves stock and inserts the PENDING order in one atomic unit.
// When the reservation fails no order exists afterwards.
type CreateOrderUseCase struct {
	store  application.Store
	ledger *inventory.Ledger
	ids    application.IDGenerator
	events *application.EventPublisher
	inst   application.Instruments
}

func NewCreateOrderUseCase(
	store application.Store,
	ledger *inventory.Ledger,
	ids application.IDGenerator,
	events *application.EventPublisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		store:  store,
		ledger: ledger,
		ids:    ids,
		events: events,
		inst:   application.NewInstruments(tel, orderService),
	}
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.product_id", cmd.ProductID),
		attribute.Int("order.quantity", cmd.Quantity),
	)
	defer func() { run.End(err) }()
	run.With(observability.F("product_id", cmd.ProductID))

	entity, err := domain.New(uc.ids.NewID(), cmd.ProductID, cmd.Quantity)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid(err)
	}

	var remaining int
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := uc.ledger.Reserve(ctx, repos, entity.ProductID, entity.Quantity)
		if err != nil {
			return err
		}
		entity.Reserved = entity.Quantity
		if err := repos.Orders().Insert(ctx, entity); err != nil {
			return err
		}
		remaining = p.Stock
		return nil
	})
	if err != nil {
		run.Fail(failureStatus(err))
		return nil, wrapRepositoryError(err)
	}

	run.With(
		observability.F("order_id", entity.ID),
		observability.F("remaining_stock", remaining),
	)
	if perr := uc.events.Publish(ctx, domain.NewOrderCreatedEvent(entity, remaining)); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.With(observability.F("event_publish_error", perr.Error()))
	}

	run.Span().SetAttributes(attribute.String("order.status", string(entity.Status)))
	run.Span().AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)
	return entity, nil
}
