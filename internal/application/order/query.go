package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domain "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type GetOrderInput struct {
	ID string
}

type GetOrderUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewGetOrderUseCase(store application.Store, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{store: store, inst: application.NewInstruments(tel, orderService)}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", cmd.ID),
	)
	defer func() { run.End(err) }()

	var o *domain.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		o, err = repos.Orders().Get(ctx, cmd.ID)
		return err
	})
	if err != nil {
		run.Fail(failureStatus(err))
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

type ListOrdersInput struct {
	Status string // optional, any letter case
	Offset int
	Limit  int
}

type ListOrdersUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewListOrdersUseCase(store application.Store, tel observability.Observability) *ListOrdersUseCase {
	return &ListOrdersUseCase{store: store, inst: application.NewInstruments(tel, orderService)}
}

func (uc *ListOrdersUseCase) Execute(ctx context.Context, cmd ListOrdersInput) (_ []*domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderList, "ListOrders")
	defer func() { run.End(err) }()

	filter := domain.ListFilter{}
	if cmd.Status != "" {
		if filter.Status, err = domain.ParseStatus(cmd.Status); err != nil {
			run.Fail("VALIDATION_FAILED")
			return nil, application.Invalid(err)
		}
	}
	if filter.Offset, filter.Limit, err = inventory.Page(cmd.Offset, cmd.Limit); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	var out []*domain.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		out, err = repos.Orders().List(ctx, filter)
		return err
	})
	if err != nil {
		run.Fail(failureStatus(err))
		return nil, wrapRepositoryError(err)
	}
	run.With(observability.F("count", len(out)))
	return out, nil
}
