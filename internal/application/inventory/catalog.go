package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService     = "inventory-service"
	useCaseProductCreate = "product.create"
	useCaseProductUpdate = "product.update"
	useCaseProductDelete = "product.delete"
	useCaseProductGet    = "product.get"
	useCaseProductList   = "product.list"

	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var ErrRepository = errors.New("inventory: repository failure")

type CreateProductInput struct {
	SKU   string
	Name  string
	Price decimal.Decimal
	Stock int
}

type CreateProductUseCase struct {
	store application.Store
	ids   application.IDGenerator
	inst  application.Instruments
}

func NewCreateProductUseCase(store application.Store, ids application.IDGenerator, tel observability.Observability) *CreateProductUseCase {
	return &CreateProductUseCase{
		store: store,
		ids:   ids,
		inst:  application.NewInstruments(tel, inventoryService),
	}
}

func (uc *CreateProductUseCase) Execute(ctx context.Context, cmd CreateProductInput) (_ *domproduct.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseProductCreate, "CreateProduct",
		attribute.String("product.sku", cmd.SKU),
	)
	defer func() { run.End(err) }()

	p, err := domproduct.New(uc.ids.NewID(), cmd.SKU, cmd.Name, cmd.Price, cmd.Stock)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid(err)
	}

	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		return repos.Products().Insert(ctx, p)
	})
	if err != nil {
		if errors.Is(err, domproduct.ErrDuplicateSKU) {
			run.Fail("DUPLICATE_SKU")
			return nil, err
		}
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	run.With(observability.F("product_id", p.ID))
	return p, nil
}

// UpdateProductInput applies only the fields that are set. SKU is immutable; a
// different value is rejected.
type UpdateProductInput struct {
	ID    string
	SKU   *string
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

type UpdateProductUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewUpdateProductUseCase(store application.Store, tel observability.Observability) *UpdateProductUseCase {
	return &UpdateProductUseCase{store: store, inst: application.NewInstruments(tel, inventoryService)}
}

func (uc *UpdateProductUseCase) Execute(ctx context.Context, cmd UpdateProductInput) (_ *domproduct.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseProductUpdate, "UpdateProduct",
		attribute.String("product.id", cmd.ID),
	)
	defer func() { run.End(err) }()
	run.With(observability.F("product_id", cmd.ID))

	var updated *domproduct.Product
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Products().Lock(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if err := applyUpdate(p, cmd); err != nil {
			return err
		}
		if err := repos.Products().Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, domproduct.ErrNotFound):
		run.Fail("PRODUCT_NOT_FOUND")
		return nil, err
	case errors.Is(err, application.ErrValidation):
		run.Fail("VALIDATION_FAILED")
		return nil, err
	default:
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
}

func applyUpdate(p *domproduct.Product, cmd UpdateProductInput) error {
	if cmd.SKU != nil && *cmd.SKU != p.SKU {
		return application.Validation("sku is immutable")
	}
	if cmd.Name != nil {
		if err := p.Rename(*cmd.Name); err != nil {
			return application.Invalid(err)
		}
	}
	if cmd.Price != nil {
		if err := p.Reprice(*cmd.Price); err != nil {
			return application.Invalid(err)
		}
	}
	if cmd.Stock != nil {
		if err := p.SetStock(*cmd.Stock); err != nil {
			return application.Invalid(err)
		}
	}
	return nil
}

type DeleteProductInput struct {
	ID string
}

// DeleteProductUseCase hard-deletes a product. Deletion is refused while any PENDING
// or PAID order references the product, so no open order loses its stock target.
type DeleteProductUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewDeleteProductUseCase(store application.Store, tel observability.Observability) *DeleteProductUseCase {
	return &DeleteProductUseCase{store: store, inst: application.NewInstruments(tel, inventoryService)}
}

func (uc *DeleteProductUseCase) Execute(ctx context.Context, cmd DeleteProductInput) (_ struct{}, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseProductDelete, "DeleteProduct",
		attribute.String("product.id", cmd.ID),
	)
	defer func() { run.End(err) }()
	run.With(observability.F("product_id", cmd.ID))

	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		if _, err := repos.Products().Lock(ctx, cmd.ID); err != nil {
			return err
		}
		open, err := repos.Orders().CountOpenByProduct(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d open orders", domproduct.ErrInUse, open)
		}
		return repos.Products().Delete(ctx, cmd.ID)
	})
	switch {
	case err == nil:
		return struct{}{}, nil
	case errors.Is(err, domproduct.ErrNotFound):
		run.Fail("PRODUCT_NOT_FOUND")
		return struct{}{}, err
	case errors.Is(err, domproduct.ErrInUse):
		run.Fail("PRODUCT_IN_USE")
		return struct{}{}, err
	default:
		run.Fail("REPO_DELETE_FAILED")
		return struct{}{}, wrapRepositoryError(err)
	}
}

type GetProductInput struct {
	ID string
}

type GetProductUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewGetProductUseCase(store application.Store, tel observability.Observability) *GetProductUseCase {
	return &GetProductUseCase{store: store, inst: application.NewInstruments(tel, inventoryService)}
}

func (uc *GetProductUseCase) Execute(ctx context.Context, cmd GetProductInput) (_ *domproduct.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseProductGet, "GetProduct",
		attribute.String("product.id", cmd.ID),
	)
	defer func() { run.End(err) }()

	var p *domproduct.Product
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		p, err = repos.Products().Get(ctx, cmd.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, domproduct.ErrNotFound) {
			run.Fail("PRODUCT_NOT_FOUND")
			return nil, err
		}
		run.Fail("REPO_GET_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return p, nil
}

type ListProductsInput struct {
	Offset int
	Limit  int
}

type ListProductsUseCase struct {
	store application.Store
	inst  application.Instruments
}

func NewListProductsUseCase(store application.Store, tel observability.Observability) *ListProductsUseCase {
	return &ListProductsUseCase{store: store, inst: application.NewInstruments(tel, inventoryService)}
}

func (uc *ListProductsUseCase) Execute(ctx context.Context, cmd ListProductsInput) (_ []*domproduct.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseProductList, "ListProducts")
	defer func() { run.End(err) }()

	offset, limit, err := Page(cmd.Offset, cmd.Limit)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	var out []*domproduct.Product
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		out, err = repos.Products().List(ctx, offset, limit)
		return err
	})
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.With(observability.F("count", len(out)))
	return out, nil
}

// Page normalizes pagination parameters; a zero limit means DefaultListLimit.
func Page(offset, limit int) (int, int, error) {
	if offset < 0 {
		return 0, 0, application.Validation("offset must be zero or greater")
	}
	if limit < 0 || limit > MaxListLimit {
		return 0, 0, application.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	return offset, limit, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
