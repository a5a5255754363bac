package order

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
)

const (
	orderService = "order-service"

	useCaseOrderCreate    = "order.create"
	useCaseOrderCancel    = "order.cancel"
	useCaseOrderSetStatus = "order.set_status"
	useCaseOrderGet       = "order.get"
	useCaseOrderList      = "order.list"
)

var ErrRepository = errors.New("order: repository failure")

// failureStatus names the use_case_done status for an error returned by an atomic unit.
func failureStatus(err error) string {
	switch {
	case errors.Is(err, domproduct.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, domproduct.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_FAILED"
	}
}

// wrapRepositoryError keeps domain errors intact and tags everything else as a
// storage failure.
func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domproduct.ErrInsufficientStock),
		errors.Is(err, domproduct.ErrNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
