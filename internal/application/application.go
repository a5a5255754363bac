package application

import (
	"context"
	"errors"
	"fmt"

	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

type IDGenerator interface {
	NewID() string
}

// Repositories are bound to a single atomic unit.
type Repositories interface {
	Products() domproduct.Repository
	Orders() domorder.Repository
	ProcessedEvents() dompayment.ProcessedEventRepository
}

// Store groups repository calls into atomic units. Writes made through repos inside fn
// commit together when fn returns nil and are discarded otherwise; a context that is
// done before commit also discards them. Concurrent units never observe each other's
// uncommitted writes.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

var ErrValidation = errors.New("validation failed")

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Invalid tags a domain construction error as a validation failure.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
