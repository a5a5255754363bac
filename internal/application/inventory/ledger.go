package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
)

// Ledger moves stock between products and orders. It never commits on its own: every
// call runs on the repositories of the caller's atomic unit, and the product row is
// locked before it is read so reservations on one product are serialized.
type Ledger struct {
	reservations observability.Counter // inventory_reservations_total{op,outcome}
}

func NewLedger(tel observability.Observability) *Ledger {
	return &Ledger{
		reservations: observability.OrNop(tel).Metrics().Counter(observability.MStockReservations),
	}
}

// Reserve takes quantity units of productID. It fails with ErrNotFound or an
// *InsufficientStockError and leaves stock untouched in that case.
func (l *Ledger) Reserve(ctx context.Context, repos application.Repositories, productID string, quantity int) (_ *domproduct.Product, err error) {
	defer func() { l.count("reserve", err) }()

	if quantity <= 0 {
		return nil, domproduct.ErrInvalidQuantity
	}
	products := repos.Products()
	p, err := products.Lock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := p.Reserve(quantity); err != nil {
		return nil, err
	}
	if err := products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("inventory: update stock: %w", err)
	}
	return p, nil
}

// Release returns exactly what o still holds to its product and zeroes o.Reserved.
// The caller persists o in the same unit.
func (l *Ledger) Release(ctx context.Context, repos application.Repositories, o *domorder.Order) (released int, err error) {
	if o.Reserved == 0 {
		return 0, nil
	}
	defer func() { l.count("release", err) }()

	products := repos.Products()
	p, err := products.Lock(ctx, o.ProductID)
	if err != nil {
		return 0, err
	}
	if err := p.Release(o.Reserved); err != nil {
		return 0, err
	}
	if err := products.Update(ctx, p); err != nil {
		return 0, fmt.Errorf("inventory: update stock: %w", err)
	}
	released, o.Reserved = o.Reserved, 0
	return released, nil
}

func (l *Ledger) count(op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domproduct.ErrInsufficientStock):
		outcome = "insufficient_stock"
	case errors.Is(err, domproduct.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	l.reservations.Add(1,
		observability.L("op", op),
		observability.L("outcome", outcome),
	)
}
