package product

import "context"

// Repository is scoped to one atomic unit; see application.Store.
type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	// Lock loads the product and holds it against concurrent read-modify-write until the unit ends.
	Lock(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, offset, limit int) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
