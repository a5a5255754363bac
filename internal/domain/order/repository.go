package order

import "context"

type ListFilter struct {
	Status Status // empty matches every status
	Offset int
	Limit  int
}

// Repository is scoped to one atomic unit; see application.Store.
type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Lock loads the order and holds it against concurrent updates until the unit ends.
	Lock(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	CountOpenByProduct(ctx context.Context, productID string) (int, error)
}
