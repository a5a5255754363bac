package memory

import (
	"context"
	"fmt"

	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
)

type orderRepository struct{ u *unit }

func (r orderRepository) Insert(ctx context.Context, order *domorder.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.u.order(order.ID); exists {
		return domorder.ErrConflict
	}
	r.u.orders[order.ID] = order.Clone()
	return nil
}

func (r orderRepository) Get(ctx context.Context, id string) (*domorder.Order, error) {
	_ = ctx
	o, ok := r.u.order(id)
	if !ok {
		return nil, domorder.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepository) Lock(ctx context.Context, id string) (*domorder.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepository) Update(ctx context.Context, order *domorder.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, ok := r.u.order(order.ID); !ok {
		return domorder.ErrNotFound
	}
	r.u.orders[order.ID] = order.Clone()
	return nil
}

func (r orderRepository) List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error) {
	_ = ctx
	matched := make([]*domorder.Order, 0)
	for _, o := range r.u.allOrders() {
		if filter.Status == "" || o.Status == filter.Status {
			matched = append(matched, o)
		}
	}
	items := page(matched, filter.Offset, filter.Limit)
	out := make([]*domorder.Order, 0, len(items))
	for _, o := range items {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (r orderRepository) CountOpenByProduct(ctx context.Context, productID string) (int, error) {
	_ = ctx
	n := 0
	for _, o := range r.u.allOrders() {
		if o.ProductID == productID && o.Status.Open() {
			n++
		}
	}
	return n, nil
}
