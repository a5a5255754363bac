package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
)

// Store keeps everything in process. Atomic units run one at a time, which makes the
// store the single serialization point for stock and event admission. Writes are staged
// on the unit and applied only when it commits.
type Store struct {
	sem chan struct{}

	products map[string]*domproduct.Product
	skus     map[string]string // sku -> product id
	orders   map[string]*domorder.Order
	events   map[string]dompayment.ProcessedEvent
}

var _ application.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		products: make(map[string]*domproduct.Product),
		skus:     make(map[string]string),
		orders:   make(map[string]*domorder.Order),
		events:   make(map[string]dompayment.ProcessedEvent),
	}
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	if err := ctx.Err(); err != nil {
		return err
	}

	u := &unit{
		store:    s,
		products: make(map[string]*domproduct.Product),
		orders:   make(map[string]*domorder.Order),
		events:   make(map[string]*dompayment.ProcessedEvent),
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	// A caller that went away before commit gets nothing applied.
	if err := ctx.Err(); err != nil {
		return err
	}
	u.commit()
	return nil
}

// unit stages writes; a nil map value marks a delete.
type unit struct {
	store    *Store
	products map[string]*domproduct.Product
	orders   map[string]*domorder.Order
	events   map[string]*dompayment.ProcessedEvent
}

func (u *unit) Products() domproduct.Repository                     { return productRepository{u} }
func (u *unit) Orders() domorder.Repository                         { return orderRepository{u} }
func (u *unit) ProcessedEvents() dompayment.ProcessedEventRepository { return eventRepository{u} }

func (u *unit) commit() {
	s := u.store
	// Drop every replaced SKU before indexing new ones; a unit may hand a SKU from a
	// deleted product to a new one.
	for id := range u.products {
		if old, ok := s.products[id]; ok {
			delete(s.skus, old.SKU)
		}
	}
	for id, p := range u.products {
		if p == nil {
			delete(s.products, id)
			continue
		}
		s.products[id] = p
		s.skus[p.SKU] = id
	}
	for id, o := range u.orders {
		if o == nil {
			delete(s.orders, id)
			continue
		}
		s.orders[id] = o
	}
	for id, ev := range u.events {
		if ev == nil {
			delete(s.events, id)
			continue
		}
		s.events[id] = *ev
	}
}

func (u *unit) product(id string) (*domproduct.Product, bool) {
	if p, staged := u.products[id]; staged {
		return p, p != nil
	}
	p, ok := u.store.products[id]
	return p, ok
}

func (u *unit) order(id string) (*domorder.Order, bool) {
	if o, staged := u.orders[id]; staged {
		return o, o != nil
	}
	o, ok := u.store.orders[id]
	return o, ok
}

func (u *unit) event(id string) (dompayment.ProcessedEvent, bool) {
	if ev, staged := u.events[id]; staged {
		if ev == nil {
			return dompayment.ProcessedEvent{}, false
		}
		return *ev, true
	}
	ev, ok := u.store.events[id]
	return ev, ok
}

func (u *unit) allProducts() []*domproduct.Product {
	out := make([]*domproduct.Product, 0, len(u.store.products)+len(u.products))
	for id := range u.store.products {
		if p, ok := u.product(id); ok {
			out = append(out, p)
		}
	}
	for id, p := range u.products {
		if _, committed := u.store.products[id]; !committed && p != nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (u *unit) allOrders() []*domorder.Order {
	out := make([]*domorder.Order, 0, len(u.store.orders)+len(u.orders))
	for id := range u.store.orders {
		if o, ok := u.order(id); ok {
			out = append(out, o)
		}
	}
	for id, o := range u.orders {
		if _, committed := u.store.orders[id]; !committed && o != nil {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (u *unit) allEventIDs() []string {
	ids := make([]string, 0, len(u.store.events)+len(u.events))
	for id := range u.store.events {
		ids = append(ids, id)
	}
	for id := range u.events {
		if _, committed := u.store.events[id]; !committed {
			ids = append(ids, id)
		}
	}
	return ids
}

func createdBefore(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
