package memory

import (
	"context"
	"fmt"

	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
)

type productRepository struct{ u *unit }

func (r productRepository) Insert(ctx context.Context, p *domproduct.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}
	if _, exists := r.u.product(p.ID); exists {
		return fmt.Errorf("product repository: id %s already exists", p.ID)
	}
	if r.skuTaken(p.SKU, p.ID) {
		return domproduct.ErrDuplicateSKU
	}
	r.u.products[p.ID] = p.Clone()
	return nil
}

func (r productRepository) Get(ctx context.Context, id string) (*domproduct.Product, error) {
	_ = ctx
	p, ok := r.u.product(id)
	if !ok {
		return nil, domproduct.ErrNotFound
	}
	return p.Clone(), nil
}

// Lock is Get: the unit already holds the whole store.
func (r productRepository) Lock(ctx context.Context, id string) (*domproduct.Product, error) {
	return r.Get(ctx, id)
}

func (r productRepository) List(ctx context.Context, offset, limit int) ([]*domproduct.Product, error) {
	_ = ctx
	items := page(r.u.allProducts(), offset, limit)
	out := make([]*domproduct.Product, 0, len(items))
	for _, p := range items {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r productRepository) Update(ctx context.Context, p *domproduct.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}
	if _, ok := r.u.product(p.ID); !ok {
		return domproduct.ErrNotFound
	}
	if r.skuTaken(p.SKU, p.ID) {
		return domproduct.ErrDuplicateSKU
	}
	r.u.products[p.ID] = p.Clone()
	return nil
}

func (r productRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	if _, ok := r.u.product(id); !ok {
		return domproduct.ErrNotFound
	}
	r.u.products[id] = nil
	return nil
}

func (r productRepository) skuTaken(sku, exceptID string) bool {
	for id, p := range r.u.products {
		if p != nil && id != exceptID && p.SKU == sku {
			return true
		}
	}
	id, ok := r.u.store.skus[sku]
	if !ok || id == exceptID {
		return false
	}
	p, live := r.u.product(id)
	return live && p.SKU == sku
}
