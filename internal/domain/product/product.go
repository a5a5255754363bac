package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrDuplicateSKU      = errors.New("product: sku already exists")
	ErrInUse             = errors.New("product: referenced by open orders")
	ErrInvalidSKU        = errors.New("product: sku is required")
	ErrInvalidName       = errors.New("product: name is required")
	ErrInvalidPrice      = errors.New("product: price must be greater than zero")
	ErrInvalidStock      = errors.New("product: stock must be zero or greater")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("product: insufficient stock")
)

// InsufficientStockError carries the machine-readable detail of a failed reservation.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product: insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type Product struct {
	ID        string
	SKU       string
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, sku, name string, price decimal.Decimal, stock int) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	now := time.Now().UTC()
	return &Product{
		ID:        id,
		SKU:       sku,
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Reserve takes quantity units out of stock. Stock never goes negative.
func (p *Product) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return &InsufficientStockError{ProductID: p.ID, Requested: quantity, Available: p.Stock}
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// Release puts back units taken by an earlier Reserve.
func (p *Product) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.touch()
	return nil
}

func (p *Product) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	p.Name = name
	p.touch()
	return nil
}

func (p *Product) Reprice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	p.Price = price
	p.touch()
	return nil
}

// SetStock overwrites the stock level (restock or manual correction).
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	p.Stock = stock
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
