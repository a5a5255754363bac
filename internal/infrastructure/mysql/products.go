package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
)

const productColumns = `id, sku, name, price, stock, created_at, updated_at`

type productRepo struct{ q querier }

func (r productRepo) Insert(ctx context.Context, p *domproduct.Product) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO products (`+productColumns+`)
VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.SKU, p.Name, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domproduct.ErrDuplicateSKU
	}
	return err
}

func (r productRepo) Get(ctx context.Context, id string) (*domproduct.Product, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
SELECT `+productColumns+` FROM products WHERE id = ?`, id))
}

func (r productRepo) Lock(ctx context.Context, id string) (*domproduct.Product, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id))
}

func (r productRepo) List(ctx context.Context, offset, limit int) ([]*domproduct.Product, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT `+productColumns+` FROM products
ORDER BY created_at, id
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domproduct.Product, 0)
	for rows.Next() {
		var p domproduct.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r productRepo) Update(ctx context.Context, p *domproduct.Product) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE products
SET name = ?, price = ?, stock = ?, updated_at = ?
WHERE id = ?`,
		p.Name, p.Price, p.Stock, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return r.expectRow(ctx, res, p.ID)
}

func (r productRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domproduct.ErrNotFound
	}
	return nil
}

// expectRow tells "no such row" apart from "row unchanged", which MySQL reports alike.
func (r productRepo) expectRow(ctx context.Context, res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	var one int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domproduct.ErrNotFound
	}
	return err
}

func (r productRepo) scanOne(row *sql.Row) (*domproduct.Product, error) {
	var p domproduct.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domproduct.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: scan product: %w", err)
	}
	return &p, nil
}
