package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
)

const orderColumns = `id, product_id, quantity, reserved, status, payment_event_id, created_at, updated_at`

type orderRepo struct{ q querier }

type scanner interface {
	Scan(dest ...any) error
}

func (r orderRepo) Insert(ctx context.Context, o *domorder.Order) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, o.ProductID, o.Quantity, o.Reserved, string(o.Status), nullString(o.PaymentEventID), o.CreatedAt, o.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domorder.ErrConflict
	}
	return err
}

func (r orderRepo) Get(ctx context.Context, id string) (*domorder.Order, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
}

func (r orderRepo) Lock(ctx context.Context, id string) (*domorder.Order, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id))
}

func (r orderRepo) Update(ctx context.Context, o *domorder.Order) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE orders
SET reserved = ?, status = ?, payment_event_id = ?, updated_at = ?
WHERE id = ?`,
		o.Reserved, string(o.Status), nullString(o.PaymentEventID), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.Get(ctx, o.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r orderRepo) List(ctx context.Context, filter domorder.ListFilter) ([]*domorder.Order, error) {
	var (
		where strings.Builder
		args  []any
	)
	if filter.Status != "" {
		where.WriteString(" WHERE status = ?")
		args = append(args, string(filter.Status))
	}
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders`+where.String()+`
ORDER BY created_at, id
LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domorder.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r orderRepo) CountOpenByProduct(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM orders
WHERE product_id = ? AND status IN (?, ?)`,
		productID, string(domorder.StatusPending), string(domorder.StatusPaid),
	).Scan(&n)
	return n, err
}

func (r orderRepo) scanOne(row *sql.Row) (*domorder.Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domorder.ErrNotFound
	}
	return o, err
}

func scanOrder(s scanner) (*domorder.Order, error) {
	var (
		o       domorder.Order
		status  string
		eventID sql.NullString
	)
	if err := s.Scan(&o.ID, &o.ProductID, &o.Quantity, &o.Reserved, &status, &eventID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mysql: scan order: %w", err)
	}
	o.Status = domorder.Status(status)
	o.PaymentEventID = eventID.String
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
