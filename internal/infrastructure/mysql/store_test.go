package mysql

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func productRows(stock int) *sqlmock.Rows {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "sku", "name", "price", "stock", "created_at", "updated_at"}).
		AddRow("p-1", "SKU-1", "Widget", "9.99", stock, now, now)
}

func TestAtomicCommitsReservation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? FOR UPDATE")).
		WithArgs("p-1").
		WillReturnRows(productRows(5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs("Widget", sqlmock.AnyArg(), 3, sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Products().Lock(ctx, "p-1")
		if err != nil {
			return err
		}
		if p.Price.String() != "9.99" {
			t.Errorf("price = %s", p.Price)
		}
		if err := p.Reserve(2); err != nil {
			return err
		}
		return repos.Products().Update(ctx, p)
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? FOR UPDATE")).
		WithArgs("p-1").
		WillReturnRows(productRows(1))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Products().Lock(ctx, "p-1")
		if err != nil {
			return err
		}
		return p.Reserve(2)
	})
	if !errors.Is(err, domproduct.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAtomicRetriesDeadlockVictim(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_events")).
		WillReturnError(&gomysql.MySQLError{Number: errDeadlock, Message: "Deadlock found"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_events")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	var purged int
	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		var err error
		purged, err = repos.ProcessedEvents().Purge(ctx, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if purged != 4 {
		t.Fatalf("purged = %d", purged)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAtomicDoesNotRetryOtherErrors(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_events")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		_, err := repos.ProcessedEvents().Purge(ctx, time.Now())
		return err
	})
	if err == nil {
		t.Fatalf("want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertIfAbsentReadsAffectedRows(t *testing.T) {
	cases := []struct {
		affected int64
		want     bool
	}{
		{1, true},  // new row
		{2, true},  // expired row replaced
		{0, false}, // live duplicate
	}
	for _, tc := range cases {
		store, mock := newMock(t)
		notBefore := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_events")).
			WithArgs("evt-1", "o-1", "confirmed", sqlmock.AnyArg(), notBefore, notBefore, notBefore).
			WillReturnResult(sqlmock.NewResult(0, tc.affected))
		mock.ExpectCommit()

		var got bool
		err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
			var err error
			got, err = repos.ProcessedEvents().InsertIfAbsent(ctx, dompayment.ProcessedEvent{
				EventID:     "evt-1",
				OrderID:     "o-1",
				Outcome:     dompayment.OutcomeConfirmed,
				ProcessedAt: notBefore.Add(time.Hour),
			}, notBefore)
			return err
		})
		if err != nil {
			t.Fatalf("affected=%d: %v", tc.affected, err)
		}
		if got != tc.want {
			t.Fatalf("affected=%d: inserted = %v, want %v", tc.affected, got, tc.want)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
	}
}

func TestProductErrorsMapToDomain(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&gomysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Products().Insert(ctx, &domproduct.Product{ID: "p-2", SKU: "SKU-1", Name: "Other"})
	})
	if !errors.Is(err, domproduct.ErrDuplicateSKU) {
		t.Fatalf("insert duplicate: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	err = store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		_, err := repos.Products().Get(ctx, "missing")
		return err
	})
	if !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Products().Delete(ctx, "missing")
	})
	if !errors.Is(err, domproduct.ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOrderListAndCount(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE status = ?")).
		WithArgs("PAID", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "reserved", "status", "payment_event_id", "created_at", "updated_at"}).
			AddRow("o-1", "p-1", 2, 2, "PAID", "evt-1", now, now).
			AddRow("o-2", "p-1", 1, 1, "PAID", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders")).
		WithArgs("p-1", "PENDING", "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		orders, err := repos.Orders().List(ctx, domorder.ListFilter{Status: domorder.StatusPaid, Limit: 10})
		if err != nil {
			return err
		}
		if len(orders) != 2 || orders[0].PaymentEventID != "evt-1" || orders[1].PaymentEventID != "" {
			t.Errorf("orders = %+v %+v", orders[0], orders[1])
		}
		n, err := repos.Orders().CountOpenByProduct(ctx, "p-1")
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("open = %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("shop:secret@tcp(db:3306)/minishop")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn = %s", dsn)
	}
	if _, err := normalizeDSN("::not a dsn"); err == nil {
		t.Fatalf("want parse error")
	}
}
