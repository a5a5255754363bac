package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"

	gomysql "github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213

	maxAttempts  = 3
	retryBackoff = 20 * time.Millisecond
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store runs atomic units as InnoDB transactions. Rows read for read-modify-write are
// taken with SELECT ... FOR UPDATE, so reservations on one product queue behind each
// other and event ids are admitted by the primary key.
type Store struct {
	db *sql.DB
}

var _ application.Store = (*Store)(nil)

// Open connects, pings and creates missing tables.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	s := NewStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// normalizeDSN forces UTC time parsing. Found-rows mode stays off because
// InsertIfAbsent reads the affected-row count of ON DUPLICATE KEY UPDATE.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = false
	return cfg.FormatDSN(), nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: ensure schema: %w", err)
		}
	}
	return nil
}

// Atomic retries the whole unit when InnoDB picks it as a deadlock victim.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.atomicOnce(ctx, fn)
		if err == nil || !retryable(err) || attempt == maxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}

func (s *Store) atomicOnce(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("mysql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, repositories{q: tx}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var me *gomysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errDeadlock || me.Number == errLockWaitTimeout
}

func isDuplicateEntry(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct{ q querier }

func (r repositories) Products() domproduct.Repository                     { return productRepo{q: r.q} }
func (r repositories) Orders() domorder.Repository                         { return orderRepo{q: r.q} }
func (r repositories) ProcessedEvents() dompayment.ProcessedEventRepository { return eventRepo{q: r.q} }
