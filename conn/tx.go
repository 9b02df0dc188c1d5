package conn

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/zoobzio/lockql"
)

// Tx is a transaction. Row locks taken by its queries are held until
// Commit or Rollback. A Tx is used by one goroutine at a time.
type Tx struct {
	ID  uuid.UUID
	tx  *sqlx.Tx
	db  *DB
	log logrus.FieldLogger
}

func newTx(db *DB, tx *sqlx.Tx) *Tx {
	id := uuid.New()
	return &Tx{
		ID:  id,
		tx:  tx,
		db:  db,
		log: db.log.WithField("tx", id.String()),
	}
}

// Select runs a query inside the transaction and scans all rows into dest.
func (t *Tx) Select(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	query, args, err := t.prepare(ctx, q, params)
	if err != nil {
		return err
	}
	return t.tx.SelectContext(ctx, dest, query, args...)
}

// Get runs a query inside the transaction and scans a single row into dest.
// With SkipLocked, a row held by another transaction reads as sql.ErrNoRows.
func (t *Tx) Get(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	query, args, err := t.prepare(ctx, q, params)
	if err != nil {
		return err
	}
	return t.tx.GetContext(ctx, dest, query, args...)
}

// Exec runs raw SQL with named parameters inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, params map[string]any) (sql.Result, error) {
	if len(params) > 0 {
		bound, args, err := sqlx.Named(query, params)
		if err != nil {
			return nil, fmt.Errorf("binding parameters: %w", err)
		}
		return t.tx.ExecContext(ctx, t.tx.Rebind(bound), args...)
	}
	return t.tx.ExecContext(ctx, query)
}

// Commit commits the transaction and releases its locks.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction and releases its locks.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (t *Tx) rollback(reason string) {
	if err := t.tx.Rollback(); err != nil {
		t.log.WithError(err).WithField("reason", reason).Warn("rollback failed")
	}
}

func (t *Tx) prepare(ctx context.Context, q *lockql.Builder, params map[string]any) (string, []any, error) {
	return t.db.prepare(ctx, t.tx, t.log, q, params, true)
}
