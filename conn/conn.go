// Package conn executes lockql queries through database/sql using sqlx.
//
// A DB detects its dialect from the driver name and probes the server once
// for the facts row-locking support depends on. Queries that lock rows are
// refused outside a transaction; inside one they are checked against the
// server's capabilities before any SQL is sent.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/zoobzio/lockql"
	"github.com/zoobzio/lockql/internal/render"
)

// DB wraps a sqlx.DB with dialect detection and memoized capabilities.
// It is safe for concurrent use.
type DB struct {
	db      *sqlx.DB
	dialect string
	log     logrus.FieldLogger

	mu       sync.Mutex
	info     *render.ServerInfo   // pinned server facts, skips probing
	caps     *render.Capabilities // pinned capabilities
	renderer lockql.Renderer
	probes   int
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *DB) { d.log = log }
}

// WithDialect overrides the dialect detected from the driver name.
func WithDialect(dialect string) Option {
	return func(d *DB) { d.dialect = dialect }
}

// WithServerInfo pins the server facts so the server is never probed.
func WithServerInfo(info lockql.ServerInfo) Option {
	return func(d *DB) { d.info = &info }
}

// WithCapabilities pins the capabilities, bypassing version gates.
func WithCapabilities(caps lockql.Capabilities) Option {
	return func(d *DB) { d.caps = &caps }
}

// Open opens a database and wraps it.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	d, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an open sqlx.DB.
func New(db *sqlx.DB, opts ...Option) (*DB, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	d := &DB{db: db, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	if d.dialect == "" {
		dialect, err := DialectForDriver(db.DriverName())
		if err != nil {
			return nil, err
		}
		d.dialect = dialect
	}
	if d.caps != nil {
		if err := d.caps.Validate(); err != nil {
			return nil, err
		}
	}
	d.log = d.log.WithField("dialect", d.dialect)
	return d, nil
}

// Dialect returns the dialect name.
func (d *DB) Dialect() string {
	return d.dialect
}

// SQLX returns the underlying sqlx.DB.
func (d *DB) SQLX() *sqlx.DB {
	return d.db
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Renderer returns the dialect renderer for the connected server, probing
// the server on first use. Concurrent first calls share a single probe.
// A failed probe is returned and retried on the next call.
func (d *DB) Renderer(ctx context.Context) (lockql.Renderer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.renderer != nil {
		return d.renderer, nil
	}

	var info render.ServerInfo
	if d.info != nil {
		info = *d.info
		info.Dialect = d.dialect
	} else {
		probed, err := d.probe(ctx)
		if err != nil {
			return nil, err
		}
		info = probed
	}

	r, err := newRenderer(info, d.caps)
	if err != nil {
		return nil, err
	}
	d.log.WithFields(logrus.Fields{
		"version":        info.Version.String(),
		"variant":        info.Variant,
		"storage_engine": info.StorageEngine,
	}).Debug("resolved server capabilities")
	d.renderer = r
	return r, nil
}

// Capabilities returns the row-locking capabilities of the connected server.
func (d *DB) Capabilities(ctx context.Context) (lockql.Capabilities, error) {
	r, err := d.Renderer(ctx)
	if err != nil {
		return lockql.Capabilities{}, err
	}
	return r.Capabilities(), nil
}

// ResetCapabilities drops the memoized capabilities; the next use probes again.
func (d *DB) ResetCapabilities() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderer = nil
}

// Select runs a query in autocommit mode and scans all rows into dest.
// Locking queries fail with a TransactionStateError.
func (d *DB) Select(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	query, args, err := d.prepare(ctx, d.db, d.log, q, params, false)
	if err != nil {
		return err
	}
	return d.db.SelectContext(ctx, dest, query, args...)
}

// Get runs a query in autocommit mode and scans a single row into dest.
// It returns sql.ErrNoRows when nothing matches.
func (d *DB) Get(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	query, args, err := d.prepare(ctx, d.db, d.log, q, params, false)
	if err != nil {
		return err
	}
	return d.db.GetContext(ctx, dest, query, args...)
}

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return newTx(d, tx), nil
}

// Atomic runs fn in a transaction, committing when fn returns nil and rolling
// back when it returns an error or panics.
func (d *DB) Atomic(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := d.Begin(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback("panic")
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.rollback("error")
		return err
	}
	return tx.Commit()
}

// prepare builds, guards, renders and binds a query.
func (d *DB) prepare(ctx context.Context, q binder, log logrus.FieldLogger, b *lockql.Builder, params map[string]any, inTransaction bool) (string, []any, error) {
	if b == nil {
		return "", nil, fmt.Errorf("query cannot be nil")
	}
	ast, err := b.Build()
	if err != nil {
		return "", nil, err
	}
	if err := lockql.CheckTransaction(ast, inTransaction); err != nil {
		return "", nil, err
	}
	r, err := d.Renderer(ctx)
	if err != nil {
		return "", nil, err
	}
	result, err := r.Render(ast)
	if err != nil {
		return "", nil, err
	}
	if result.Locking() {
		log.WithField("locks", result.Locks).Debug("locking query")
	}
	return bind(q, result, params)
}

// binder rebinds "?" placeholders to the driver's bind style.
type binder interface {
	Rebind(query string) string
}

// bind converts ":name" placeholders into driver arguments.
func bind(q binder, result *lockql.QueryResult, params map[string]any) (string, []any, error) {
	for _, name := range result.RequiredParams {
		if _, ok := params[name]; !ok {
			return "", nil, fmt.Errorf("missing parameter: %s", name)
		}
	}
	if len(result.RequiredParams) == 0 {
		return result.SQL, nil, nil
	}
	query, args, err := sqlx.Named(result.SQL, params)
	if err != nil {
		return "", nil, fmt.Errorf("binding parameters: %w", err)
	}
	return q.Rebind(query), args, nil
}
