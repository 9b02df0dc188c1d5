package conn

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/lockql"
)

// Router sends reads to replicas and anything that locks rows to the primary.
type Router struct {
	Primary  *DB
	Replicas []*DB

	next atomic.Uint64
}

// NewRouter creates a router over a primary and its replicas.
func NewRouter(primary *DB, replicas ...*DB) *Router {
	return &Router{Primary: primary, Replicas: replicas}
}

// RouterFromConfig opens the primary and every replica listed in cfg.
func RouterFromConfig(cfg Config, opts ...Option) (*Router, error) {
	primary, err := FromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	r := &Router{Primary: primary}
	for _, dsn := range cfg.Replicas {
		replica, err := openDSN(cfg, dsn, opts)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.Replicas = append(r.Replicas, replica)
	}
	return r, nil
}

// For picks the database for a query. Locks are always taken on the primary;
// other reads rotate across replicas.
func (r *Router) For(ast *lockql.AST) *DB {
	if len(r.Replicas) == 0 || lockql.Locks(ast) {
		return r.Primary
	}
	n := r.next.Add(1) - 1
	return r.Replicas[n%uint64(len(r.Replicas))]
}

// Select routes and runs a query in autocommit mode.
func (r *Router) Select(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	ast, err := q.Build()
	if err != nil {
		return err
	}
	return r.For(ast).Select(ctx, dest, q, params)
}

// Get routes and runs a single-row query in autocommit mode.
func (r *Router) Get(ctx context.Context, dest any, q *lockql.Builder, params map[string]any) error {
	ast, err := q.Build()
	if err != nil {
		return err
	}
	return r.For(ast).Get(ctx, dest, q, params)
}

// Atomic runs fn in a transaction on the primary.
func (r *Router) Atomic(ctx context.Context, fn func(*Tx) error) error {
	return r.Primary.Atomic(ctx, fn)
}

// Close closes the primary and every replica, returning the first error.
func (r *Router) Close() error {
	var first error
	for _, d := range append([]*DB{r.Primary}, r.Replicas...) {
		if d == nil {
			continue
		}
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
