// Package sqlite provides the SQLite dialect renderer for lockql.
//
// SQLite locks the whole database file rather than individual rows, so every
// row-locking request is rejected before any SQL is produced.
package sqlite

import (
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Name is the dialect identifier.
const Name = "sqlite"

// Renderer implements the SQLite dialect renderer.
type Renderer struct {
	caps render.Capabilities
}

// New creates a SQLite renderer.
func New() *Renderer {
	return NewForServer(render.ServerInfo{Dialect: Name})
}

// NewForServer creates a renderer for the described server.
func NewForServer(info render.ServerInfo) *Renderer {
	return &Renderer{caps: Features(info)}
}

// NewWithCapabilities creates a renderer with explicit capabilities.
func NewWithCapabilities(caps render.Capabilities) *Renderer {
	return &Renderer{caps: caps}
}

// Features returns SQLite capabilities: transactions, no row locking.
func Features(render.ServerInfo) render.Capabilities {
	return render.Capabilities{Transactions: true}
}

// Render converts an AST to a QueryResult with SQLite SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// Name returns the dialect identifier.
func (*Renderer) Name() string { return Name }

// Capabilities returns the row-locking features of the target server.
func (r *Renderer) Capabilities() render.Capabilities {
	return r.caps
}

// QuoteIdentifier quotes a SQLite identifier.
func (*Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Pagination renders LIMIT and OFFSET; SQLite needs LIMIT -1 for a bare OFFSET.
func (*Renderer) Pagination(ast *types.AST) (string, error) {
	switch {
	case ast.Limit != nil && ast.Offset != nil:
		return "LIMIT " + strconv.Itoa(*ast.Limit) + " OFFSET " + strconv.Itoa(*ast.Offset), nil
	case ast.Limit != nil:
		return "LIMIT " + strconv.Itoa(*ast.Limit), nil
	case ast.Offset != nil:
		return "LIMIT -1 OFFSET " + strconv.Itoa(*ast.Offset), nil
	}
	return "", nil
}

// LockClause renders the standard clause; it is only reached when
// capabilities have been overridden to claim row locking.
func (r *Renderer) LockClause(lock *types.Lock) string {
	return render.TrailingLockClause(r, lock)
}
