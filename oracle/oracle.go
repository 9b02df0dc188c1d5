// Package oracle provides the Oracle dialect renderer for lockql.
//
// Oracle names columns rather than tables in FOR UPDATE OF, has no FOR SHARE
// and rejects row limiting combined with FOR UPDATE.
package oracle

import (
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Name is the dialect identifier.
const Name = "oracle"

// Renderer implements the Oracle dialect renderer.
type Renderer struct {
	caps render.Capabilities
}

// New creates an Oracle renderer.
func New() *Renderer {
	return NewForServer(render.ServerInfo{Dialect: Name, Version: render.Version{Major: 19}})
}

// NewForServer creates a renderer for the described server.
func NewForServer(info render.ServerInfo) *Renderer {
	return &Renderer{caps: Features(info)}
}

// NewWithCapabilities creates a renderer with explicit capabilities.
func NewWithCapabilities(caps render.Capabilities) *Renderer {
	return &Renderer{caps: caps}
}

// Features returns Oracle locking capabilities.
func Features(render.ServerInfo) render.Capabilities {
	return render.Capabilities{
		Transactions: true,
		Update:       render.LockSupport{Supported: true, Nowait: true, SkipLocked: true, Of: true},
		OfColumn:     true,
	}
}

// Render converts an AST to a QueryResult with Oracle SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// Name returns the dialect identifier.
func (*Renderer) Name() string { return Name }

// Capabilities returns the row-locking features of the target server.
func (r *Renderer) Capabilities() render.Capabilities {
	return r.caps
}

// QuoteIdentifier quotes an Oracle identifier.
func (*Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Pagination renders the OFFSET ... FETCH row limiting clause.
func (*Renderer) Pagination(ast *types.AST) (string, error) {
	var parts []string
	if ast.Offset != nil {
		parts = append(parts, "OFFSET "+strconv.Itoa(*ast.Offset)+" ROWS")
	}
	if ast.Limit != nil {
		parts = append(parts, "FETCH FIRST "+strconv.Itoa(*ast.Limit)+" ROWS ONLY")
	}
	return strings.Join(parts, " "), nil
}

// LockClause renders FOR UPDATE with column-level OF and wait policy.
func (r *Renderer) LockClause(lock *types.Lock) string {
	return render.TrailingLockClause(r, lock)
}
