// Package postgres provides the PostgreSQL dialect renderer for lockql.
package postgres

import (
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Name is the dialect identifier.
const Name = "postgres"

// Latest is the server version assumed by New.
var Latest = render.Version{Major: 16}

// Renderer implements the PostgreSQL dialect renderer.
type Renderer struct {
	caps render.Capabilities
}

// New creates a renderer for a current PostgreSQL server.
func New() *Renderer {
	return NewForServer(render.ServerInfo{Dialect: Name, Version: Latest})
}

// NewForServer creates a renderer for the described server.
func NewForServer(info render.ServerInfo) *Renderer {
	return &Renderer{caps: Features(info)}
}

// NewWithCapabilities creates a renderer with explicit capabilities.
func NewWithCapabilities(caps render.Capabilities) *Renderer {
	return &Renderer{caps: caps}
}

// Features computes PostgreSQL locking capabilities for a server version.
// Version bounds are inclusive.
func Features(info render.ServerInfo) render.Capabilities {
	v := info.Version
	skipLocked := v.AtLeast(9, 5, 0)
	keyModes := v.AtLeast(9, 3, 0)
	return render.Capabilities{
		Transactions:  true,
		Update:        render.LockSupport{Supported: true, Nowait: true, SkipLocked: skipLocked, Of: true},
		Share:         render.LockSupport{Supported: true, Nowait: true, SkipLocked: skipLocked, Of: true},
		KeyShare:      keyModes,
		NoKeyUpdate:   keyModes,
		LockWithLimit: true,
	}
}

// Render converts an AST to a QueryResult with PostgreSQL SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// Name returns the dialect identifier.
func (*Renderer) Name() string { return Name }

// Capabilities returns the row-locking features of the target server.
func (r *Renderer) Capabilities() render.Capabilities {
	return r.caps
}

// QuoteIdentifier quotes a PostgreSQL identifier to handle reserved words and special characters.
func (*Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Pagination renders LIMIT and OFFSET.
func (*Renderer) Pagination(ast *types.AST) (string, error) {
	var parts []string
	if ast.Limit != nil {
		parts = append(parts, "LIMIT "+strconv.Itoa(*ast.Limit))
	}
	if ast.Offset != nil {
		parts = append(parts, "OFFSET "+strconv.Itoa(*ast.Offset))
	}
	return strings.Join(parts, " "), nil
}

// LockClause renders FOR [NO KEY] UPDATE / FOR [KEY] SHARE with OF and wait policy.
func (r *Renderer) LockClause(lock *types.Lock) string {
	return render.TrailingLockClause(r, lock)
}
