// Package mssql provides the SQL Server dialect renderer for lockql.
//
// SQL Server has no FOR UPDATE clause. Row locks are requested with table
// hints placed after every table reference, the FROM table and each joined
// table alike: UPDLOCK for update locks, HOLDLOCK for shared locks held to
// the end of the transaction, NOWAIT to fail instead of blocking and
// READPAST to skip locked rows. OF is not available, so a locking query
// always locks every table it reads.
package mssql

import (
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Name is the dialect identifier.
const Name = "mssql"

// Renderer implements the SQL Server dialect renderer.
type Renderer struct {
	caps render.Capabilities
}

// New creates a SQL Server renderer.
func New() *Renderer {
	return NewForServer(render.ServerInfo{Dialect: Name, Version: render.Version{Major: 16}})
}

// NewForServer creates a renderer for the described server.
func NewForServer(info render.ServerInfo) *Renderer {
	return &Renderer{caps: Features(info)}
}

// NewWithCapabilities creates a renderer with explicit capabilities.
func NewWithCapabilities(caps render.Capabilities) *Renderer {
	return &Renderer{caps: caps}
}

// Features returns SQL Server locking capabilities.
func Features(render.ServerInfo) render.Capabilities {
	return render.Capabilities{
		Transactions:  true,
		Update:        render.LockSupport{Supported: true, Nowait: true, SkipLocked: true},
		Share:         render.LockSupport{Supported: true, Nowait: true, SkipLocked: true},
		LockWithLimit: true,
		LockAfterFrom: true,
	}
}

// Render converts an AST to a QueryResult with T-SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// Name returns the dialect identifier.
func (*Renderer) Name() string { return Name }

// Capabilities returns the row-locking features of the target server.
func (r *Renderer) Capabilities() render.Capabilities {
	return r.caps
}

// QuoteIdentifier quotes a SQL Server identifier with brackets.
func (*Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "]", "]]")
	return "[" + escaped + "]"
}

// Pagination renders OFFSET ... FETCH, which SQL Server only accepts after ORDER BY.
func (*Renderer) Pagination(ast *types.AST) (string, error) {
	if ast.Limit == nil && ast.Offset == nil {
		return "", nil
	}
	if len(ast.Ordering) == 0 {
		return "", render.NewUnsupportedFeatureError(Name, "LIMIT/OFFSET without ORDER BY",
			"add ORDER BY clause when using LIMIT or OFFSET")
	}
	offset := 0
	if ast.Offset != nil {
		offset = *ast.Offset
	}
	clause := "OFFSET " + strconv.Itoa(offset) + " ROWS"
	if ast.Limit != nil {
		clause += " FETCH NEXT " + strconv.Itoa(*ast.Limit) + " ROWS ONLY"
	}
	return clause, nil
}

// LockClause renders the WITH (...) table hint.
func (*Renderer) LockClause(lock *types.Lock) string {
	hints := []string{"UPDLOCK", "ROWLOCK"}
	if lock.Strength.IsShare() {
		hints = []string{"HOLDLOCK", "ROWLOCK"}
	}
	switch lock.Wait {
	case types.LockNoWait:
		hints = append(hints, "NOWAIT")
	case types.LockSkipLocked:
		hints = append(hints, "READPAST")
	}
	return "WITH (" + strings.Join(hints, ", ") + ")"
}
