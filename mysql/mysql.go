// Package mysql provides the MySQL and MariaDB dialect renderer for lockql.
package mysql

import (
	"strconv"
	"strings"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Name is the dialect identifier.
const Name = "mysql"

// VariantMariaDB marks a MariaDB server.
const VariantMariaDB = "mariadb"

// DefaultStorageEngine is assumed when the engine cannot be probed.
const DefaultStorageEngine = "InnoDB"

// maxRows is the documented way to express OFFSET without LIMIT.
const maxRows = "18446744073709551615"

// Latest is the server version assumed by New.
var Latest = render.Version{Major: 8, Minor: 4}

// Renderer implements the MySQL dialect renderer.
type Renderer struct {
	caps        render.Capabilities
	legacyShare bool // LOCK IN SHARE MODE instead of FOR SHARE
	dialect     string
}

// New creates a renderer for a current MySQL server using InnoDB.
func New() *Renderer {
	return NewForServer(render.ServerInfo{Dialect: Name, Version: Latest, StorageEngine: DefaultStorageEngine})
}

// NewMariaDB creates a renderer for a MariaDB server of the given version.
func NewMariaDB(major, minor, patch int) *Renderer {
	return NewForServer(render.ServerInfo{
		Dialect:       Name,
		Version:       render.Version{Major: major, Minor: minor, Patch: patch},
		Variant:       VariantMariaDB,
		StorageEngine: DefaultStorageEngine,
	})
}

// NewForServer creates a renderer for the described server.
func NewForServer(info render.ServerInfo) *Renderer {
	return &Renderer{
		caps:        Features(info),
		legacyShare: legacyShare(info),
		dialect:     dialectName(info),
	}
}

// NewWithCapabilities creates a renderer with explicit capabilities.
func NewWithCapabilities(caps render.Capabilities) *Renderer {
	return &Renderer{caps: caps, dialect: Name}
}

func dialectName(info render.ServerInfo) string {
	if info.Variant == VariantMariaDB {
		return VariantMariaDB
	}
	return Name
}

func legacyShare(info render.ServerInfo) bool {
	return info.Variant == VariantMariaDB || !info.Version.AtLeast(8, 0, 1)
}

// Transactional reports whether a storage engine supports transactions.
// An unknown (empty) engine is treated as the server default, InnoDB.
func Transactional(engine string) bool {
	switch strings.ToUpper(engine) {
	case "MYISAM", "MEMORY", "ARCHIVE", "CSV", "BLACKHOLE", "MERGE", "MRG_MYISAM", "ARIA":
		return false
	default:
		return true
	}
}

// Features computes MySQL/MariaDB locking capabilities. Version bounds are inclusive.
func Features(info render.ServerInfo) render.Capabilities {
	if !Transactional(info.StorageEngine) {
		return render.Capabilities{}
	}
	v := info.Version
	caps := render.Capabilities{
		Transactions:  true,
		LockWithLimit: true,
	}
	if info.Variant == VariantMariaDB {
		nowait := v.AtLeast(10, 3, 0)
		skipLocked := v.AtLeast(10, 6, 0)
		caps.Update = render.LockSupport{Supported: true, Nowait: nowait, SkipLocked: skipLocked}
		caps.Share = render.LockSupport{Supported: true, Nowait: nowait, SkipLocked: skipLocked}
		return caps
	}
	modern := v.AtLeast(8, 0, 1)
	caps.Update = render.LockSupport{Supported: true, Nowait: modern, SkipLocked: modern, Of: modern}
	caps.Share = render.LockSupport{Supported: true, Nowait: modern, SkipLocked: modern, Of: modern}
	return caps
}

// Render converts an AST to a QueryResult with MySQL SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// Name returns the dialect identifier ("mysql" or "mariadb").
func (r *Renderer) Name() string { return r.dialect }

// Capabilities returns the row-locking features of the target server.
func (r *Renderer) Capabilities() render.Capabilities {
	return r.caps
}

// QuoteIdentifier quotes a MySQL identifier with backticks.
func (*Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// Pagination renders LIMIT and OFFSET; MySQL requires LIMIT whenever OFFSET is present.
func (*Renderer) Pagination(ast *types.AST) (string, error) {
	switch {
	case ast.Limit != nil && ast.Offset != nil:
		return "LIMIT " + strconv.Itoa(*ast.Limit) + " OFFSET " + strconv.Itoa(*ast.Offset), nil
	case ast.Limit != nil:
		return "LIMIT " + strconv.Itoa(*ast.Limit), nil
	case ast.Offset != nil:
		return "LIMIT " + maxRows + " OFFSET " + strconv.Itoa(*ast.Offset), nil
	}
	return "", nil
}

// LockClause renders FOR UPDATE / FOR SHARE, or LOCK IN SHARE MODE on servers
// that predate FOR SHARE.
func (r *Renderer) LockClause(lock *types.Lock) string {
	if lock.Strength.IsShare() && r.legacyShare {
		clause := "LOCK IN SHARE MODE"
		if w := lock.Wait.String(); w != "" {
			clause += " " + w
		}
		return clause
	}
	return render.TrailingLockClause(r, lock)
}
