package lockql

import (
	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Renderer defines the interface for SQL dialect-specific rendering.
// Implementations convert an AST to dialect-specific SQL with named parameters
// and report the row-locking capabilities they were configured with.
type Renderer interface {
	// Render converts an AST to a QueryResult with dialect-specific SQL.
	Render(ast *types.AST) (*types.QueryResult, error)

	// Capabilities returns the feature set the renderer checks locks against.
	Capabilities() render.Capabilities

	// Name returns the dialect name used in error messages.
	Name() string
}
