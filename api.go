// Package lockql builds row-locking SELECT queries over a relational model
// and renders them for several SQL dialects.
//
// Models are registered against a DBML schema. A query selects a model,
// follows relations with SelectRelated and requests row locks with ForShare
// or ForUpdate:
//
//	schema, err := lockql.NewFromDBML(project)
//	if err != nil {
//		return err
//	}
//	err = schema.Register(
//		lockql.ModelDef{Name: "City", Fields: []lockql.FieldDef{
//			{Name: "country", Kind: lockql.ForeignKey, Target: "Country"},
//		}},
//	)
//
//	result, err := schema.Select("Person").
//		SelectRelated("born__country").
//		ForUpdate(lockql.Nowait(), lockql.Of("self", "born__country")).
//		Render(postgres.New())
//	// SELECT ... FOR UPDATE OF "person", "country" NOWAIT
//
// # Dialects
//
// Each dialect package (postgres, mysql, sqlite, mssql, oracle) exposes a
// Features function computing Capabilities from a ServerInfo. Rendering
// checks the lock against those capabilities before writing any SQL and
// returns a NotSupportedError naming the missing feature.
//
// # Transactions
//
// Locks are only meaningful inside a transaction. CheckTransaction rejects a
// locking query that is about to run in autocommit mode; the conn package
// applies it on every execution.
package lockql

import (
	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

// Re-exported AST types.
type (
	AST         = types.AST
	QueryResult = types.QueryResult
	Operator    = types.Operator
	Direction   = types.Direction
	Lock        = types.Lock
	LockTarget  = types.LockTarget
)

// Re-exported capability types.
type (
	Capabilities = render.Capabilities
	LockSupport  = render.LockSupport
	ServerInfo   = render.ServerInfo
	Version      = render.Version
)

// LockStrength is the strength of a row lock.
type LockStrength = types.LockStrength

// WaitPolicy controls behavior on an already locked row.
type WaitPolicy = types.WaitPolicy

const (
	ASC  = types.ASC
	DESC = types.DESC
)

const (
	EQ        = types.EQ
	NE        = types.NE
	GT        = types.GT
	GE        = types.GE
	LT        = types.LT
	LE        = types.LE
	IN        = types.IN
	NotIn     = types.NotIn
	LIKE      = types.LIKE
	IsNull    = types.IsNull
	IsNotNull = types.IsNotNull
)

const (
	ForUpdateStrength      = types.LockForUpdate
	ForNoKeyUpdateStrength = types.LockForNoKeyUpdate
	ForShareStrength       = types.LockForShare
	ForKeyShareStrength    = types.LockForKeyShare
)

const (
	Wait           = types.LockWait
	NoWait         = types.LockNoWait
	SkipLockedRows = types.LockSkipLocked
)

// ParseVersion parses a server version string such as "8.0.36-log".
func ParseVersion(s string) (Version, error) {
	return render.ParseVersion(s)
}
