package render

import (
	"strings"

	"github.com/zoobzio/lockql/internal/types"
)

// CheckLock verifies that every part of the AST's lock is supported by caps.
// It runs before any SQL is written so nothing unsupported is ever emitted.
// The checks run from coarse to fine; the first failure names the feature.
func CheckLock(dialect string, caps Capabilities, ast *types.AST) error {
	lock := ast.Lock
	if lock == nil {
		return nil
	}
	base := lock.Strength.Base()
	support := caps.Support(lock.Strength.IsShare())

	if !support.Supported {
		return NewUnsupportedFeatureError(dialect, string(base))
	}
	switch lock.Strength {
	case types.LockForKeyShare:
		if !caps.KeyShare {
			return NewUnsupportedFeatureError(dialect, string(types.LockForKeyShare))
		}
	case types.LockForNoKeyUpdate:
		if !caps.NoKeyUpdate {
			return NewUnsupportedFeatureError(dialect, string(types.LockForNoKeyUpdate))
		}
	}
	switch lock.Wait {
	case types.LockNoWait:
		if !support.Nowait {
			return NewUnsupportedFeatureError(dialect, "NOWAIT")
		}
	case types.LockSkipLocked:
		if !support.SkipLocked {
			return NewUnsupportedFeatureError(dialect, "SKIP LOCKED")
		}
	}
	if len(lock.Of) > 0 && !support.Of {
		return NewUnsupportedFeatureError(dialect, string(base)+" OF")
	}
	if (ast.Limit != nil || ast.Offset != nil) && !caps.LockWithLimit {
		return NewUnsupportedFeatureError(dialect, "LIMIT/OFFSET with "+lock.Operation())
	}
	return nil
}

// LockTargetRefs renders the OF targets as quoted identifiers, either the
// table reference alone or table and key column when the dialect locks by column.
func LockTargetRefs(d Dialect, lock *types.Lock) []string {
	refs := make([]string, 0, len(lock.Of))
	ofColumn := d.Capabilities().OfColumn
	for _, t := range lock.Of {
		ref := d.QuoteIdentifier(t.Ref())
		if ofColumn {
			ref += "." + d.QuoteIdentifier(t.Column)
		}
		refs = append(refs, ref)
	}
	return refs
}

// TrailingLockClause renders the standard "FOR <strength> [OF ...] [NOWAIT|SKIP LOCKED]" clause.
func TrailingLockClause(d Dialect, lock *types.Lock) string {
	var sb strings.Builder
	sb.WriteString(string(lock.Strength))
	if len(lock.Of) > 0 {
		sb.WriteString(" OF ")
		sb.WriteString(strings.Join(LockTargetRefs(d, lock), ", "))
	}
	if w := lock.Wait.String(); w != "" {
		sb.WriteString(" ")
		sb.WriteString(w)
	}
	return sb.String()
}
