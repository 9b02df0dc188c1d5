package types

import "fmt"

// LockStrength is the row-level locking strength of a SELECT.
type LockStrength string

const (
	LockForUpdate      LockStrength = "FOR UPDATE"
	LockForNoKeyUpdate LockStrength = "FOR NO KEY UPDATE"
	LockForShare       LockStrength = "FOR SHARE"
	LockForKeyShare    LockStrength = "FOR KEY SHARE"
)

// IsShare reports whether the strength belongs to the share family.
func (s LockStrength) IsShare() bool {
	return s == LockForShare || s == LockForKeyShare
}

// Base returns FOR SHARE or FOR UPDATE, dropping any KEY / NO KEY qualifier.
func (s LockStrength) Base() LockStrength {
	if s.IsShare() {
		return LockForShare
	}
	return LockForUpdate
}

// Operation names the builder method that produces this strength.
func (s LockStrength) Operation() string {
	if s.IsShare() {
		return "select_for_share"
	}
	return "select_for_update"
}

// WaitPolicy controls what happens when a requested row is already locked.
type WaitPolicy int

const (
	LockWait       WaitPolicy = iota // block until the row is released
	LockNoWait                       // fail immediately
	LockSkipLocked                   // leave the row out of the result
)

func (w WaitPolicy) String() string {
	switch w {
	case LockNoWait:
		return "NOWAIT"
	case LockSkipLocked:
		return "SKIP LOCKED"
	default:
		return ""
	}
}

// LockTarget is a physical table reference named in an OF clause.
type LockTarget struct {
	Path   string // relation path the target was resolved from
	Table  string
	Alias  string // empty when the table is referenced by name
	Column string // key column, used when the dialect locks by column
}

// Ref returns the name the table goes by in the query.
func (t LockTarget) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Table
}

// Lock is the row-locking clause attached to a SELECT.
type Lock struct {
	Strength LockStrength
	Wait     WaitPolicy
	Of       []LockTarget
}

// Operation names the builder method that produced the lock.
func (l *Lock) Operation() string {
	return l.Strength.Operation()
}

// Validate checks the lock is well formed.
func (l *Lock) Validate() error {
	switch l.Strength {
	case LockForUpdate, LockForNoKeyUpdate, LockForShare, LockForKeyShare:
	default:
		return fmt.Errorf("unknown lock strength: %q", l.Strength)
	}
	switch l.Wait {
	case LockWait, LockNoWait, LockSkipLocked:
	default:
		return fmt.Errorf("unknown lock wait policy: %d", l.Wait)
	}
	for _, t := range l.Of {
		if t.Table == "" {
			return fmt.Errorf("lock target %q has no table", t.Path)
		}
	}
	return nil
}
