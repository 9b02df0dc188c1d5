package lockql

import (
	"github.com/zoobzio/lockql/internal/types"
)

const (
	opForShare  = "select_for_share"
	opForUpdate = "select_for_update"
)

// LockOption configures ForShare and ForUpdate.
type LockOption func(*lockRequest)

// Nowait fails immediately instead of waiting for a locked row.
func Nowait() LockOption {
	return func(r *lockRequest) { r.nowait = true }
}

// SkipLocked leaves locked rows out of the result.
func SkipLocked() LockOption {
	return func(r *lockRequest) { r.skipLocked = true }
}

// Of restricts locking to the named relations. "self" names the queried model.
func Of(paths ...string) LockOption {
	return func(r *lockRequest) { r.of = append(r.of, paths...) }
}

// Key requests FOR KEY SHARE. Only valid with ForShare.
func Key() LockOption {
	return func(r *lockRequest) { r.key = true }
}

// NoKey requests FOR NO KEY UPDATE. Only valid with ForUpdate.
func NoKey() LockOption {
	return func(r *lockRequest) { r.noKey = true }
}

// lockRequest is the unresolved lock intent recorded on a builder.
type lockRequest struct {
	share      bool
	nowait     bool
	skipLocked bool
	key        bool
	noKey      bool
	of         []string
}

func (r *lockRequest) operation() string {
	if r.share {
		return opForShare
	}
	return opForUpdate
}

func newLockRequest(share bool, opts []LockOption) (*lockRequest, error) {
	r := &lockRequest{share: share}
	for _, opt := range opts {
		opt(r)
	}
	op := r.operation()
	if r.nowait && r.skipLocked {
		return nil, &ConfigurationError{Operation: op, Message: "The nowait option cannot be used with skip_locked."}
	}
	if r.key && !share {
		return nil, &ConfigurationError{Operation: op, Message: "The key option can only be used with select_for_share()."}
	}
	if r.noKey && share {
		return nil, &ConfigurationError{Operation: op, Message: "The no_key option can only be used with select_for_update()."}
	}
	return r, nil
}

func (r *lockRequest) strength() types.LockStrength {
	switch {
	case r.share && r.key:
		return types.LockForKeyShare
	case r.share:
		return types.LockForShare
	case r.noKey:
		return types.LockForNoKeyUpdate
	default:
		return types.LockForUpdate
	}
}

func (r *lockRequest) wait() types.WaitPolicy {
	switch {
	case r.nowait:
		return types.LockNoWait
	case r.skipLocked:
		return types.LockSkipLocked
	default:
		return types.LockWait
	}
}

func (r *lockRequest) clone() *lockRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.of = append([]string(nil), r.of...)
	return &c
}

// resolve turns the request into an AST lock against a join graph.
func (r *lockRequest) resolve(g *joinGraph) (*types.Lock, error) {
	lock := &types.Lock{Strength: r.strength(), Wait: r.wait()}
	if len(r.of) == 0 {
		return lock, nil
	}
	targets, err := g.resolveLockTargets(r.operation(), r.of)
	if err != nil {
		return nil, err
	}
	lock.Of = targets
	return lock, nil
}
