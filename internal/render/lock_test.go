package render

import (
	"errors"
	"testing"

	"github.com/zoobzio/lockql/internal/types"
)

func TestCheckLock_Order(t *testing.T) {
	limit := 1
	of := []types.LockTarget{{Path: "self", Table: "t", Column: "id"}}

	tests := []struct {
		name    string
		caps    Capabilities
		lock    *types.Lock
		limit   *int
		feature string
	}{
		{"no locking", Capabilities{Transactions: true}, &types.Lock{Strength: types.LockForUpdate}, nil, "FOR UPDATE"},
		{"no share", Capabilities{Transactions: true, Update: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForKeyShare}, nil, "FOR SHARE"},
		{"key share", Capabilities{Transactions: true, Share: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForKeyShare}, nil, "FOR KEY SHARE"},
		{"no key update", Capabilities{Transactions: true, Update: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForNoKeyUpdate, Wait: types.LockNoWait}, nil, "FOR NO KEY UPDATE"},
		{"nowait before of", Capabilities{Transactions: true, Update: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForUpdate, Wait: types.LockNoWait, Of: of}, nil, "NOWAIT"},
		{"skip locked", Capabilities{Transactions: true, Update: LockSupport{Supported: true, Of: true}}, &types.Lock{Strength: types.LockForUpdate, Wait: types.LockSkipLocked, Of: of}, nil, "SKIP LOCKED"},
		{"of", Capabilities{Transactions: true, Share: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForShare, Of: of}, &limit, "FOR SHARE OF"},
		{"limit", Capabilities{Transactions: true, Share: LockSupport{Supported: true}}, &types.Lock{Strength: types.LockForShare}, &limit, "LIMIT/OFFSET with select_for_share"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast := &types.AST{Operation: types.OpSelect, Target: types.Table{Name: "t"}, Limit: tt.limit, Lock: tt.lock}
			err := CheckLock("test", tt.caps, ast)
			var unsupported UnsupportedFeatureError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedFeatureError, got %v", err)
			}
			if unsupported.Feature != tt.feature {
				t.Errorf("Feature = %q, want %q", unsupported.Feature, tt.feature)
			}
			if unsupported.Dialect != "test" {
				t.Errorf("Dialect = %q, want test", unsupported.Dialect)
			}
		})
	}
}

func TestCheckLock_Supported(t *testing.T) {
	ast := &types.AST{
		Operation: types.OpSelect,
		Target:    types.Table{Name: "t"},
		Lock: &types.Lock{
			Strength: types.LockForKeyShare,
			Wait:     types.LockSkipLocked,
			Of:       []types.LockTarget{{Path: "self", Table: "t", Column: "id"}},
		},
	}
	if err := CheckLock("test", fullSupport, ast); err != nil {
		t.Errorf("CheckLock() = %v", err)
	}
	if err := CheckLock("test", Capabilities{}, &types.AST{Target: types.Table{Name: "t"}}); err != nil {
		t.Errorf("CheckLock() without lock = %v", err)
	}
}

func TestLockTargetRefs(t *testing.T) {
	lock := &types.Lock{
		Strength: types.LockForUpdate,
		Of: []types.LockTarget{
			{Path: "self", Table: "person", Column: "id"},
			{Path: "born", Table: "city", Alias: "T2", Column: "id"},
		},
	}

	tableRefs := LockTargetRefs(testDialect{caps: fullSupport}, lock)
	if tableRefs[0] != `"person"` || tableRefs[1] != `"T2"` {
		t.Errorf("table refs = %v", tableRefs)
	}

	caps := fullSupport
	caps.OfColumn = true
	columnRefs := LockTargetRefs(testDialect{caps: caps}, lock)
	if columnRefs[0] != `"person"."id"` || columnRefs[1] != `"T2"."id"` {
		t.Errorf("column refs = %v", columnRefs)
	}
}
