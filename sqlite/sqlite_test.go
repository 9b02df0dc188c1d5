package sqlite

import (
	"errors"
	"testing"

	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/internal/types"
)

func TestRender_NoRowLocking(t *testing.T) {
	for _, strength := range []types.LockStrength{types.LockForUpdate, types.LockForShare} {
		t.Run(string(strength), func(t *testing.T) {
			_, err := New().Render(&types.AST{
				Operation: types.OpSelect,
				Target:    types.Table{Name: "users"},
				Lock:      &types.Lock{Strength: strength},
			})
			var unsupported render.UnsupportedFeatureError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedFeatureError, got %v", err)
			}
			want := "sqlite: " + string(strength) + " is not supported"
			if err.Error() != want {
				t.Errorf("error = %q, want %q", err, want)
			}
		})
	}
}

func TestRender_Pagination(t *testing.T) {
	offset := 3
	result, err := New().Render(&types.AST{
		Operation: types.OpSelect,
		Target:    types.Table{Name: "users"},
		Offset:    &offset,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `SELECT * FROM "users" LIMIT -1 OFFSET 3`
	if result.SQL != want {
		t.Errorf("SQL = %q, want %q", result.SQL, want)
	}
}

func TestFeatures(t *testing.T) {
	caps := Features(render.ServerInfo{Dialect: Name, Version: render.Version{Major: 3, Minor: 45, Patch: 1}})
	if !caps.Transactions || caps.RowLocking() {
		t.Errorf("unexpected capabilities %+v", caps)
	}
	if err := caps.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
