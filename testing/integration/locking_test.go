package integration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/lockql"
	"github.com/zoobzio/lockql/conn"
	lqtest "github.com/zoobzio/lockql/testing"
)

// blockWindow is how long a waiting locker must stay blocked before the
// holder releases its lock.
const blockWindow = 500 * time.Millisecond

type person struct {
	ID     int64         `db:"id"`
	Name   string        `db:"name"`
	BornID int64         `db:"born_id"`
	DiedID sql.NullInt64 `db:"died_id"`
}

type named struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type lockResult struct {
	p   person
	err error
}

func personByID(schema *lockql.Schema) *lockql.Builder {
	return schema.Select("Person").Filter("id", lockql.EQ, "id")
}

// holdLock opens a transaction that locks person 1 for update.
func holdLock(ctx context.Context, t *testing.T, db *conn.DB, schema *lockql.Schema) *conn.Tx {
	t.Helper()
	holder, err := db.Begin(ctx, nil)
	lqtest.AssertNoError(t, err)

	var p person
	if err := holder.Get(ctx, &p, personByID(schema).ForUpdate(), map[string]any{"id": 1}); err != nil {
		_ = holder.Rollback()
		t.Fatalf("holder failed to lock person 1: %v", err)
	}
	return holder
}

// testBlockingUpdate checks that a second FOR UPDATE on a locked row waits
// for the holder and then sees the committed change.
func testBlockingUpdate(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	holder := holdLock(ctx, t, b.db, schema)

	done := make(chan lockResult, 1)
	go func() {
		var r lockResult
		r.err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
			return tx.Get(ctx, &r.p, personByID(schema).ForUpdate(), map[string]any{"id": 1})
		})
		done <- r
	}()

	select {
	case r := <-done:
		_ = holder.Rollback()
		t.Fatalf("second locker did not block: %+v", r)
	case <-time.After(blockWindow):
	}

	_, err := holder.Exec(ctx, `UPDATE person SET name = :name WHERE id = :id`,
		map[string]any{"name": "Ada Lovelace", "id": 1})
	lqtest.AssertNoError(t, err)
	lqtest.AssertNoError(t, holder.Commit())

	select {
	case r := <-done:
		lqtest.AssertNoError(t, r.err)
		if r.p.Name != "Ada Lovelace" {
			t.Errorf("expected committed name 'Ada Lovelace', got %q", r.p.Name)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("second locker never acquired the lock")
	}
}

// testNowait checks that NOWAIT fails fast on a locked row with an engine
// error rather than a lockql error.
func testNowait(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	holder := holdLock(ctx, t, b.db, schema)
	defer func() { _ = holder.Rollback() }()

	start := time.Now()
	err := b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var p person
		return tx.Get(ctx, &p, personByID(schema).ForUpdate(lockql.Nowait()), map[string]any{"id": 1})
	})
	lqtest.AssertError(t, err)

	var stateErr *lockql.TransactionStateError
	if errors.As(err, &stateErr) {
		t.Fatalf("expected an engine lock error, got %v", err)
	}
	var unsupported lockql.NotSupportedError
	if errors.As(err, &unsupported) {
		t.Fatalf("expected an engine lock error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("NOWAIT waited %v", elapsed)
	}

	// Unlocked rows are still available without waiting.
	err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var p person
		return tx.Get(ctx, &p, personByID(schema).ForUpdate(lockql.Nowait()), map[string]any{"id": 2})
	})
	lqtest.AssertNoError(t, err)
}

// testSkipLocked checks that SKIP LOCKED leaves locked rows out of the result.
func testSkipLocked(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	holder := holdLock(ctx, t, b.db, schema)
	defer func() { _ = holder.Rollback() }()

	err := b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var p person
		err := tx.Get(ctx, &p, personByID(schema).ForUpdate(lockql.SkipLocked()), map[string]any{"id": 1})
		if !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("expected sql.ErrNoRows for the locked row, got %v", err)
		}

		var people []person
		q := schema.Select("Person").OrderBy("id", lockql.ASC).ForUpdate(lockql.SkipLocked())
		if err := tx.Select(ctx, &people, q, nil); err != nil {
			return err
		}
		if len(people) != 2 || people[0].ID != 2 || people[1].ID != 3 {
			t.Errorf("expected people 2 and 3, got %+v", people)
		}
		return nil
	})
	lqtest.AssertNoError(t, err)
}

// testSharedLocks checks that share locks coexist and exclude an update lock.
func testSharedLocks(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)
	params := map[string]any{"id": 1}

	first, err := b.db.Begin(ctx, nil)
	lqtest.AssertNoError(t, err)
	defer func() { _ = first.Rollback() }()
	var p person
	lqtest.AssertNoError(t, first.Get(ctx, &p, personByID(schema).ForShare(), params))

	second, err := b.db.Begin(ctx, nil)
	lqtest.AssertNoError(t, err)
	defer func() { _ = second.Rollback() }()
	lqtest.AssertNoError(t, second.Get(ctx, &p, personByID(schema).ForShare(lockql.Nowait()), params))

	err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
		return tx.Get(ctx, &p, personByID(schema).ForUpdate(lockql.Nowait()), params)
	})
	lqtest.AssertError(t, err)
}

// testLockOf checks that OF restricts the lock to the named relations of a
// joined query.
func testLockOf(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	holder, err := b.db.Begin(ctx, nil)
	lqtest.AssertNoError(t, err)
	defer func() { _ = holder.Rollback() }()

	var p named
	q := schema.Select("Person").
		SelectRelated("born__country").
		Fields("id", "name").
		Filter("id", lockql.EQ, "id").
		ForUpdate(lockql.Of("self"))
	lqtest.AssertNoError(t, holder.Get(ctx, &p, q, map[string]any{"id": 1}))

	err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var city named
		cityQ := schema.Select("City").Fields("id", "name").
			Filter("id", lockql.EQ, "id").
			ForUpdate(lockql.Nowait())
		return tx.Get(ctx, &city, cityQ, map[string]any{"id": 1})
	})
	lqtest.AssertNoError(t, err)

	err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var other person
		return tx.Get(ctx, &other, personByID(schema).ForUpdate(lockql.Nowait()), map[string]any{"id": 1})
	})
	lqtest.AssertError(t, err)
}

// testLockParentOf checks that naming a parent model locks the parent table.
func testLockParentOf(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	holder, err := b.db.Begin(ctx, nil)
	lqtest.AssertNoError(t, err)
	defer func() { _ = holder.Rollback() }()

	var name string
	q := schema.Select("Country").Fields("name").
		Filter("pk", lockql.EQ, "id").
		ForUpdate(lockql.Of("entity_ptr"))
	lqtest.AssertNoError(t, holder.Get(ctx, &name, q, map[string]any{"id": 1}))
	if name != "Iceland" {
		t.Errorf("expected Iceland, got %q", name)
	}

	err = b.db.Atomic(ctx, func(tx *conn.Tx) error {
		var id int64
		entityQ := schema.Select("Entity").Fields("id").
			Filter("id", lockql.EQ, "id").
			ForUpdate(lockql.Nowait())
		return tx.Get(ctx, &id, entityQ, map[string]any{"id": 1})
	})
	lqtest.AssertError(t, err)
}

// testGuard checks that locking outside a transaction never reaches the server.
func testGuard(t *testing.T, b *backend) {
	ctx := context.Background()
	b.resetFixtures(ctx, t)
	schema := lqtest.TestSchema(t)

	var people []person
	err := b.db.Select(ctx, &people, schema.Select("Person").ForUpdate(), nil)
	lqtest.AssertErrorAs[*lockql.TransactionStateError](t, err)

	lqtest.AssertNoError(t, b.db.Select(ctx, &people, schema.Select("Person"), nil))
	if len(people) != 3 {
		t.Errorf("expected 3 people, got %d", len(people))
	}
}

// testCapabilities checks the probed capabilities against what the server
// version is known to support.
func testCapabilities(t *testing.T, b *backend, want lockql.Capabilities) {
	b.db.ResetCapabilities()
	caps, err := b.db.Capabilities(context.Background())
	lqtest.AssertNoError(t, err)
	if caps != want {
		t.Errorf("capability mismatch:\nExpected: %+v\nActual:   %+v", want, caps)
	}
}
