package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"idcard/internal/infra/persistence/storetest"
	"idcard/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.MemberStore {
		return openTestStore(t, filepath.Join(t.TempDir(), "members.db"))
	})
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	want := storetest.Fixture("482913")
	if err := store.Create(ctx, want); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openTestStore(t, path)
	got, ok, err := reloaded.Get(ctx, want.ID)
	if err != nil || !ok {
		t.Fatalf("get after reload: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("reloaded record mismatch: %+v", got)
	}
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
}

func TestSQLiteStoreAppliesSchema(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	var tableName string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "members").Scan(&tableName); err != nil {
		t.Fatalf("lookup members table: %v", err)
	}
	if tableName != "members" {
		t.Fatalf("expected members table, got %s", tableName)
	}
}

func TestSQLiteReadsDoNotWaitForWriter(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	committed := storetest.Fixture("482913")
	if err := store.Create(ctx, committed); err != nil {
		t.Fatalf("create: %v", err)
	}

	// hold the only writer connection inside an open transaction
	tx, err := store.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE members SET role = ? WHERE id = ?`, "Lead", committed.ID); err != nil {
		t.Fatalf("update in tx: %v", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, ok, err := store.Get(readCtx, committed.ID)
	if err != nil || !ok {
		t.Fatalf("get while writer busy: ok=%v err=%v", ok, err)
	}
	if got.Role != committed.Role {
		t.Fatalf("read saw uncommitted role %q", got.Role)
	}
	all, err := store.List(readCtx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list while writer busy: %d members, err=%v", len(all), err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := dsn("x.db", true); got != "file:x.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=query_only(1)" {
		t.Fatalf("reader dsn %s", got)
	}
	if got := dsn("x.db", false); got != "file:x.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("writer dsn %s", got)
	}
}
