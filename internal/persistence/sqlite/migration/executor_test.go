package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every pooled connection would otherwise see its own empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestExecutor_InitializeVersionTable(t *testing.T) {
	db := setupTestDB(t)
	executor := NewExecutor(db)
	ctx := context.Background()

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}
	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Errorf("InitializeVersionTable should be idempotent: %v", err)
	}
}

func TestExecutor_Execute(t *testing.T) {
	db := setupTestDB(t)
	executor := NewExecutor(db)
	ctx := context.Background()

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	migration := Migration{
		Version:  "001",
		FilePath: "001_create_test_table.sql",
		Checksum: "abc",
		SQL: `
			-- test table
			CREATE TABLE test_users (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL
			);
			INSERT INTO test_users (name) VALUES ('Test User');
		`,
	}

	if err := executor.Execute(ctx, migration); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_users").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	applied, err := executor.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "001" || applied[0].Checksum != "abc" {
		t.Fatalf("unexpected applied migrations: %+v", applied)
	}
}

func TestExecutor_Execute_RollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	executor := NewExecutor(db)
	ctx := context.Background()

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	migration := Migration{
		Version: "001",
		SQL: `
			CREATE TABLE partial (id INTEGER PRIMARY KEY);
			INSERT INTO missing_table (id) VALUES (1);
		`,
	}

	err := executor.Execute(ctx, migration)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='partial'").Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected partial table to be rolled back, got %v", err)
	}

	applied, err := executor.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no applied migrations, got %+v", applied)
	}
}

func TestSplitStatements(t *testing.T) {
	statements := splitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\n;INSERT INTO a VALUES (1);\n-- trailing")
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "INSERT INTO a VALUES (1)" {
		t.Errorf("unexpected statement %q", statements[1])
	}
}

func TestManager_Run(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"schema/001_initial.sql": {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY);")},
		"schema/002_clients.sql": {Data: []byte("CREATE TABLE clients (id INTEGER PRIMARY KEY);")},
	}

	manager := NewManager(db, fsys, "schema", nil)

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}

	applied, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected second run to be a no-op, got %d", applied)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}

	t.Run("detects edited migrations", func(t *testing.T) {
		fsys["schema/001_initial.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);")}
		if _, err := manager.Run(ctx); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}
