package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Executor applies migrations and tracks them in schema_migrations.
type Executor struct {
	db  *sql.DB
	now func() time.Time
}

// NewExecutor creates an Executor for db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db, now: time.Now}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewMigrationError("", "schema_migrations", "create version table", err)
	}
	return nil
}

// Execute runs every statement of migration and records it, all in one transaction.
func (e *Executor) Execute(ctx context.Context, migration Migration) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewMigrationError(migration.Version, migration.FilePath, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = NewMigrationError(migration.Version, migration.FilePath,
				fmt.Sprintf("execute statement %d", i+1), fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
			return err
		}
	}

	elapsed := e.now().Sub(started)
	if _, execErr := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version,
		e.now().UTC().Format(time.RFC3339),
		migration.Checksum,
		elapsed.Milliseconds(),
	); execErr != nil {
		err = NewMigrationError(migration.Version, migration.FilePath, "record migration", execErr)
		return err
	}

	if err = tx.Commit(); err != nil {
		return NewMigrationError(migration.Version, migration.FilePath, "commit transaction", err)
	}
	return nil
}

// Applied returns all applied migrations ordered by version.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT version, applied_at, checksum, execution_time_ms
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC
	`)
	if err != nil {
		return nil, NewMigrationError("", "schema_migrations", "query applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record      AppliedMigration
			appliedAt   string
			executionMs int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &record.Checksum, &executionMs); err != nil {
			return nil, NewMigrationError("", "schema_migrations", "scan applied migration", err)
		}
		if record.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, NewMigrationError(record.Version, "schema_migrations", "parse applied_at", err)
		}
		record.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewMigrationError("", "schema_migrations", "iterate applied migrations", err)
	}
	return applied, nil
}

// splitStatements splits SQL on semicolons and drops comment-only lines.
// Statements must not contain semicolons inside literals or trigger bodies.
func splitStatements(sqlText string) []string {
	var statements []string
	for _, chunk := range strings.Split(sqlText, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
