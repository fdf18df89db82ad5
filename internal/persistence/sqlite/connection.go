package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
	_ "modernc.org/sqlite"
)

// Config describes how to open the SQLite database file.
type Config struct {
	Path            string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns connection settings for the database at path.
// In-memory databases are limited to a single connection so that every
// query sees the same database.
func DefaultConfig(path string) Config {
	cfg := Config{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
	if isMemoryPath(path) {
		cfg.MaxOpenConns = 1
	}
	return cfg
}

// DSN renders the modernc.org/sqlite data source name. Pragmas are part of
// the DSN so that every pooled connection gets them, not just the first.
func (c Config) DSN() string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if !isMemoryPath(c.Path) {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	return c.Path + "?" + params.Encode()
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// ConnectionPool manages SQLite database connections with transaction support
type ConnectionPool struct {
	db     *sql.DB
	config Config
}

// NewConnectionPool opens the database described by config and verifies it is reachable.
func NewConnectionPool(ctx context.Context, config Config) (*ConnectionPool, error) {
	if strings.TrimSpace(config.Path) == "" {
		return nil, errors.New("sqlite: database path is required")
	}

	db, err := sql.Open("sqlite", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &ConnectionPool{db: db, config: config}, nil
}

// DB returns the underlying database connection
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the connection pool
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a database transaction.
// The transaction is rolled back when fn returns an error or panics, and committed otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// QueryHelper provides helper methods for common query patterns
type QueryHelper struct {
	pool *ConnectionPool
}

// NewQueryHelper creates a new query helper
func NewQueryHelper(pool *ConnectionPool) *QueryHelper {
	return &QueryHelper{pool: pool}
}

// QueryRow executes a query that returns a single row
func (qh *QueryHelper) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qh.pool.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns multiple rows
func (qh *QueryHelper) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qh.pool.db.QueryContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (qh *QueryHelper) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qh.pool.db.ExecContext(ctx, query, args...)
}

// QueryTx executes a query that returns multiple rows within a transaction
func (qh *QueryHelper) QueryTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (*sql.Rows, error) {
	return tx.QueryContext(ctx, query, args...)
}

// ExecTx executes a query that doesn't return rows within a transaction
func (qh *QueryHelper) ExecTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, query, args...)
}

// ErrorMapper maps SQLite errors to persistence layer errors
type ErrorMapper struct{}

// NewErrorMapper creates a new error mapper
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError maps driver errors to persistence sentinels, keeping the driver
// message for logs. The driver reports constraints only through its message.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	errStr := err.Error()

	switch {
	case containsAny(errStr, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case containsAny(errStr, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKey, err)
	case containsAny(errStr, "CHECK constraint failed", "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}

	return err
}

// containsAny checks if the string contains any of the given substrings
func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(column, value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return parsed.UTC(), nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func int64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

// requireAffected converts a zero-row update or delete into ErrNotFound.
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
