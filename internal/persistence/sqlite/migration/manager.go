package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, validating and applying migrations.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	dir      string
	logger   *slog.Logger
}

// NewManager creates a Manager that reads migrations from dir inside fsys.
func NewManager(db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  NewScanner(fsys),
		executor: NewExecutor(db),
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// Run applies every pending migration in version order and returns how many ran.
// Execution stops at the first failure; earlier migrations stay applied.
func (m *Manager) Run(ctx context.Context) (int, error) {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine migration status", "error", err)
		return 0, err
	}

	m.logger.InfoContext(ctx, "migration status",
		"current_version", status.CurrentVersion,
		"applied", len(status.Applied),
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.Pending)),
		)
		if err := m.executor.Execute(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return i, err
		}
	}

	if len(status.Pending) > 0 {
		m.logger.InfoContext(ctx, "migrations completed",
			"count", len(status.Pending),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}

	return len(status.Pending), nil
}

// Status compares the available migrations with the applied ones.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan(m.dir)
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, record := range applied {
		appliedByVersion[record.Version] = record
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}

	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}

	return status, nil
}
