package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/event-manager/internal/persistence/sqlite/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Storage owns the connection pool and the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Users        *UserRepository
	Sessions     *SessionRepository
	Clients      *ClientRepository
	Locations    *LocationRepository
	Categories   *CategoryRepository
	Events       *EventRepository
	ElementTypes *ElementTypeRepository
	Elements     *ElementRepository
	Kits         *KitRepository
	Stats        *StatsRepository
}

// Open connects to the database described by cfg. The schema is not touched
// until Migrate is called.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !isMemoryPath(cfg.Path) {
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Storage{
		pool:         pool,
		logger:       logger,
		Users:        NewUserRepository(pool),
		Sessions:     NewSessionRepository(pool),
		Clients:      NewClientRepository(pool),
		Locations:    NewLocationRepository(pool),
		Categories:   NewCategoryRepository(pool),
		Events:       NewEventRepository(pool),
		ElementTypes: NewElementTypeRepository(pool),
		Elements:     NewElementRepository(pool),
		Kits:         NewKitRepository(pool),
		Stats:        NewStatsRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(s.pool.DB(), schemaFS, "schema", s.logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return migration.NewManager(s.pool.DB(), schemaFS, "schema", s.logger).Status(ctx)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Tables returns the names of the user tables present in the database.
func (s *Storage) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Backup writes a consistent copy of the database to dest using VACUUM INTO.
// dest must not exist yet.
func (s *Storage) Backup(ctx context.Context, dest string) error {
	if strings.TrimSpace(dest) == "" {
		return errors.New("sqlite: backup destination is required")
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("sqlite: backup destination %s already exists", dest)
	}
	if _, err := s.pool.DB().ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// TableCounts returns row counts for the tables reported by backups and
// health checks.
func (s *Storage) TableCounts(ctx context.Context) (map[string]int64, error) {
	return s.Stats.TableCounts(ctx)
}

// CountAdmins returns the number of administrator accounts.
func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	return s.Users.CountAdmins(ctx)
}

// OrphanedEventReferences counts events pointing at missing clients or locations.
func (s *Storage) OrphanedEventReferences(ctx context.Context) (int, error) {
	return s.Stats.OrphanedEventReferences(ctx)
}
