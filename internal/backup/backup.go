// Package backup creates, lists and prunes database and application backups.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout names backup files.
const TimestampLayout = "20060102_150405"

const (
	databasePrefix = "database_backup_"
	infoPrefix     = "database_info_"
	appPrefix      = "app_backup_"
	manifestName   = "backup_manifest.json"
)

// Kind selects what a backup run copies.
type Kind string

const (
	KindDatabase Kind = "database"
	KindApp      Kind = "app"
	KindFull     Kind = "full"
)

// ParseKind validates a --type value.
func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindDatabase, KindApp, KindFull:
		return kind, nil
	case "":
		return KindFull, nil
	default:
		return "", fmt.Errorf("backup: unknown backup type %q", value)
	}
}

// Database is the storage a database backup reads from.
type Database interface {
	Backup(ctx context.Context, dest string) error
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// DatabaseInfo is written next to each database backup.
type DatabaseInfo struct {
	RunID        string           `json:"run_id"`
	Timestamp    string           `json:"timestamp"`
	DatabaseFile string           `json:"database_file"`
	BackupFile   string           `json:"backup_file"`
	Tables       int              `json:"tables"`
	TableCounts  map[string]int64 `json:"table_counts"`
	TotalRecords int64            `json:"total_records"`
}

// AppManifest is written inside each application backup directory.
type AppManifest struct {
	RunID          string   `json:"run_id"`
	Timestamp      string   `json:"timestamp"`
	BackupType     string   `json:"backup_type"`
	ItemsBackedUp  []string `json:"items_backed_up"`
	BackupLocation string   `json:"backup_location"`
}

// Result reports what one run produced. Fields for skipped parts are nil.
type Result struct {
	Database *DatabaseInfo
	App      *AppManifest
}

// Entry is one backup found in the backup directory.
type Entry struct {
	Name      string
	Kind      Kind
	SizeBytes int64
	ModTime   time.Time
}

// SizeKB returns the entry size in kilobytes.
func (e Entry) SizeKB() float64 {
	return float64(e.SizeBytes) / 1024
}

// Manager performs backups into Dir.
type Manager struct {
	Dir          string
	DatabasePath string
	AppPaths     []string

	db     Database
	now    func() time.Time
	logger *slog.Logger
}

// NewManager builds a Manager. db may be nil when only application backups,
// listing or cleanup are needed.
func NewManager(dir, databasePath string, appPaths []string, db Database, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Dir:          dir,
		DatabasePath: databasePath,
		AppPaths:     append([]string(nil), appPaths...),
		db:           db,
		now:          now,
		logger:       logger.With("component", "backup"),
	}
}

// Run performs a backup of the given kind. A full backup attempts both
// parts and joins their errors.
func (m *Manager) Run(ctx context.Context, kind Kind) (Result, error) {
	var (
		result Result
		errs   []error
	)
	if kind == KindDatabase || kind == KindFull {
		info, err := m.BackupDatabase(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Database = &info
		}
	}
	if kind == KindApp || kind == KindFull {
		manifest, err := m.BackupApp(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.App = &manifest
		}
	}
	return result, errors.Join(errs...)
}

// BackupDatabase writes a consistent copy of the database and its info file.
func (m *Manager) BackupDatabase(ctx context.Context) (info DatabaseInfo, err error) {
	logger := m.logger.With("operation", "BackupDatabase")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "database backup failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "database backup created", "backup_file", info.BackupFile, "total_records", info.TotalRecords)
	}()

	if m.db == nil {
		return DatabaseInfo{}, errors.New("backup: database not configured")
	}
	if err = os.MkdirAll(m.Dir, 0o755); err != nil {
		return DatabaseInfo{}, fmt.Errorf("create backup directory: %w", err)
	}

	stamp := m.now().Format(TimestampLayout)
	dest := filepath.Join(m.Dir, databasePrefix+stamp+".db")
	if err = m.db.Backup(ctx, dest); err != nil {
		return DatabaseInfo{}, err
	}

	counts, err := m.db.TableCounts(ctx)
	if err != nil {
		return DatabaseInfo{}, fmt.Errorf("count table rows: %w", err)
	}
	info = DatabaseInfo{
		RunID:        uuid.NewString(),
		Timestamp:    stamp,
		DatabaseFile: m.DatabasePath,
		BackupFile:   dest,
		Tables:       len(counts),
		TableCounts:  counts,
	}
	for _, n := range counts {
		info.TotalRecords += n
	}

	if err = writeJSON(filepath.Join(m.Dir, infoPrefix+stamp+".json"), info); err != nil {
		return DatabaseInfo{}, err
	}
	return info, nil
}

// BackupApp copies the configured application paths. Missing paths are
// skipped and left out of the manifest.
func (m *Manager) BackupApp(ctx context.Context) (manifest AppManifest, err error) {
	logger := m.logger.With("operation", "BackupApp")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "application backup failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "application backup created", "backup_location", manifest.BackupLocation, "items", len(manifest.ItemsBackedUp))
	}()

	stamp := m.now().Format(TimestampLayout)
	target := filepath.Join(m.Dir, appPrefix+stamp)
	if err = os.MkdirAll(target, 0o755); err != nil {
		return AppManifest{}, fmt.Errorf("create backup directory: %w", err)
	}

	items := make([]string, 0, len(m.AppPaths))
	for _, item := range m.AppPaths {
		if err = ctx.Err(); err != nil {
			return AppManifest{}, err
		}
		stat, statErr := os.Stat(item)
		if errors.Is(statErr, fs.ErrNotExist) {
			logger.DebugContext(ctx, "skipping missing path", "path", item)
			continue
		}
		if statErr != nil {
			return AppManifest{}, statErr
		}

		dest := filepath.Join(target, filepath.Base(item))
		if stat.IsDir() {
			err = copyDir(item, dest)
		} else {
			err = copyFile(item, dest, stat.Mode())
		}
		if err != nil {
			return AppManifest{}, fmt.Errorf("copy %s: %w", item, err)
		}
		items = append(items, item)
	}

	manifest = AppManifest{
		RunID:          uuid.NewString(),
		Timestamp:      stamp,
		BackupType:     "application",
		ItemsBackedUp:  items,
		BackupLocation: target,
	}
	if err = writeJSON(filepath.Join(target, manifestName), manifest); err != nil {
		return AppManifest{}, err
	}
	return manifest, nil
}

// List returns the database and application backups in Dir, oldest first.
// A missing directory yields no entries.
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		var kind Kind
		switch {
		case strings.HasPrefix(name, databasePrefix) && !de.IsDir():
			kind = KindDatabase
		case strings.HasPrefix(name, appPrefix) && de.IsDir():
			kind = KindApp
		default:
			continue
		}

		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		size := info.Size()
		if de.IsDir() {
			if size, err = dirSize(filepath.Join(m.Dir, name)); err != nil {
				return nil, err
			}
		}
		entries = append(entries, Entry{Name: name, Kind: kind, SizeBytes: size, ModTime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Cleanup removes backups in Dir last modified more than keepDays ago and
// returns how many entries it removed. Entries not named like a backup are
// left alone.
func (m *Manager) Cleanup(keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, fmt.Errorf("backup: cleanup needs a positive number of days, got %d", keepDays)
	}

	dirEntries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-time.Duration(keepDays) * 24 * time.Hour)
	removed := 0
	for _, de := range dirEntries {
		if !isBackupName(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.Dir, de.Name())); err != nil {
			return removed, err
		}
		removed++
	}

	m.logger.Info("old backups removed", "removed", removed, "keep_days", keepDays)
	return removed, nil
}

func isBackupName(name string) bool {
	for _, prefix := range []string{databasePrefix, infoPrefix, appPrefix} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
