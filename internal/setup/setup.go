// Package setup prepares a fresh installation: directories, environment
// files, the schema and the first administrator.
package setup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/example/event-manager/internal/app"
	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/config"
	"github.com/example/event-manager/internal/persistence/sqlite"
)

const (
	EnvTemplateName = ".env.template"
	EnvFileName     = ".env"
)

var envTemplate = template.Must(template.New("env").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ",") },
}).Parse(`# Event Manager environment
# Copy this file to .env and update the values for your environment.

APP_ENV={{.Environment}}
# Required in production. Generate one with: eventctl setup --force
SECRET_KEY={{.SecretKey}}

DATABASE_PATH={{.DatabasePath}}
HOST={{.Host}}
PORT={{.Port}}

SESSION_COOKIE_SECURE={{.Session.CookieSecure}}
SESSION_COOKIE_HTTPONLY={{.Session.CookieHTTPOnly}}
SESSION_COOKIE_SAMESITE={{.Session.CookieSameSite}}
SESSION_TTL={{.Session.TTL}}
LOGIN_MAX_ATTEMPTS={{.LoginMaxAttempts}}
LOGIN_WINDOW={{.LoginWindow}}

LOG_LEVEL={{.LogLevel}}
BACKUP_DIR={{.BackupDir}}
BACKUP_APP_PATHS={{join .BackupAppPaths}}

ADMIN_USERNAME={{.AdminUsername}}
METRICS_ENABLED={{.MetricsEnabled}}
`))

// Options configures a setup run.
type Options struct {
	Config config.Config
	// Dir receives .env and .env.template. Empty means the working directory.
	Dir string
	// Force rewrites .env with a fresh secret.
	Force  bool
	Now    func() time.Time
	Logger *slog.Logger
}

// Result summarizes what a run changed.
type Result struct {
	DataDir            string
	BackupDir          string
	EnvTemplate        string
	EnvTemplateCreated bool
	EnvFile            string
	EnvFileCreated     bool
	SchemaVersion      string
	AppliedMigrations  int
	AdminUsername      string
	AdminCreated       bool
}

// Run performs every setup step in order and stops at the first failure.
func Run(ctx context.Context, opts Options) (result Result, err error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "setup")
	cfg := opts.Config

	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "setup failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "setup finished",
			"schema_version", result.SchemaVersion,
			"admin_created", result.AdminCreated,
			"env_file_created", result.EnvFileCreated,
		)
	}()

	if !strings.HasPrefix(cfg.DatabasePath, ":memory:") {
		result.DataDir = filepath.Dir(cfg.DatabasePath)
		if err = os.MkdirAll(result.DataDir, 0o755); err != nil {
			return result, fmt.Errorf("create data directory: %w", err)
		}
	}
	if cfg.BackupDir != "" {
		result.BackupDir = cfg.BackupDir
		if err = os.MkdirAll(result.BackupDir, 0o755); err != nil {
			return result, fmt.Errorf("create backup directory: %w", err)
		}
	}

	templateCfg := cfg
	templateCfg.SecretKey = config.DefaultSecretKey
	result.EnvTemplate = filepath.Join(opts.Dir, EnvTemplateName)
	if result.EnvTemplateCreated, err = writeEnv(result.EnvTemplate, templateCfg, false); err != nil {
		return result, err
	}

	envCfg := cfg
	envCfg.SecretKey = application.GenerateToken()
	result.EnvFile = filepath.Join(opts.Dir, EnvFileName)
	if result.EnvFileCreated, err = writeEnv(result.EnvFile, envCfg, opts.Force); err != nil {
		return result, err
	}

	if err = initDatabase(ctx, cfg, opts.Now, logger, &result); err != nil {
		return result, err
	}
	return result, nil
}

func initDatabase(ctx context.Context, cfg config.Config, now func() time.Time, logger *slog.Logger, result *Result) (err error) {
	storage, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.DatabasePath), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = storage.Migrate(ctx); err != nil {
		return err
	}
	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	result.SchemaVersion = status.CurrentVersion
	result.AppliedMigrations = len(status.Applied)

	users := application.NewUserServiceWithLogger(storage.Users, application.HashPassword, now, logger)
	result.AdminUsername = cfg.AdminUsername
	result.AdminCreated, err = app.SeedAdmin(ctx, cfg, storage.Users, users, logger)
	return err
}

// writeEnv renders cfg into path unless the file exists and overwrite is false.
func writeEnv(path string, cfg config.Config, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	var buf bytes.Buffer
	if err := envTemplate.Execute(&buf, cfg); err != nil {
		return false, fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
