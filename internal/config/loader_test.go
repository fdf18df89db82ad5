package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"APP_ENV",
	"CONFIG_FILE",
	"HOST",
	"PORT",
	"DATABASE_PATH",
	"SECRET_KEY",
	"SESSION_TTL",
	"SESSION_COOKIE_SECURE",
	"SESSION_COOKIE_HTTPONLY",
	"SESSION_COOKIE_SAMESITE",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"BACKUP_DIR",
	"BACKUP_APP_PATHS",
	"ADMIN_USERNAME",
	"ADMIN_PASSWORD",
	"CORS_ALLOWED_ORIGINS",
	"METRICS_ENABLED",
	"LOGIN_MAX_ATTEMPTS",
	"LOGIN_WINDOW",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies development defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.Environment != EnvDevelopment {
			t.Fatalf("expected development profile, got %q", cfg.Environment)
		}
		if cfg.Port != 5004 {
			t.Fatalf("expected default port 5004, got %d", cfg.Port)
		}
		if cfg.Addr() != "0.0.0.0:5004" {
			t.Fatalf("unexpected addr %q", cfg.Addr())
		}
		if cfg.DatabasePath != "database.db" {
			t.Fatalf("unexpected default database path: %q", cfg.DatabasePath)
		}
		if !cfg.UsesDefaultSecret() {
			t.Fatalf("expected placeholder secret in development")
		}
		if cfg.Session.CookieSecure {
			t.Fatalf("expected insecure cookies in development")
		}
		if !cfg.Session.CookieHTTPOnly || cfg.Session.CookieSameSite != "Lax" {
			t.Fatalf("unexpected cookie flags: %+v", cfg.Session)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected debug logging in development, got %q", cfg.LogLevel)
		}
		if len(cfg.BackupAppPaths) != 2 {
			t.Fatalf("expected default backup paths, got %v", cfg.BackupAppPaths)
		}
	})

	t.Run("production requires a real secret key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "production")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when secret is missing")
		}
		expected := "missing required configuration: SECRET_KEY"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}

		t.Setenv("SECRET_KEY", DefaultSecretKey)
		if _, err := Load(); err == nil {
			t.Fatalf("expected placeholder secret to be rejected in production")
		}
	})

	t.Run("production profile tightens session defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("SECRET_KEY", "a-real-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if !cfg.IsProduction() {
			t.Fatalf("expected production profile")
		}
		if !cfg.Session.CookieSecure {
			t.Fatalf("expected secure cookies in production")
		}
		if cfg.Session.TTL != time.Hour {
			t.Fatalf("expected 1h session lifetime, got %s", cfg.Session.TTL)
		}
	})

	t.Run("testing profile uses an in-memory database", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "testing")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.DatabasePath != ":memory:" {
			t.Fatalf("expected in-memory database, got %q", cfg.DatabasePath)
		}
	})

	t.Run("parses explicit values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("HOST", "127.0.0.1")
		t.Setenv("DATABASE_PATH", "/tmp/events.db")
		t.Setenv("SESSION_TTL", "2h")
		t.Setenv("SESSION_COOKIE_SECURE", "true")
		t.Setenv("SESSION_COOKIE_SAMESITE", "strict")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("METRICS_ENABLED", "false")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.Port != 9090 || cfg.Host != "127.0.0.1" {
			t.Fatalf("unexpected listen settings %s", cfg.Addr())
		}
		if cfg.DatabasePath != "/tmp/events.db" {
			t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
		}
		if cfg.Session.TTL != 2*time.Hour {
			t.Fatalf("expected session TTL 2h, got %s", cfg.Session.TTL)
		}
		if !cfg.Session.CookieSecure || cfg.Session.CookieSameSite != "Strict" {
			t.Fatalf("unexpected cookie settings %+v", cfg.Session)
		}
		if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
			t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
		}
		if cfg.MetricsEnabled {
			t.Fatalf("expected metrics to be disabled")
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "eighty")
		t.Setenv("SESSION_TTL", "-1h")
		t.Setenv("SESSION_COOKIE_SAMESITE", "sometimes")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid configuration values: PORT, SESSION_TTL, SESSION_COOKIE_SAMESITE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("login limit defaults and overrides", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.LoginMaxAttempts != 10 || cfg.LoginWindow != 15*time.Minute {
			t.Fatalf("unexpected login limit defaults: %d per %s", cfg.LoginMaxAttempts, cfg.LoginWindow)
		}

		t.Setenv("LOGIN_MAX_ATTEMPTS", "0")
		t.Setenv("LOGIN_WINDOW", "1m")
		cfg, err = Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.LoginMaxAttempts != 0 || cfg.LoginWindow != time.Minute {
			t.Fatalf("unexpected login limit: %d per %s", cfg.LoginMaxAttempts, cfg.LoginWindow)
		}

		t.Setenv("LOGIN_MAX_ATTEMPTS", "-3")
		t.Setenv("LOGIN_WINDOW", "soon")
		_, err = Load()
		if err == nil || err.Error() != "invalid configuration values: LOGIN_MAX_ATTEMPTS, LOGIN_WINDOW" {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("reads values from a YAML file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: 7070\nbackup_dir: /var/backups/events\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Port != 7070 {
			t.Fatalf("expected port from file, got %d", cfg.Port)
		}
		if cfg.BackupDir != "/var/backups/events" {
			t.Fatalf("expected backup dir from file, got %q", cfg.BackupDir)
		}
	})
}
