package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment selects the configuration profile.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTesting     Environment = "testing"
)

// DefaultSecretKey is the placeholder secret shipped in templates. Production refuses it.
const DefaultSecretKey = "you-need-to-change-this-in-production"

// DefaultAdminPassword seeds the first administrator outside production.
const DefaultAdminPassword = "admin"

// SessionConfig controls the session cookie issued after login.
type SessionConfig struct {
	TTL            time.Duration
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string
}

// Config captures environment driven configuration values for the event manager.
type Config struct {
	Environment        Environment
	Host               string
	Port               int
	DatabasePath       string
	SecretKey          string
	Session            SessionConfig
	LogLevel           string
	LogFormat          string
	BackupDir          string
	BackupAppPaths     []string
	AdminUsername      string
	AdminPassword      string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	// LoginMaxAttempts caps login attempts per client address within
	// LoginWindow. Zero disables the limit.
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction reports whether the production profile is active.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// UsesDefaultSecret reports whether the secret key is unset or still the placeholder.
func (c Config) UsesDefaultSecret() bool {
	return strings.TrimSpace(c.SecretKey) == "" || c.SecretKey == DefaultSecretKey
}

// Load reads an optional .env file, an optional YAML file named by CONFIG_FILE
// and the process environment, in increasing order of precedence.
//
// Missing and invalid entries are collected and reported together.
func Load() (Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			invalid = append(invalid, "CONFIG_FILE")
		}
	}

	env := EnvDevelopment
	switch value := strings.ToLower(strings.TrimSpace(v.GetString("app_env"))); value {
	case "":
	case string(EnvDevelopment), string(EnvProduction), string(EnvTesting):
		env = Environment(value)
	default:
		invalid = append(invalid, "APP_ENV")
	}

	applyDefaults(v, env)

	cfg := Config{
		Environment:   env,
		Host:          strings.TrimSpace(v.GetString("host")),
		DatabasePath:  strings.TrimSpace(v.GetString("database_path")),
		SecretKey:     strings.TrimSpace(v.GetString("secret_key")),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		BackupDir:     strings.TrimSpace(v.GetString("backup_dir")),
		AdminUsername: strings.TrimSpace(v.GetString("admin_username")),
		AdminPassword: v.GetString("admin_password"),
	}

	if port, err := strconv.Atoi(strings.TrimSpace(v.GetString("port"))); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "PORT")
	} else {
		cfg.Port = port
	}

	if ttl, err := time.ParseDuration(strings.TrimSpace(v.GetString("session_ttl"))); err != nil || ttl <= 0 {
		invalid = append(invalid, "SESSION_TTL")
	} else {
		cfg.Session.TTL = ttl
	}

	if attempts, err := strconv.Atoi(strings.TrimSpace(v.GetString("login_max_attempts"))); err != nil || attempts < 0 {
		invalid = append(invalid, "LOGIN_MAX_ATTEMPTS")
	} else {
		cfg.LoginMaxAttempts = attempts
	}
	if window, err := time.ParseDuration(strings.TrimSpace(v.GetString("login_window"))); err != nil || window <= 0 {
		invalid = append(invalid, "LOGIN_WINDOW")
	} else {
		cfg.LoginWindow = window
	}

	cfg.Session.CookieSecure = parseBool(v, "session_cookie_secure", "SESSION_COOKIE_SECURE", &invalid)
	cfg.Session.CookieHTTPOnly = parseBool(v, "session_cookie_httponly", "SESSION_COOKIE_HTTPONLY", &invalid)
	cfg.MetricsEnabled = parseBool(v, "metrics_enabled", "METRICS_ENABLED", &invalid)

	switch sameSite := strings.TrimSpace(v.GetString("session_cookie_samesite")); strings.ToLower(sameSite) {
	case "lax", "strict", "none":
		cfg.Session.CookieSameSite = strings.ToUpper(sameSite[:1]) + strings.ToLower(sameSite[1:])
	default:
		invalid = append(invalid, "SESSION_COOKIE_SAMESITE")
	}

	cfg.BackupAppPaths = splitList(v.GetString("backup_app_paths"))
	cfg.CORSAllowedOrigins = splitList(v.GetString("cors_allowed_origins"))

	if cfg.DatabasePath == "" {
		missing = append(missing, "DATABASE_PATH")
	}
	if env == EnvProduction && cfg.UsesDefaultSecret() {
		missing = append(missing, "SECRET_KEY")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = DefaultSecretKey
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyDefaults(v *viper.Viper, env Environment) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "5004")
	v.SetDefault("database_path", "database.db")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("session_cookie_secure", "false")
	v.SetDefault("session_cookie_httponly", "true")
	v.SetDefault("session_cookie_samesite", "Lax")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("backup_dir", "backups")
	v.SetDefault("backup_app_paths", ".env,config.yaml")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", DefaultAdminPassword)
	v.SetDefault("metrics_enabled", "true")
	v.SetDefault("login_max_attempts", "10")
	v.SetDefault("login_window", "15m")

	switch env {
	case EnvDevelopment:
		v.SetDefault("log_level", "debug")
	case EnvProduction:
		v.SetDefault("session_ttl", "1h")
		v.SetDefault("session_cookie_secure", "true")
	case EnvTesting:
		v.SetDefault("database_path", ":memory:")
		v.SetDefault("session_ttl", "1h")
	}
}

func parseBool(v *viper.Viper, key, envName string, invalid *[]string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		*invalid = append(*invalid, envName)
		return false
	}
	return value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
