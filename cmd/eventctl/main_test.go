package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/event-manager/internal/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := newRootCommand(&logs)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func configureEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "data", "events.db"))
	t.Setenv("BACKUP_DIR", filepath.Join(dir, "backups"))
	t.Setenv("BACKUP_APP_PATHS", filepath.Join(dir, ".env"))
	t.Setenv("ADMIN_PASSWORD", "a-long-admin-password")
	return dir
}

func TestSetupBackupAndHealth(t *testing.T) {
	dir := configureEnv(t)

	out, err := execute(t, "setup", "--env-dir", dir, "--admin-username", "owner")
	require.NoError(t, err)
	assert.Contains(t, out, `administrator "owner" created`)
	assert.FileExists(t, filepath.Join(dir, ".env"))
	assert.FileExists(t, filepath.Join(dir, ".env.template"))

	out, err = execute(t, "setup", "--env-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "administrator already present")

	out, err = execute(t, "backup", "--type", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "Database backup:")
	assert.Contains(t, out, "Application backup:")

	out, err = execute(t, "backup", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "database_backup_")
	assert.Contains(t, out, "app_backup_")

	reportPath := filepath.Join(dir, "report.json")
	out, _ = execute(t, "health", "--save-report", reportPath)
	assert.Contains(t, out, "Event Manager Health Check")
	assert.Contains(t, out, "[ok  ] database")

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report healthcheck.Report
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.True(t, report.Checks[healthcheck.CheckDatabase].Passed)
	assert.Equal(t, 5, report.Summary.TotalChecks)
}

func TestHealthWithoutDatabaseIsUnhealthy(t *testing.T) {
	configureEnv(t)

	out, err := execute(t, "health", "--json")
	require.ErrorIs(t, err, errUnhealthy)

	var report healthcheck.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, healthcheck.StatusIssuesFound, report.Summary.OverallStatus)
	assert.Contains(t, report.Failed(), healthcheck.CheckDatabase)
	assert.Contains(t, report.Failed(), healthcheck.CheckFiles)
}

func TestBackupErrors(t *testing.T) {
	configureEnv(t)

	_, err := execute(t, "backup", "--type", "database")
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, "backup", "--type", "bogus")
	assert.ErrorContains(t, err, "unknown backup type")

	_, err = execute(t, "backup", "--cleanup", "0")
	assert.Error(t, err)

	out, err := execute(t, "backup", "--cleanup", "7")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Removed 0 backups"))
}
