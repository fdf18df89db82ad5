// Package healthcheck inspects an installation and produces the report
// printed by eventctl health.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/example/event-manager/internal/config"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Check names, in report order.
const (
	CheckFiles         = "files"
	CheckDatabase      = "database"
	CheckConfiguration = "configuration"
	CheckRuntime       = "runtime"
	CheckSystem        = "system"
	CheckRunning       = "running_application"
)

const (
	StatusHealthy     = "healthy"
	StatusIssuesFound = "issues_found"
)

const (
	runningTimeout = 5 * time.Second
	// usage above this percentage fails the system check
	usageLimit = 95.0
)

// RequiredTables must exist for the database check to pass.
var RequiredTables = []string{"users", "clients", "events", "elements"}

var hints = map[string]string{
	CheckFiles:         "Run: eventctl setup",
	CheckDatabase:      "Run: eventctl setup to migrate the schema and seed an administrator",
	CheckConfiguration: "Set SECRET_KEY to a long random value, or run: eventctl setup --force",
	CheckRuntime:       "Rebuild the binary with module support enabled",
	CheckSystem:        "Free memory or disk space on the host",
	CheckRunning:       "Start the server: go run ./cmd/server",
}

// Database is the storage inspected by the database check.
type Database interface {
	Ping(ctx context.Context) error
	Tables(ctx context.Context) ([]string, error)
	TableCounts(ctx context.Context) (map[string]int64, error)
	CountAdmins(ctx context.Context) (int, error)
	OrphanedEventReferences(ctx context.Context) (int, error)
}

// Check is the outcome of one probe.
type Check struct {
	Passed    bool           `json:"passed"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Summary aggregates the checks of a report.
type Summary struct {
	TotalChecks   int     `json:"total_checks"`
	PassedChecks  int     `json:"passed_checks"`
	SuccessRate   float64 `json:"success_rate"`
	OverallStatus string  `json:"overall_status"`
}

// Report is the full health report.
type Report struct {
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Summary   Summary          `json:"summary"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Summary.OverallStatus == StatusHealthy
}

// Failed returns the names of failed checks, sorted.
func (r Report) Failed() []string {
	var failed []string
	for name, check := range r.Checks {
		if !check.Passed {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// Hint returns the troubleshooting advice for a failed check.
func Hint(name string) string {
	return hints[name]
}

// SystemStats is a memory and disk snapshot.
type SystemStats struct {
	MemoryTotal   uint64
	MemoryUsed    uint64
	MemoryPercent float64
	DiskPath      string
	DiskTotal     uint64
	DiskUsed      uint64
	DiskPercent   float64
}

// Options configures a Checker.
type Options struct {
	Config config.Config
	// DB is nil when the database file could not be opened.
	DB Database
	// Files lists the paths the files check requires. Empty uses DefaultFiles.
	Files []string
	// BaseURL of the running server, probed when CheckRunning is set.
	BaseURL      string
	CheckRunning bool

	HTTPClient *http.Client
	System     func(ctx context.Context, path string) (SystemStats, error)
	Now        func() time.Time
	Logger     *slog.Logger
}

type probe struct {
	name string
	fn   func(context.Context) Check
}

// Checker runs the probes configured by Options.
type Checker struct {
	opts   Options
	logger *slog.Logger
}

func NewChecker(opts Options) *Checker {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: runningTimeout}
	}
	if opts.System == nil {
		opts.System = ReadSystemStats
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Files) == 0 {
		opts.Files = DefaultFiles(opts.Config)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{opts: opts, logger: logger.With("component", "healthcheck")}
}

// DefaultFiles returns the paths an installation needs: the database file
// unless it lives in memory.
func DefaultFiles(cfg config.Config) []string {
	if cfg.DatabasePath == "" || strings.HasPrefix(cfg.DatabasePath, ":memory:") {
		return nil
	}
	return []string{cfg.DatabasePath}
}

// Run executes every check and summarizes them.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{Timestamp: c.opts.Now(), Checks: make(map[string]Check)}

	probes := []probe{
		{CheckFiles, c.checkFiles},
		{CheckDatabase, c.checkDatabase},
		{CheckConfiguration, c.checkConfiguration},
		{CheckRuntime, c.checkRuntime},
		{CheckSystem, c.checkSystem},
	}
	if c.opts.CheckRunning {
		probes = append(probes, probe{CheckRunning, c.checkRunning})
	}

	for _, probe := range probes {
		check := probe.fn(ctx)
		check.Timestamp = c.opts.Now()
		report.Checks[probe.name] = check
		if check.Passed {
			report.Summary.PassedChecks++
		}
		c.logger.DebugContext(ctx, "health check finished", "check", probe.name, "passed", check.Passed, "message", check.Message)
	}

	report.Summary.TotalChecks = len(report.Checks)
	report.Summary.SuccessRate = float64(report.Summary.PassedChecks) / float64(report.Summary.TotalChecks) * 100
	report.Summary.OverallStatus = StatusIssuesFound
	if report.Summary.PassedChecks == report.Summary.TotalChecks {
		report.Summary.OverallStatus = StatusHealthy
	}
	return report
}

func (c *Checker) checkFiles(context.Context) Check {
	var missing []string
	for _, path := range c.opts.Files {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return Check{
			Message: "missing files: " + strings.Join(missing, ", "),
			Details: map[string]any{"missing": missing},
		}
	}
	return Check{Passed: true, Message: fmt.Sprintf("all %d essential files found", len(c.opts.Files))}
}

func (c *Checker) checkDatabase(ctx context.Context) Check {
	db := c.opts.DB
	if db == nil {
		return Check{Message: "database file not found"}
	}
	if err := db.Ping(ctx); err != nil {
		return Check{Message: "database error: " + err.Error()}
	}

	tables, err := db.Tables(ctx)
	if err != nil {
		return Check{Message: "database error: " + err.Error()}
	}
	present := make(map[string]bool, len(tables))
	for _, table := range tables {
		present[table] = true
	}
	var missing []string
	for _, table := range RequiredTables {
		if !present[table] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return Check{
			Message: "missing database tables: " + strings.Join(missing, ", "),
			Details: map[string]any{"missing_tables": missing},
		}
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		return Check{Message: "database error: " + err.Error()}
	}
	admins, err := db.CountAdmins(ctx)
	if err != nil {
		return Check{Message: "database error: " + err.Error()}
	}
	orphans, err := db.OrphanedEventReferences(ctx)
	if err != nil {
		return Check{Message: "database error: " + err.Error()}
	}

	details := map[string]any{
		"users":                     counts["users"],
		"admins":                    admins,
		"orphaned_event_references": orphans,
		"table_counts":              counts,
	}
	switch {
	case admins == 0:
		return Check{Message: "no administrator account", Details: details}
	case orphans > 0:
		return Check{Message: fmt.Sprintf("%d events reference missing clients or locations", orphans), Details: details}
	}
	return Check{
		Passed:  true,
		Message: fmt.Sprintf("database accessible with %d users (%d admin)", counts["users"], admins),
		Details: details,
	}
}

func (c *Checker) checkConfiguration(context.Context) Check {
	cfg := c.opts.Config
	details := map[string]any{
		"environment":    string(cfg.Environment),
		"default_secret": cfg.UsesDefaultSecret(),
	}
	if cfg.IsProduction() && cfg.UsesDefaultSecret() {
		return Check{Message: "SECRET_KEY is unset or still the default value", Details: details}
	}
	if !cfg.IsProduction() {
		return Check{Passed: true, Message: fmt.Sprintf("running in %s mode", cfg.Environment), Details: details}
	}
	return Check{Passed: true, Message: "configuration looks good", Details: details}
}

func (c *Checker) checkRuntime(context.Context) Check {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Check{Message: "build information unavailable"}
	}

	details := map[string]any{
		"go_version":   info.GoVersion,
		"module":       info.Main.Path,
		"dependencies": len(info.Deps),
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			details["revision"] = setting.Value
		}
	}
	return Check{Passed: true, Message: "built with " + info.GoVersion, Details: details}
}

func (c *Checker) checkSystem(ctx context.Context) Check {
	path := "."
	if files := DefaultFiles(c.opts.Config); len(files) > 0 {
		path = filepath.Dir(files[0])
	}

	stats, err := c.opts.System(ctx, path)
	if err != nil {
		return Check{Message: "system stats unavailable: " + err.Error()}
	}

	details := map[string]any{
		"memory_used":    formatBytes(stats.MemoryUsed),
		"memory_total":   formatBytes(stats.MemoryTotal),
		"memory_percent": stats.MemoryPercent,
		"disk_path":      stats.DiskPath,
		"disk_used":      formatBytes(stats.DiskUsed),
		"disk_total":     formatBytes(stats.DiskTotal),
		"disk_percent":   stats.DiskPercent,
	}
	var issues []string
	if stats.MemoryPercent > usageLimit {
		issues = append(issues, fmt.Sprintf("memory %.1f%% used", stats.MemoryPercent))
	}
	if stats.DiskPercent > usageLimit {
		issues = append(issues, fmt.Sprintf("disk %.1f%% used", stats.DiskPercent))
	}
	if len(issues) > 0 {
		return Check{Message: strings.Join(issues, ", "), Details: details}
	}
	return Check{
		Passed:  true,
		Message: fmt.Sprintf("memory %.1f%% used, disk %.1f%% used", stats.MemoryPercent, stats.DiskPercent),
		Details: details,
	}
}

func (c *Checker) checkRunning(ctx context.Context) Check {
	url := strings.TrimRight(c.opts.BaseURL, "/") + "/login"
	ctx, cancel := context.WithTimeout(ctx, runningTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Message: "invalid url: " + err.Error()}
	}
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Check{Message: "application not responding (timeout)", Details: map[string]any{"url": url}}
		}
		return Check{Message: "application not reachable: " + err.Error(), Details: map[string]any{"url": url}}
	}
	defer resp.Body.Close()

	details := map[string]any{"url": url, "status_code": resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		return Check{Message: fmt.Sprintf("application responding with status code %d", resp.StatusCode), Details: details}
	}
	return Check{Passed: true, Message: "application is running and responding", Details: details}
}

// ReadSystemStats samples host memory and the disk holding path.
func ReadSystemStats(ctx context.Context, path string) (SystemStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("read memory: %w", err)
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return SystemStats{}, fmt.Errorf("read disk usage for %s: %w", path, err)
	}
	return SystemStats{
		MemoryTotal:   vm.Total,
		MemoryUsed:    vm.Used,
		MemoryPercent: vm.UsedPercent,
		DiskPath:      usage.Path,
		DiskTotal:     usage.Total,
		DiskUsed:      usage.Used,
		DiskPercent:   usage.UsedPercent,
	}, nil
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB", gb)
}
