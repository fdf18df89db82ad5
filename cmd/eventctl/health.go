package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/example/event-manager/internal/healthcheck"
	"github.com/example/event-manager/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newHealthCommand(e *env) *cobra.Command {
	var (
		checkRunning bool
		full         bool
		asJSON       bool
		savePath     string
		url          string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the installation and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := healthcheck.Options{
				Config:       e.cfg,
				BaseURL:      url,
				CheckRunning: checkRunning || full,
				Logger:       e.logger,
			}
			if opts.BaseURL == "" {
				opts.BaseURL = fmt.Sprintf("http://localhost:%d", e.cfg.Port)
			}

			// Opening a missing file would create an empty database.
			if _, err := os.Stat(e.cfg.DatabasePath); !errors.Is(err, fs.ErrNotExist) {
				storage, err := sqlite.Open(cmd.Context(), sqlite.DefaultConfig(e.cfg.DatabasePath), e.logger)
				if err != nil {
					return err
				}
				defer storage.Close()
				opts.DB = storage
			}

			report := healthcheck.NewChecker(opts).Run(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeReportJSON(out, report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if savePath != "" {
				f, err := os.Create(savePath)
				if err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				if err := writeReportJSON(f, report); err != nil {
					f.Close()
					return fmt.Errorf("save report: %w", err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				if !asJSON {
					fmt.Fprintf(out, "\nReport saved to: %s\n", savePath)
				}
			}

			if !report.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkRunning, "check-running", false, "also probe the running server")
	cmd.Flags().BoolVar(&full, "full", false, "run every check, including the running server probe")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&savePath, "save-report", "", "write the JSON report to this path")
	cmd.Flags().StringVar(&url, "url", "", "base URL of the running server (default http://localhost:PORT)")
	return cmd
}

func writeReportJSON(w io.Writer, report healthcheck.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printReport(w io.Writer, report healthcheck.Report) {
	fmt.Fprintln(w, "Event Manager Health Check")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	for _, name := range []string{
		healthcheck.CheckFiles,
		healthcheck.CheckDatabase,
		healthcheck.CheckConfiguration,
		healthcheck.CheckRuntime,
		healthcheck.CheckSystem,
		healthcheck.CheckRunning,
	} {
		check, ok := report.Checks[name]
		if !ok {
			continue
		}
		mark := "ok  "
		if !check.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %-20s %s\n", mark, name, check.Message)
	}

	s := report.Summary
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Checks passed: %d/%d\n", s.PassedChecks, s.TotalChecks)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "Overall status: %s\n", s.OverallStatus)

	failed := report.Failed()
	if len(failed) == 0 {
		fmt.Fprintln(w, "\nAll health checks passed.")
		return
	}
	fmt.Fprintf(w, "\nFailed checks: %s\n", strings.Join(failed, ", "))
	fmt.Fprintln(w, "Troubleshooting tips:")
	for _, name := range failed {
		fmt.Fprintf(w, "  - %s\n", healthcheck.Hint(name))
	}
}
