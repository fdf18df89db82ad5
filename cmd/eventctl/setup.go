package main

import (
	"fmt"
	"time"

	"github.com/example/event-manager/internal/setup"
	"github.com/spf13/cobra"
)

func newSetupCommand(e *env) *cobra.Command {
	var (
		force         bool
		dir           string
		adminUsername string
		adminPassword string
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare directories, environment files, schema and the first administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if adminUsername != "" {
				cfg.AdminUsername = adminUsername
			}
			if adminPassword != "" {
				cfg.AdminPassword = adminPassword
			}

			result, err := setup.Run(cmd.Context(), setup.Options{
				Config: cfg,
				Dir:    dir,
				Force:  force,
				Now:    time.Now,
				Logger: e.logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Setup complete")
			if result.DataDir != "" {
				fmt.Fprintf(out, "  data directory:   %s\n", result.DataDir)
			}
			if result.BackupDir != "" {
				fmt.Fprintf(out, "  backup directory: %s\n", result.BackupDir)
			}
			fmt.Fprintf(out, "  %s %s\n", result.EnvTemplate, createdOrKept(result.EnvTemplateCreated))
			fmt.Fprintf(out, "  %s %s\n", result.EnvFile, createdOrKept(result.EnvFileCreated))
			fmt.Fprintf(out, "  schema version:   %s (%d migrations)\n", result.SchemaVersion, result.AppliedMigrations)
			if result.AdminCreated {
				fmt.Fprintf(out, "  administrator %q created\n", result.AdminUsername)
			} else {
				fmt.Fprintln(out, "  administrator already present")
			}
			fmt.Fprintln(out, "\nNext: review .env, then start the server with go run ./cmd/server")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "rewrite .env with a new SECRET_KEY")
	cmd.Flags().StringVar(&dir, "env-dir", "", "directory receiving .env and .env.template (default working directory)")
	cmd.Flags().StringVar(&adminUsername, "admin-username", "", "administrator username (default ADMIN_USERNAME)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "administrator password (default ADMIN_PASSWORD)")
	return cmd
}

func createdOrKept(created bool) string {
	if created {
		return "created"
	}
	return "already exists"
}
