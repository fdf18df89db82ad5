package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/example/event-manager/internal/backup"
	"github.com/example/event-manager/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newBackupCommand(e *env) *cobra.Command {
	var (
		kind    string
		list    bool
		cleanup int
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the database and application files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = e.cfg.BackupDir
			}
			out := cmd.OutOrStdout()

			if list {
				manager := backup.NewManager(dir, e.cfg.DatabasePath, e.cfg.BackupAppPaths, nil, time.Now, e.logger)
				entries, err := manager.List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No backups in %s\n", dir)
					return nil
				}
				fmt.Fprintf(out, "Backups in %s:\n", dir)
				for _, entry := range entries {
					fmt.Fprintf(out, "  %-45s %-8s %10.1f KB  %s\n", entry.Name, entry.Kind, entry.SizeKB(), entry.ModTime.Format(time.DateTime))
				}
				return nil
			}

			if cmd.Flags().Changed("cleanup") {
				manager := backup.NewManager(dir, e.cfg.DatabasePath, e.cfg.BackupAppPaths, nil, time.Now, e.logger)
				removed, err := manager.Cleanup(cleanup)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d backups older than %d days\n", removed, cleanup)
				return nil
			}

			k, err := backup.ParseKind(kind)
			if err != nil {
				return err
			}

			var db backup.Database
			if k != backup.KindApp {
				if _, err := os.Stat(e.cfg.DatabasePath); errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("database file %s not found", e.cfg.DatabasePath)
				}
				storage, err := sqlite.Open(cmd.Context(), sqlite.DefaultConfig(e.cfg.DatabasePath), e.logger)
				if err != nil {
					return err
				}
				defer storage.Close()
				db = storage
			}

			manager := backup.NewManager(dir, e.cfg.DatabasePath, e.cfg.BackupAppPaths, db, time.Now, e.logger)
			result, err := manager.Run(cmd.Context(), k)
			if result.Database != nil {
				fmt.Fprintf(out, "Database backup: %s (%d tables, %d records)\n", result.Database.BackupFile, result.Database.Tables, result.Database.TotalRecords)
			}
			if result.App != nil {
				fmt.Fprintf(out, "Application backup: %s (%d items)\n", result.App.BackupLocation, len(result.App.ItemsBackedUp))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(backup.KindFull), "backup type: database, app or full")
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups")
	cmd.Flags().IntVar(&cleanup, "cleanup", 30, "remove backups older than this many days")
	cmd.Flags().StringVar(&dir, "dir", "", "backup directory (default BACKUP_DIR)")
	return cmd
}
