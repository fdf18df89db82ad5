// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files live in an fs.FS (normally an embedded directory) and follow
// the naming convention {version}_{description}.sql, for example
// "001_initial_schema.sql". Each migration runs in its own transaction and is
// recorded in the schema_migrations table together with the checksum of its
// contents, so a migration that was edited after being applied is reported
// instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewManager(db, schemaFS, "schema", logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
