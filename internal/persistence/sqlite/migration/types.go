package migration

import "time"

// Migration represents a versioned schema change with its SQL content.
type Migration struct {
	Version     string // numeric version taken from the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}
