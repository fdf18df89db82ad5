package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanner_Scan(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectedErr   error
	}{
		{
			name: "orders migrations numerically",
			files: map[string]string{
				"schema/010_add_indexes.sql":    "CREATE INDEX idx ON users(username);",
				"schema/002_add_clients.sql":    "CREATE TABLE clients (id INTEGER PRIMARY KEY);",
				"schema/001_initial_schema.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "ignores non-SQL files",
			files: map[string]string{
				"schema/001_initial_schema.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
				"schema/README.md":              "# notes",
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "rejects malformed file names",
			files: map[string]string{
				"schema/initial.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "rejects empty files",
			files: map[string]string{
				"schema/001_empty.sql": "   \n",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "rejects duplicate versions",
			files: map[string]string{
				"schema/001_first.sql":  "CREATE TABLE a (id INTEGER);",
				"schema/0001_other.sql": "CREATE TABLE b (id INTEGER);",
			},
			expectedErr: ErrDuplicateVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(content)}
			}

			migrations, err := NewScanner(fsys).Scan("schema")
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if migrations[i].Checksum == "" {
					t.Errorf("expected checksum for %s", migrations[i].FilePath)
				}
			}
		})
	}
}

func TestScanner_Description(t *testing.T) {
	fsys := fstest.MapFS{
		"schema/001_initial_schema.sql": {Data: []byte("-- Description: Core tables\nCREATE TABLE users (id INTEGER);")},
		"schema/002_add_kits.sql":       {Data: []byte("CREATE TABLE kits (id INTEGER);")},
	}

	migrations, err := NewScanner(fsys).Scan("schema")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if migrations[0].Description != "Core tables" {
		t.Errorf("expected description from comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "add kits" {
		t.Errorf("expected description from file name, got %q", migrations[1].Description)
	}
}
