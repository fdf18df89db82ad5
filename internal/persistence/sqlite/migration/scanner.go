package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scanner reads migration files from a filesystem.
type Scanner struct {
	fsys fs.FS
}

// NewScanner creates a Scanner over fsys.
func NewScanner(fsys fs.FS) *Scanner {
	return &Scanner{fsys: fsys}
}

// Scan returns the migrations found in dir ordered by numeric version.
// Non-SQL files are ignored.
func (s *Scanner) Scan(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		return nil, NewMigrationError("", dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		migration, err := s.parse(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		number, _ := strconv.Atoi(migration.Version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, migration.Version, existing, entry.Name()))
		}
		seen[number] = entry.Name()

		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})

	return migrations, nil
}

func (s *Scanner) parse(filePath string) (Migration, error) {
	name := path.Base(filePath)
	matches := migrationFilePattern.FindStringSubmatch(name)
	if matches == nil {
		return Migration{}, NewMigrationError("", filePath, "validate filename",
			fmt.Errorf("%w: filename %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name))
	}

	content, err := fs.ReadFile(s.fsys, filePath)
	if err != nil {
		return Migration{}, NewMigrationError(matches[1], filePath, "read file", err)
	}

	sqlText := string(content)
	if strings.TrimSpace(sqlText) == "" {
		return Migration{}, NewMigrationError(matches[1], filePath, "validate content",
			fmt.Errorf("%w: migration file is empty", ErrInvalidMigrationFile))
	}

	description := descriptionFromContent(sqlText)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     matches[1],
		Description: description,
		SQL:         sqlText,
		FilePath:    filePath,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}, nil
}

// descriptionFromContent reads a leading "-- Description: ..." comment.
func descriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
