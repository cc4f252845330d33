package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Migration is one numbered schema change.
type Migration struct {
	Version     string
	Description string
	File        string
	SQL         string
	Checksum    string
}

// Statements splits the migration body on semicolons and drops comment lines.
func (m Migration) Statements() []string {
	return SplitStatements(m.SQL)
}

// Scan reads every NNN_description.sql file in dir, ordered by numeric version.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &MigrationError{File: dir, Operation: "read directory", Err: err}
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		name := entry.Name()
		matches := fileNamePattern.FindStringSubmatch(name)
		if len(matches) != 3 {
			return nil, &MigrationError{File: name, Operation: "validate filename",
				Err: fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)}
		}

		number, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, &MigrationError{File: name, Operation: "parse version", Err: fmt.Errorf("%w: %v", ErrInvalidMigrationFile, err)}
		}
		if existing, ok := seen[number]; ok {
			return nil, &MigrationError{Version: matches[1], File: name, Operation: "check duplicates",
				Err: fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, existing)}
		}
		seen[number] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, &MigrationError{Version: matches[1], File: name, Operation: "read file", Err: err}
		}
		if len(SplitStatements(string(body))) == 0 {
			return nil, &MigrationError{Version: matches[1], File: name, Operation: "parse SQL",
				Err: fmt.Errorf("%w: no statements", ErrInvalidMigrationFile)}
		}

		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Version:     matches[1],
			Description: strings.ReplaceAll(matches[2], "_", " "),
			File:        name,
			SQL:         string(body),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

// SplitStatements splits SQL on semicolons, dropping blank and "--" comment lines.
func SplitStatements(sql string) []string {
	var statements []string
	for _, chunk := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
