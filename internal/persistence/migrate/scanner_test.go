package migrate

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectedErr   error
	}{
		{
			name: "orders by numeric version",
			files: map[string]string{
				"migrations/010_add_indexes.sql": "CREATE INDEX idx ON t(a);",
				"migrations/002_add_slots.sql":   "CREATE TABLE slots (id TEXT);",
				"migrations/001_initial.sql":     "CREATE TABLE t (a TEXT);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "ignores non sql files and directories",
			files: map[string]string{
				"migrations/001_initial.sql":  "CREATE TABLE t (a TEXT);",
				"migrations/README.md":        "notes",
				"migrations/nested/x.sql":     "CREATE TABLE x (a TEXT);",
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "rejects malformed names",
			files: map[string]string{
				"migrations/initial.sql": "CREATE TABLE t (a TEXT);",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "rejects duplicate versions",
			files: map[string]string{
				"migrations/001_a.sql":  "CREATE TABLE a (a TEXT);",
				"migrations/0001_b.sql": "CREATE TABLE b (a TEXT);",
			},
			expectedErr: ErrDuplicateVersion,
		},
		{
			name: "rejects comment only files",
			files: map[string]string{
				"migrations/001_empty.sql": "-- nothing here\n",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, body := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(body)}
			}

			migrations, err := Scan(fsys, "migrations")
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}

			versions := make([]string, 0, len(migrations))
			for _, m := range migrations {
				versions = append(versions, m.Version)
				if len(m.Checksum) != 64 {
					t.Fatalf("expected sha256 hex checksum, got %q", m.Checksum)
				}
			}
			if diff := cmp.Diff(tt.expectedOrder, versions); diff != "" {
				t.Fatalf("version order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- Migration: 001_initial.sql
CREATE TABLE a (
    id TEXT PRIMARY KEY -- trailing comments stay
);

-- second table
CREATE TABLE b (id TEXT);
`
	got := SplitStatements(sql)
	want := []string{
		"CREATE TABLE a (\nid TEXT PRIMARY KEY -- trailing comments stay\n)",
		"CREATE TABLE b (id TEXT)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}
}
