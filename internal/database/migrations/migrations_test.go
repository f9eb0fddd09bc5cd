package migrations

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"repositories", "commits", "commit_files", "file_log", "staged_files", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Check(db); !errors.Is(err, ErrNotMigrated) {
		t.Fatalf("Check() on fresh database = %v, want ErrNotMigrated", err)
	}

	// Running twice must be a no-op the second time.
	for i := 0; i < 2; i++ {
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() run %d failed: %v", i+1, err)
		}
	}

	if err := Check(db); err != nil {
		t.Errorf("Check() after migration returned error: %v", err)
	}
}

func TestInspect(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}

	st, err := Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() on fresh database error = %v", err)
	}
	if st.Versioned || st.Current != 0 || st.Latest != latest {
		t.Errorf("Inspect() = %+v, want unversioned with latest %d", st, latest)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	st, err = Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !st.Versioned || st.Dirty || st.Current != latest {
		t.Errorf("Inspect() = %+v, want clean at version %d", st, latest)
	}
}

func TestStatus_Err(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr string
	}{
		{"current", Status{Current: 3, Latest: 3, Versioned: true}, ""},
		{"unversioned", Status{Latest: 3}, "needs migration"},
		{"dirty", Status{Current: 2, Latest: 3, Dirty: true, Versioned: true}, "dirty state at version 2"},
		{"behind", Status{Current: 1, Latest: 3, Versioned: true}, "2 migrations behind"},
		{"ahead", Status{Current: 4, Latest: 3, Versioned: true}, "binary needs update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.status.Err()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Err() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Staged files must belong to an existing repository.
	_, err := db.Exec(`
		INSERT INTO staged_files (repo_name, position, path, content_hash, size, staged_at)
		VALUES ('missing', 0, 'a.txt', 'abc', 1, datetime('now'))
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	stmts := []string{
		"INSERT INTO repositories (name, created_at) VALUES ('repo', datetime('now'))",
		"INSERT INTO commits (repo_name, seq, id, committed_at, message, author) VALUES ('repo', 0, 'c1', datetime('now'), 'm', 'a')",
		"INSERT INTO commit_files (repo_name, commit_seq, position, path, content_hash, size, staged_at) VALUES ('repo', 0, 0, 'a.txt', 'abc', 1, datetime('now'))",
		"INSERT INTO file_log (repo_name, position, path, content_hash, size, staged_at) VALUES ('repo', 0, 'a.txt', 'abc', 1, datetime('now'))",
		"INSERT INTO staged_files (repo_name, position, path, content_hash, size, staged_at) VALUES ('repo', 0, 'b.txt', 'def', 1, datetime('now'))",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Exec(%q) failed: %v", stmt, err)
		}
	}

	if _, err := db.Exec("DELETE FROM repositories WHERE name = 'repo'"); err != nil {
		t.Fatalf("delete repository failed: %v", err)
	}

	for _, table := range []string{"commits", "commit_files", "file_log", "staged_files"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after repository delete, want 0", table, n)
		}
	}
}

func TestSchema_StagedPathUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO repositories (name, created_at) VALUES ('repo', datetime('now'))"); err != nil {
		t.Fatalf("Failed to insert repository: %v", err)
	}
	_, err := db.Exec("INSERT INTO staged_files (repo_name, position, path, content_hash, size, staged_at) VALUES ('repo', 0, 'a.txt', 'h1', 1, datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert first staged file: %v", err)
	}

	// A path may be staged only once per repository.
	_, err = db.Exec("INSERT INTO staged_files (repo_name, position, path, content_hash, size, staged_at) VALUES ('repo', 1, 'a.txt', 'h2', 1, datetime('now'))")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate staged path, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}
