package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"vcs-go/internal/database/migrations"
	"vcs-go/internal/model"
	"vcs-go/internal/vcs"
)

// SQLiteDatabase implements the Database interface using SQLite.
// Repository and staging documents are normalized into rows; every replace
// runs in a single transaction so readers never see a half-written document.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database and migrates it to the latest schema.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and the schema is migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: ":memory:" is per-connection, and writers serialize anyway.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Repository operations

func (s *SQLiteDatabase) CreateRepository(name string, createdAt time.Time) (*model.Repository, error) {
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO repositories (name, created_at) VALUES (?, ?)", name, createdAt)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: %s", vcs.ErrRepositoryExists, name)
		}
		return nil, fmt.Errorf("inserting repository: %w", err)
	}

	return &model.Repository{
		Name:      name,
		CreatedAt: createdAt,
		Commits:   []model.Commit{},
		Files:     []model.FileVersion{},
	}, nil
}

func (s *SQLiteDatabase) ListRepositories() ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(), "SELECT name FROM repositories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning repository name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return names, nil
}

func (s *SQLiteDatabase) LoadRepository(name string) (*model.Repository, error) {
	ctx := context.Background()

	repo := &model.Repository{Name: name}
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM repositories WHERE name = ?", name).Scan(&repo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding repository: %w", err)
	}

	commits, err := s.loadCommits(ctx, name)
	if err != nil {
		return nil, err
	}
	repo.Commits = commits

	files, err := s.queryVersions(ctx,
		"SELECT path, content_hash, size, staged_at FROM file_log WHERE repo_name = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("loading file log: %w", err)
	}
	repo.Files = files

	return repo, nil
}

// loadCommits loads the commit headers and then each commit's files. The
// header rows are fully read and closed before the file queries run, since
// the pool holds a single connection.
func (s *SQLiteDatabase) loadCommits(ctx context.Context, name string) ([]model.Commit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, id, committed_at, message, author FROM commits WHERE repo_name = ? ORDER BY seq", name)
	if err != nil {
		return nil, fmt.Errorf("loading commits: %w", err)
	}

	var seqs []int64
	commits := []model.Commit{}
	for rows.Next() {
		var seq int64
		var c model.Commit
		if err := rows.Scan(&seq, &c.ID, &c.Timestamp, &c.Message, &c.Author); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		seqs = append(seqs, seq)
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("loading commits: %w", err)
	}
	rows.Close()

	for i, seq := range seqs {
		files, err := s.queryVersions(ctx,
			"SELECT path, content_hash, size, staged_at FROM commit_files WHERE repo_name = ? AND commit_seq = ? ORDER BY position",
			name, seq)
		if err != nil {
			return nil, fmt.Errorf("loading files for commit %s: %w", commits[i].ID, err)
		}
		commits[i].Files = files
	}
	return commits, nil
}

func (s *SQLiteDatabase) ReplaceRepository(name string, repo *model.Repository) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM repositories WHERE name = ?", name).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", vcs.ErrRepositoryNotFound, name)
		}
		return fmt.Errorf("finding repository: %w", err)
	}

	// commit_files rows go with their commits via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM commits WHERE repo_name = ?", name); err != nil {
		return fmt.Errorf("clearing commits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM file_log WHERE repo_name = ?", name); err != nil {
		return fmt.Errorf("clearing file log: %w", err)
	}

	for seq, c := range repo.Commits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO commits (repo_name, seq, id, committed_at, message, author) VALUES (?, ?, ?, ?, ?, ?)",
			name, seq, c.ID, c.Timestamp, c.Message, c.Author)
		if err != nil {
			return fmt.Errorf("inserting commit %s: %w", c.ID, err)
		}
		for pos, f := range c.Files {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO commit_files (repo_name, commit_seq, position, path, content_hash, size, staged_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				name, seq, pos, f.Path, f.ContentHash, f.Size, f.StagedAt)
			if err != nil {
				return fmt.Errorf("inserting file %s for commit %s: %w", f.Path, c.ID, err)
			}
		}
	}

	for pos, f := range repo.Files {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO file_log (repo_name, position, path, content_hash, size, staged_at) VALUES (?, ?, ?, ?, ?, ?)",
			name, pos, f.Path, f.ContentHash, f.Size, f.StagedAt)
		if err != nil {
			return fmt.Errorf("inserting file log entry %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteRepository(name string) error {
	// History and staging rows cascade.
	if _, err := s.db.ExecContext(context.Background(), "DELETE FROM repositories WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting repository: %w", err)
	}
	return nil
}

// Staging operations

func (s *SQLiteDatabase) LoadStaging(name string) (*model.StagingArea, error) {
	files, err := s.queryVersions(context.Background(),
		"SELECT path, content_hash, size, staged_at FROM staged_files WHERE repo_name = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("loading staging area: %w", err)
	}
	if len(files) == 0 {
		return nil, nil // Not found
	}
	return &model.StagingArea{RepoName: name, Files: files}, nil
}

func (s *SQLiteDatabase) ReplaceStaging(name string, staging *model.StagingArea) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM staged_files WHERE repo_name = ?", name); err != nil {
		return fmt.Errorf("clearing staging area: %w", err)
	}

	for pos, f := range staging.Files {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO staged_files (repo_name, position, path, content_hash, size, staged_at) VALUES (?, ?, ?, ?, ?, ?)",
			name, pos, f.Path, f.ContentHash, f.Size, f.StagedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", vcs.ErrRepositoryNotFound, name)
			}
			return fmt.Errorf("inserting staged file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteStaging(name string) error {
	if _, err := s.db.ExecContext(context.Background(), "DELETE FROM staged_files WHERE repo_name = ?", name); err != nil {
		return fmt.Errorf("deleting staging area: %w", err)
	}
	return nil
}

// queryVersions runs a query selecting (path, content_hash, size, staged_at) rows.
func (s *SQLiteDatabase) queryVersions(ctx context.Context, query string, args ...any) ([]model.FileVersion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []model.FileVersion{}
	for rows.Next() {
		var f model.FileVersion
		if err := rows.Scan(&f.Path, &f.ContentHash, &f.Size, &f.StagedAt); err != nil {
			return nil, fmt.Errorf("scanning file version: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements vcs.Database interface
var _ vcs.Database = (*SQLiteDatabase)(nil)
