package database

import (
	"fmt"
	"os"
	"path/filepath"

	"vcs-go/internal/config"
	"vcs-go/internal/vcs"
)

const (
	sqliteFileName = "vcs.db"
	boltFileName   = "vcs.bolt"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (vcs.Database, error) {
	switch cfg.Type {
	case "sqlite":
		dir, err := ensureDataDir(cfg)
		if err != nil {
			return nil, err
		}
		return openSQLite(filepath.Join(dir, sqliteFileName))
	case "bolt":
		dir, err := ensureDataDir(cfg)
		if err != nil {
			return nil, err
		}
		db, err := NewBoltDatabase(filepath.Join(dir, boltFileName))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		return openSQLite(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func ensureDataDir(cfg config.DatabaseConfig) (string, error) {
	if cfg.DataDir == "" {
		return "", fmt.Errorf("data_dir required for %s database", cfg.Type)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return cfg.DataDir, nil
}

// openSQLite avoids returning a typed nil inside the interface on error.
func openSQLite(path string) (vcs.Database, error) {
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
