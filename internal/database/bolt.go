package database

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"vcs-go/internal/model"
	"vcs-go/internal/vcs"
)

// Buckets
var (
	bucketRepositories = []byte("repositories") // repo name -> model.Repository JSON
	bucketStaging      = []byte("staging")      // repo name -> model.StagingArea JSON
)

// BoltDatabase implements the Database interface on a bbolt file, storing
// each repository and staging area as one JSON document. bbolt serializes
// writers, so each replace is a single atomic Update.
type BoltDatabase struct {
	db *bbolt.DB
}

// NewBoltDatabase opens (or creates) a bbolt database file at path.
func NewBoltDatabase(path string) (*BoltDatabase, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRepositories, bucketStaging} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDatabase{db: db}, nil
}

func (b *BoltDatabase) CreateRepository(name string, createdAt time.Time) (*model.Repository, error) {
	repo := &model.Repository{
		Name:      name,
		CreatedAt: createdAt,
		Commits:   []model.Commit{},
		Files:     []model.FileVersion{},
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRepositories)
		if bucket.Get([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", vcs.ErrRepositoryExists, name)
		}
		return putJSON(bucket, name, repo)
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (b *BoltDatabase) ListRepositories() ([]string, error) {
	names := []string{}
	// Keys iterate in byte order.
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRepositories).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return names, nil
}

func (b *BoltDatabase) LoadRepository(name string) (*model.Repository, error) {
	var repo *model.Repository
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRepositories).Get([]byte(name))
		if data == nil {
			return nil
		}
		repo = &model.Repository{}
		return json.Unmarshal(data, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("loading repository %s: %w", name, err)
	}
	return repo, nil
}

func (b *BoltDatabase) ReplaceRepository(name string, repo *model.Repository) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRepositories)
		if bucket.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", vcs.ErrRepositoryNotFound, name)
		}
		return putJSON(bucket, name, repo)
	})
}

func (b *BoltDatabase) DeleteRepository(name string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketStaging).Delete([]byte(name)); err != nil {
			return fmt.Errorf("deleting staging area: %w", err)
		}
		if err := tx.Bucket(bucketRepositories).Delete([]byte(name)); err != nil {
			return fmt.Errorf("deleting repository: %w", err)
		}
		return nil
	})
}

func (b *BoltDatabase) LoadStaging(name string) (*model.StagingArea, error) {
	var staging *model.StagingArea
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStaging).Get([]byte(name))
		if data == nil {
			return nil
		}
		staging = &model.StagingArea{}
		return json.Unmarshal(data, staging)
	})
	if err != nil {
		return nil, fmt.Errorf("loading staging area %s: %w", name, err)
	}
	return staging, nil
}

func (b *BoltDatabase) ReplaceStaging(name string, staging *model.StagingArea) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketRepositories).Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", vcs.ErrRepositoryNotFound, name)
		}
		doc := model.StagingArea{RepoName: name, Files: staging.Files}
		return putJSON(tx.Bucket(bucketStaging), name, &doc)
	})
}

func (b *BoltDatabase) DeleteStaging(name string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStaging).Delete([]byte(name))
	})
}

// BackupTo writes a consistent copy of the database file to destPath.
func (b *BoltDatabase) BackupTo(destPath string) error {
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(destPath, 0600)
	})
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (b *BoltDatabase) Path() string {
	return b.db.Path()
}

// Close closes the database file.
func (b *BoltDatabase) Close() error {
	return b.db.Close()
}

func putJSON(bucket *bbolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return bucket.Put([]byte(key), data)
}

// Compile-time check that BoltDatabase implements vcs.Database interface
var _ vcs.Database = (*BoltDatabase)(nil)
