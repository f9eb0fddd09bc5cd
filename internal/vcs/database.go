package vcs

import (
	"time"

	"vcs-go/internal/model"
)

// Database is the persistence collaborator. It stores one Repository document
// and one StagingArea document per repository name. Lookups return (nil, nil)
// when the document is absent. Replace operations must be atomic per document;
// serializing operations on the same repository is the caller's job.
type Database interface {
	// CreateRepository inserts an empty repository.
	// Returns ErrRepositoryExists if the name is taken.
	CreateRepository(name string, createdAt time.Time) (*model.Repository, error)

	// ListRepositories returns all repository names in ascending order.
	ListRepositories() ([]string, error)

	// LoadRepository returns the repository with its full commit history and file log.
	LoadRepository(name string) (*model.Repository, error)

	// ReplaceRepository atomically overwrites the stored commits and file log.
	// Returns ErrRepositoryNotFound if the repository does not exist.
	ReplaceRepository(name string, repo *model.Repository) error

	// DeleteRepository removes the repository, its history and its staging area.
	// Deleting an absent repository is a no-op.
	DeleteRepository(name string) error

	// LoadStaging returns the staging area for a repository.
	LoadStaging(name string) (*model.StagingArea, error)

	// ReplaceStaging atomically overwrites the staging area.
	ReplaceStaging(name string, staging *model.StagingArea) error

	// DeleteStaging removes the staging area. Deleting an absent one is a no-op.
	DeleteStaging(name string) error

	// Close closes the underlying storage.
	Close() error
}
