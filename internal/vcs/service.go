package vcs

import (
	"bytes"
	"fmt"

	"vcs-go/internal/model"
)

// DefaultAuthor is recorded on commits made without an explicit author.
const DefaultAuthor = "Unknown"

// VCSService is the orchestration layer for the version-control core. It owns
// no state of its own beyond per-repository locks: repository and staging
// documents live in the Database, file content lives in the Vault.
type VCSService struct {
	database      Database
	vault         Vault
	fsmgr         FilesystemManager
	logger        Logger
	clock         Clock
	idgen         IDGenerator
	maxStagedSize int64
	locks         *repoLocks
}

// NewVCSService creates a new VCSService with the provided dependencies.
// maxStagedSize caps the total bytes held in one staging area; zero or
// negative means unlimited.
func NewVCSService(database Database, vault Vault, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator, maxStagedSize int64) *VCSService {
	return &VCSService{
		database:      database,
		vault:         vault,
		fsmgr:         fsmgr,
		logger:        logger,
		clock:         clock,
		idgen:         idgen,
		maxStagedSize: maxStagedSize,
		locks:         newRepoLocks(),
	}
}

// loadRepository loads a repository document, mapping absence to ErrRepositoryNotFound.
func (s *VCSService) loadRepository(name string) (*model.Repository, error) {
	repo, err := s.database.LoadRepository(name)
	if err != nil {
		return nil, fmt.Errorf("loading repository: %w", err)
	}
	if repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}
	return repo, nil
}

// loadStaging loads the staging area, returning an empty one if none exists yet.
func (s *VCSService) loadStaging(name string) (*model.StagingArea, error) {
	staging, err := s.database.LoadStaging(name)
	if err != nil {
		return nil, fmt.Errorf("loading staging area: %w", err)
	}
	if staging == nil {
		staging = model.NewStagingArea(name)
	}
	return staging, nil
}

// saveStaging persists the staging area, deleting the document when it is empty.
func (s *VCSService) saveStaging(name string, staging *model.StagingArea) error {
	if staging.Len() == 0 {
		if err := s.database.DeleteStaging(name); err != nil {
			return fmt.Errorf("deleting staging area: %w", err)
		}
		return nil
	}
	if err := s.database.ReplaceStaging(name, staging); err != nil {
		return fmt.Errorf("saving staging area: %w", err)
	}
	return nil
}

// restoreStaging puts files back as the staging area after the repository
// write failed with writeErr, and returns writeErr wrapped for the caller.
func (s *VCSService) restoreStaging(name string, files []model.FileVersion, writeErr error) error {
	staging := model.NewStagingArea(name)
	staging.Replace(files)
	if err := s.saveStaging(name, staging); err != nil {
		s.logger.Error("staging area lost after failed repository write", "repo", name, "files", len(files), "error", err)
		return fmt.Errorf("saving repository: %w (staging not restored: %v)", writeErr, err)
	}
	return fmt.Errorf("saving repository: %w", writeErr)
}

// readContent fetches the content for a checksum from the vault.
func (s *VCSService) readContent(checksum string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.vault.GetContent(checksum, &buf); err != nil {
		return nil, fmt.Errorf("retrieving content %s from vault: %w", checksum, err)
	}
	return buf.Bytes(), nil
}
