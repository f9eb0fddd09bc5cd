package vcs

import (
	"fmt"
	"regexp"
)

var validRepoName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateRepositoryName checks that name is non-empty and only contains
// letters, digits, hyphens and underscores.
func ValidateRepositoryName(name string) error {
	if !validRepoName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// CreateRepository creates a new, empty repository.
// Names must be unique; a duplicate fails with ErrRepositoryExists.
func (s *VCSService) CreateRepository(name string) error {
	if err := ValidateRepositoryName(name); err != nil {
		return err
	}

	unlock := s.locks.lock(name)
	defer unlock()

	if _, err := s.database.CreateRepository(name, s.clock.Now()); err != nil {
		return fmt.Errorf("creating repository: %w", err)
	}

	s.logger.Info("repository created", "repo", name)
	return nil
}

// DeleteRepository deletes a repository together with its history and staging area.
func (s *VCSService) DeleteRepository(name string) error {
	unlock := s.locks.lock(name)
	defer unlock()

	if _, err := s.loadRepository(name); err != nil {
		return err
	}

	if err := s.database.DeleteStaging(name); err != nil {
		return fmt.Errorf("deleting staging area: %w", err)
	}
	if err := s.database.DeleteRepository(name); err != nil {
		return fmt.Errorf("deleting repository: %w", err)
	}

	s.logger.Info("repository deleted", "repo", name)
	return nil
}

// ListRepositories returns the names of all repositories, sorted.
func (s *VCSService) ListRepositories() ([]string, error) {
	names, err := s.database.ListRepositories()
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return names, nil
}
