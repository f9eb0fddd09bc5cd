package vcs

import (
	"fmt"

	"vcs-go/internal/model"
)

// RollbackResult reports what a rollback restored into the staging area.
type RollbackResult struct {
	CommitID  string // the commit whose content is now staged; empty after a full reset
	FileCount int    // number of entries restored into staging
}

// Rollback restores earlier committed content into the staging area.
//
// With a path, the version of that path from commitID (or from the latest
// commit when commitID is empty) is staged, replacing any staged entry for
// the path. History is never touched.
//
// Without a path and with a commitID, staging is replaced by that commit's
// full file set. History is never touched.
//
// Without a path or commitID, the rollback is destructive: staging is
// replaced by the second-to-last commit's files and the latest commit is
// removed from history. With exactly one commit, staging is cleared and
// the history and file log are emptied.
func (s *VCSService) Rollback(repoName string, filePath string, commitID string) (*RollbackResult, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	repo, err := s.loadRepository(repoName)
	if err != nil {
		return nil, err
	}

	if filePath != "" {
		return s.rollbackPath(repoName, repo, filePath, commitID)
	}

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return nil, err
	}

	if commitID != "" {
		commit := repo.FindCommit(commitID)
		if commit == nil {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
		}
		staging.Replace(commit.Files)
		if err := s.saveStaging(repoName, staging); err != nil {
			return nil, err
		}
		s.logger.Info("staging restored from commit", "repo", repoName, "commit", commit.ID, "files", len(commit.Files))
		return &RollbackResult{CommitID: commit.ID, FileCount: len(commit.Files)}, nil
	}

	before := append([]model.FileVersion{}, staging.Files...)
	result := &RollbackResult{}
	switch len(repo.Commits) {
	case 0:
		return nil, ErrNoCommits
	case 1:
		staging.Clear()
		repo.Reset()
	default:
		previous := repo.Commits[len(repo.Commits)-2]
		staging.Replace(previous.Files)
		repo.PopCommit()
		result.CommitID = previous.ID
		result.FileCount = len(previous.Files)
	}

	if err := s.saveStaging(repoName, staging); err != nil {
		return nil, err
	}
	if err := s.database.ReplaceRepository(repoName, repo); err != nil {
		return nil, s.restoreStaging(repoName, before, err)
	}

	s.logger.Info("repository rolled back", "repo", repoName, "commit", result.CommitID, "commits", len(repo.Commits))
	return result, nil
}

// rollbackPath stages one path's version from a commit.
func (s *VCSService) rollbackPath(repoName string, repo *model.Repository, filePath string, commitID string) (*RollbackResult, error) {
	normalized, err := NormalizePath(filePath)
	if err != nil {
		return nil, err
	}

	var commit *model.Commit
	if commitID != "" {
		commit = repo.FindCommit(commitID)
		if commit == nil {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
		}
	} else {
		commit = repo.LatestCommit()
		if commit == nil {
			return nil, ErrNoCommits
		}
	}

	v, ok := commit.Find(normalized)
	if !ok {
		return nil, fmt.Errorf("%w: %s in commit %s", ErrFileNotInCommit, normalized, commit.ID)
	}

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return nil, err
	}
	staging.Upsert(v)
	if err := s.saveStaging(repoName, staging); err != nil {
		return nil, err
	}

	s.logger.Info("file rolled back", "repo", repoName, "path", normalized, "commit", commit.ID)
	return &RollbackResult{CommitID: commit.ID, FileCount: 1}, nil
}
