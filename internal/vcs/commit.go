package vcs

import (
	"fmt"
	"strings"
	"time"

	"vcs-go/internal/model"
)

// CommitSummary describes one commit in History. File content is omitted.
type CommitSummary struct {
	ID        string
	Timestamp time.Time
	Message   string
	Author    string
	FileCount int
	Files     []CommitFile
}

// CommitFile is a file entry in a CommitSummary.
type CommitFile struct {
	Path string
	Hash string
	Size int64
}

// Commit records the current staging area as a new commit and clears staging.
// author defaults to DefaultAuthor when empty. Returns the new commit ID.
func (s *VCSService) Commit(repoName string, message string, author string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if author == "" {
		author = DefaultAuthor
	}

	unlock := s.locks.lock(repoName)
	defer unlock()

	staging, err := s.database.LoadStaging(repoName)
	if err != nil {
		return "", fmt.Errorf("loading staging area: %w", err)
	}
	if staging == nil || staging.Len() == 0 {
		return "", ErrNothingStaged
	}

	repo, err := s.loadRepository(repoName)
	if err != nil {
		return "", err
	}

	commit := model.Commit{
		ID:        s.idgen.New(),
		Timestamp: s.clock.Now(),
		Message:   message,
		Author:    author,
		Files:     append([]model.FileVersion{}, staging.Files...),
	}
	repo.AppendCommit(commit)

	// Clear staging first; restoreStaging undoes it if the repository write fails.
	if err := s.database.DeleteStaging(repoName); err != nil {
		return "", fmt.Errorf("clearing staging area: %w", err)
	}
	if err := s.database.ReplaceRepository(repoName, repo); err != nil {
		return "", s.restoreStaging(repoName, staging.Files, err)
	}

	s.logger.Info("changes committed", "repo", repoName, "commit", commit.ID, "files", len(commit.Files))
	return commit.ID, nil
}

// History returns every commit of a repository in append order.
func (s *VCSService) History(repoName string) ([]CommitSummary, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	repo, err := s.loadRepository(repoName)
	if err != nil {
		return nil, err
	}

	summaries := make([]CommitSummary, len(repo.Commits))
	for i, c := range repo.Commits {
		files := make([]CommitFile, len(c.Files))
		for j, f := range c.Files {
			files[j] = CommitFile{Path: f.Path, Hash: f.ContentHash, Size: f.Size}
		}
		summaries[i] = CommitSummary{
			ID:        c.ID,
			Timestamp: c.Timestamp,
			Message:   c.Message,
			Author:    c.Author,
			FileCount: len(c.Files),
			Files:     files,
		}
	}
	return summaries, nil
}
