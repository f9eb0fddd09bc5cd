package vcs

import (
	"fmt"
	"time"
)

// FileHistoryEntry represents a single committed version of a file.
type FileHistoryEntry struct {
	CommitID        string
	Message         string
	Author          string
	CommittedAt     time.Time
	ContentChecksum string
	Size            int64
	IsCurrent       bool // the version the latest-by-path fold resolves to
}

// FileLog returns every committed version of one path, newest first.
func (s *VCSService) FileLog(repoName string, filePath string) ([]*FileHistoryEntry, error) {
	s.logger.Debug("fetching file history", "repo", repoName, "path", filePath)

	normalized, err := NormalizePath(filePath)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(repoName)
	defer unlock()

	repo, err := s.loadRepository(repoName)
	if err != nil {
		return nil, err
	}

	var entries []*FileHistoryEntry
	for i := len(repo.Commits) - 1; i >= 0; i-- {
		c := &repo.Commits[i]
		v, ok := c.Find(normalized)
		if !ok {
			continue
		}
		entries = append(entries, &FileHistoryEntry{
			CommitID:        c.ID,
			Message:         c.Message,
			Author:          c.Author,
			CommittedAt:     c.Timestamp,
			ContentChecksum: v.ContentHash,
			Size:            v.Size,
			IsCurrent:       len(entries) == 0,
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s has no commit history", ErrFileNotFound, normalized)
	}
	return entries, nil
}
