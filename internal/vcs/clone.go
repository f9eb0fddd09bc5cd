package vcs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Clone writes the latest version of every committed path into
// targetParent/<repoName>/, creating directories as needed. Paths removed
// from staging before a later commit still resolve to their last committed
// version. Existing files at the destination are overwritten. Returns the
// number of files written.
func (s *VCSService) Clone(repoName string, targetParent string) (int, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	repo, err := s.loadRepository(repoName)
	if err != nil {
		return 0, err
	}

	root := filepath.Join(targetParent, repoName)
	if err := os.MkdirAll(root, 0755); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrTargetPath, root, err)
	}

	latest := repo.LatestByPath()
	paths := make([]string, 0, len(latest))
	for p := range latest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	written := 0
	for _, p := range paths {
		v := latest[p]
		if err := s.writeVersion(root, p, v.ContentHash); err != nil {
			return written, err
		}
		written++
	}

	s.logger.Info("repository cloned", "repo", repoName, "target", root, "files", written)
	return written, nil
}

// writeVersion writes one stored version beneath root. Stored paths that are
// absolute or climb out of root are rejected.
func (s *VCSService) writeVersion(root string, storedPath string, contentHash string) error {
	normalized, err := NormalizePath(storedPath)
	if err != nil {
		return err
	}
	outPath := filepath.Join(root, filepath.FromSlash(normalized))

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTargetPath, filepath.Dir(outPath), err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if err := s.vault.GetContent(contentHash, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("retrieving content %s from vault: %w", contentHash, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	s.logger.Debug("file written", "path", outPath)
	return nil
}
