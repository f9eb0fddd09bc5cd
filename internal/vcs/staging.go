package vcs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"vcs-go/internal/checksum"
	"vcs-go/internal/model"
)

// StagedFile summarizes a staged entry. Content is never included.
type StagedFile struct {
	Path     string
	Hash     string
	Size     int64
	StagedAt time.Time
}

func stagedFileFrom(v model.FileVersion) StagedFile {
	return StagedFile{Path: v.Path, Hash: v.ContentHash, Size: v.Size, StagedAt: v.StagedAt}
}

// NormalizePath converts a caller-supplied repository path to the stored
// form: forward slashes, cleaned, relative, and not escaping the root.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// Stage stages the file or directory at rawPath.
// A single file is staged under its basename. A directory is scanned
// recursively and every file is staged under its path relative to that
// directory. Any existing entry for the same path is replaced.
func (s *VCSService) Stage(repoName string, rawPath string) ([]StagedFile, error) {
	return s.stage(repoName, rawPath, "")
}

// StageAs is like Stage but places the content under relPath: the file's
// repository path for a single file, or a prefix for a directory.
func (s *VCSService) StageAs(repoName string, rawPath string, relPath string) ([]StagedFile, error) {
	if relPath == "" {
		return nil, fmt.Errorf("%w: empty destination path", ErrInvalidPath)
	}
	return s.stage(repoName, rawPath, relPath)
}

func (s *VCSService) stage(repoName string, rawPath string, relPath string) ([]StagedFile, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	if _, err := s.loadRepository(repoName); err != nil {
		return nil, err
	}

	if relPath != "" {
		normalized, err := NormalizePath(relPath)
		if err != nil {
			return nil, err
		}
		relPath = normalized
	}

	source, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, rawPath)
		}
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	targets, err := s.stageTargets(source, relPath)
	if err != nil {
		return nil, err
	}

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return nil, err
	}

	// Content goes to the vault first; the staging document is only saved once
	// every file has been stored, so a failure part-way leaves staging untouched.
	staged := make([]StagedFile, 0, len(targets))
	for _, target := range targets {
		v, err := s.storeVersion(target.Path, target.RelativePath)
		if err != nil {
			return nil, err
		}
		staging.Upsert(v)
		staged = append(staged, stagedFileFrom(v))
		s.logger.Debug("file staged", "repo", repoName, "path", v.Path, "hash", v.ContentHash)
	}

	if s.maxStagedSize > 0 && staging.TotalSize() > s.maxStagedSize {
		return nil, fmt.Errorf("%w: would exceed max size of %d bytes", ErrStagingFull, s.maxStagedSize)
	}

	if err := s.saveStaging(repoName, staging); err != nil {
		return nil, err
	}

	s.logger.Info("files staged", "repo", repoName, "source", source.String(), "count", len(staged))
	return staged, nil
}

// stageTargets expands a resolved source into the files to stage and the
// repository path each one is stored under.
func (s *VCSService) stageTargets(source *Path, relPath string) ([]ScannedFile, error) {
	if !source.IsDir() {
		name := relPath
		if name == "" {
			name = filepath.Base(source.String())
		}
		return []ScannedFile{{RelativePath: name, Path: source}}, nil
	}

	files, err := s.fsmgr.FindFiles(source)
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}
	if relPath == "" {
		return files, nil
	}

	prefixed := make([]ScannedFile, len(files))
	for i, f := range files {
		prefixed[i] = ScannedFile{RelativePath: path.Join(relPath, f.RelativePath), Path: f.Path}
	}
	return prefixed, nil
}

// storeVersion hashes a source file, uploads its content to the vault and
// returns the FileVersion describing it.
func (s *VCSService) storeVersion(source *Path, relPath string) (model.FileVersion, error) {
	reader, err := s.fsmgr.Open(source)
	if err != nil {
		return model.FileVersion{}, fmt.Errorf("opening file: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	sum, size, err := checksum.Reader(io.TeeReader(reader, &buf))
	if err != nil {
		return model.FileVersion{}, fmt.Errorf("reading %s: %w", source.String(), err)
	}

	if info := source.Info(); info != nil && info.Size() != size {
		return model.FileVersion{}, fmt.Errorf("file changed during staging: %s: size %d -> %d", source.String(), info.Size(), size)
	}

	if err := s.vault.PutContent(sum, &buf, size); err != nil {
		return model.FileVersion{}, fmt.Errorf("storing content: %w", err)
	}

	return model.FileVersion{
		Path:        relPath,
		ContentHash: sum,
		Size:        size,
		StagedAt:    s.clock.Now(),
	}, nil
}

// Unstage removes the staged entry for an exact path.
func (s *VCSService) Unstage(repoName string, filePath string) error {
	unlock := s.locks.lock(repoName)
	defer unlock()

	normalized, err := NormalizePath(filePath)
	if err != nil {
		return err
	}

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return err
	}

	if !staging.Remove(normalized) {
		return fmt.Errorf("%w: %s", ErrNotStaged, normalized)
	}

	if err := s.saveStaging(repoName, staging); err != nil {
		return err
	}

	s.logger.Info("file unstaged", "repo", repoName, "path", normalized)
	return nil
}

// UnstageAll clears the staging area when prefix is empty, returning the
// number of entries removed. With a prefix, it removes every entry whose path
// starts with prefix (plain string match) and fails with ErrNothingMatched
// when none do.
func (s *VCSService) UnstageAll(repoName string, prefix string) (int, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return 0, err
	}

	var removed int
	if prefix == "" {
		removed = staging.Clear()
	} else {
		prefix = strings.ReplaceAll(prefix, "\\", "/")
		removed = staging.RemovePrefix(prefix)
		if removed == 0 {
			return 0, fmt.Errorf("%w: %q", ErrNothingMatched, prefix)
		}
	}

	if err := s.saveStaging(repoName, staging); err != nil {
		return 0, err
	}

	s.logger.Info("files unstaged", "repo", repoName, "prefix", prefix, "count", removed)
	return removed, nil
}

// ListStaged returns the staged entries in staging order.
func (s *VCSService) ListStaged(repoName string) ([]StagedFile, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return nil, err
	}

	files := make([]StagedFile, len(staging.Files))
	for i, f := range staging.Files {
		files[i] = stagedFileFrom(f)
	}
	return files, nil
}
