package model

import (
	"strings"
	"time"
)

// FileVersion is one version of a file: a repository-relative path and the
// checksum of its content. The content itself lives in the vault, addressed
// by ContentHash. A FileVersion is immutable once it is part of a Commit.
type FileVersion struct {
	Path        string    `json:"path"`         // Forward-slash separated, relative to the repository root
	ContentHash string    `json:"content_hash"` // SHA-256 checksum (lowercase hex)
	Size        int64     `json:"size"`         // Content size in bytes
	StagedAt    time.Time `json:"staged_at"`
}

// Commit is an immutable snapshot of the staged file set at commit time.
// Files holds the staged set verbatim; it is not merged with prior commits.
type Commit struct {
	ID        string        `json:"commit_id"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Author    string        `json:"author"`
	Files     []FileVersion `json:"files"`
}

// Find returns the version of path recorded in this commit.
func (c *Commit) Find(path string) (FileVersion, bool) {
	for _, f := range c.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileVersion{}, false
}

// FileMap indexes the commit's files by path.
func (c *Commit) FileMap() map[string]FileVersion {
	m := make(map[string]FileVersion, len(c.Files))
	for _, f := range c.Files {
		m[f.Path] = f
	}
	return m
}

// Repository is a named container for an ordered commit history.
// Files is the flat log of every committed version in commit order; it is
// NOT deduplicated by path. Use LatestByPath to get the current tree.
type Repository struct {
	Name      string        `json:"repo_name"`
	CreatedAt time.Time     `json:"created_at"`
	Commits   []Commit      `json:"commits"`
	Files     []FileVersion `json:"files"`
}

// LatestCommit returns the most recently appended commit, or nil if there are none.
func (r *Repository) LatestCommit() *Commit {
	if len(r.Commits) == 0 {
		return nil
	}
	return &r.Commits[len(r.Commits)-1]
}

// FindCommit returns the commit with the given ID, or nil.
func (r *Repository) FindCommit(id string) *Commit {
	for i := range r.Commits {
		if r.Commits[i].ID == id {
			return &r.Commits[i]
		}
	}
	return nil
}

// AppendCommit appends c to the history and its files to the flat log.
func (r *Repository) AppendCommit(c Commit) {
	r.Commits = append(r.Commits, c)
	r.Files = append(r.Files, c.Files...)
}

// PopCommit removes the most recent commit and trims its files from the end
// of the flat log. Returns the removed commit, or nil if history is empty.
func (r *Repository) PopCommit() *Commit {
	if len(r.Commits) == 0 {
		return nil
	}
	last := r.Commits[len(r.Commits)-1]
	r.Commits = r.Commits[:len(r.Commits)-1]

	keep := len(r.Files) - len(last.Files)
	if keep < 0 {
		keep = 0
	}
	r.Files = r.Files[:keep]
	return &last
}

// Reset empties the commit history and the file log.
func (r *Repository) Reset() {
	r.Commits = []Commit{}
	r.Files = []FileVersion{}
}

// LatestByPath folds the commits oldest to newest, keeping for each path the
// version from the most recent commit that touched it.
func (r *Repository) LatestByPath() map[string]FileVersion {
	latest := make(map[string]FileVersion)
	for _, c := range r.Commits {
		for _, f := range c.Files {
			latest[f.Path] = f
		}
	}
	return latest
}

// StagingArea is the mutable, path-keyed set of versions waiting to be
// committed. It holds at most one entry per path; order is first-staged order.
type StagingArea struct {
	RepoName string        `json:"repo_name"`
	Files    []FileVersion `json:"files"`
}

// NewStagingArea creates an empty staging area for a repository.
func NewStagingArea(repoName string) *StagingArea {
	return &StagingArea{RepoName: repoName, Files: []FileVersion{}}
}

// Len returns the number of staged entries.
func (s *StagingArea) Len() int {
	return len(s.Files)
}

// Find returns the staged version of path.
func (s *StagingArea) Find(path string) (FileVersion, bool) {
	for _, f := range s.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileVersion{}, false
}

// Upsert stages v, replacing any existing entry for the same path in place.
func (s *StagingArea) Upsert(v FileVersion) {
	for i := range s.Files {
		if s.Files[i].Path == v.Path {
			s.Files[i] = v
			return
		}
	}
	s.Files = append(s.Files, v)
}

// Remove drops the entry for an exact path. Reports whether one was removed.
func (s *StagingArea) Remove(path string) bool {
	for i := range s.Files {
		if s.Files[i].Path == path {
			s.Files = append(s.Files[:i], s.Files[i+1:]...)
			return true
		}
	}
	return false
}

// RemovePrefix drops every entry whose path starts with prefix. This is a
// plain string-prefix match, not path-segment aware. Returns the count removed.
func (s *StagingArea) RemovePrefix(prefix string) int {
	kept := s.Files[:0]
	removed := 0
	for _, f := range s.Files {
		if strings.HasPrefix(f.Path, prefix) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	s.Files = kept
	return removed
}

// Clear drops every entry and returns the count removed.
func (s *StagingArea) Clear() int {
	n := len(s.Files)
	s.Files = []FileVersion{}
	return n
}

// Replace swaps the staged set wholesale for a copy of files.
func (s *StagingArea) Replace(files []FileVersion) {
	s.Files = append([]FileVersion{}, files...)
}

// TotalSize returns the sum of the staged content sizes in bytes.
func (s *StagingArea) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}
