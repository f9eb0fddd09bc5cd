package vcs

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"vcs-go/internal/model"
)

// ChangeStatus is the kind of change a FileDiff describes.
type ChangeStatus uint8

const (
	StatusNew ChangeStatus = iota + 1
	StatusModified
	StatusDeleted
)

func (c ChangeStatus) String() string {
	switch c {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("ChangeStatus(%d)", uint8(c))
	}
}

// MarshalText renders the status as its lowercase name.
func (c ChangeStatus) MarshalText() ([]byte, error) {
	switch c {
	case StatusNew, StatusModified, StatusDeleted:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("invalid change status %d", uint8(c))
}

// BinaryPlaceholder replaces the diff text when either side is not valid UTF-8.
const BinaryPlaceholder = "Binary files differ"

// diffContext is the number of unchanged lines shown around each hunk.
const diffContext = 3

// FileDiff is the comparison result for one path.
type FileDiff struct {
	Path     string
	Status   ChangeStatus
	Diff     string
	IsBinary bool
}

// Diff compares the staging area against the most recent commit. Only the
// latest commit's file set is considered: a path committed earlier but not
// in the latest commit counts as absent on the committed side. Paths with
// equal hashes on both sides are omitted. An empty staging area proposes
// no changes, so nothing is reported as deleted until something is staged.
// Results are sorted by path.
func (s *VCSService) Diff(repoName string) ([]FileDiff, error) {
	unlock := s.locks.lock(repoName)
	defer unlock()

	staged, committed, err := s.diffSides(repoName)
	if err != nil {
		return nil, err
	}
	if len(staged) == 0 {
		return nil, nil
	}

	paths := make(map[string]struct{}, len(staged)+len(committed))
	for p := range staged {
		paths[p] = struct{}{}
	}
	for p := range committed {
		paths[p] = struct{}{}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var diffs []FileDiff
	for _, p := range sorted {
		d, err := s.diffPath(p, staged, committed)
		if err != nil {
			return nil, err
		}
		if d != nil {
			diffs = append(diffs, *d)
		}
	}

	s.logger.Debug("diff computed", "repo", repoName, "changes", len(diffs))
	return diffs, nil
}

// DiffFile compares one path using the same rules as Diff. It returns nil
// when the path is unchanged or nothing is staged, and ErrFileNotFound when the path is neither
// staged nor in the latest commit.
func (s *VCSService) DiffFile(repoName string, filePath string) (*FileDiff, error) {
	normalized, err := NormalizePath(filePath)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(repoName)
	defer unlock()

	staged, committed, err := s.diffSides(repoName)
	if err != nil {
		return nil, err
	}

	_, inStaged := staged[normalized]
	_, inCommitted := committed[normalized]
	if !inStaged && !inCommitted {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, normalized)
	}
	if len(staged) == 0 {
		return nil, nil
	}

	return s.diffPath(normalized, staged, committed)
}

// diffSides builds the staged and committed path maps for a repository.
func (s *VCSService) diffSides(repoName string) (staged, committed map[string]model.FileVersion, err error) {
	repo, err := s.loadRepository(repoName)
	if err != nil {
		return nil, nil, err
	}

	staging, err := s.loadStaging(repoName)
	if err != nil {
		return nil, nil, err
	}

	staged = make(map[string]model.FileVersion, staging.Len())
	for _, f := range staging.Files {
		staged[f.Path] = f
	}

	committed = map[string]model.FileVersion{}
	if latest := repo.LatestCommit(); latest != nil {
		committed = latest.FileMap()
	}
	return staged, committed, nil
}

// diffPath produces the FileDiff for p, or nil when both sides hash equal.
func (s *VCSService) diffPath(p string, staged, committed map[string]model.FileVersion) (*FileDiff, error) {
	newV, inStaged := staged[p]
	oldV, inCommitted := committed[p]

	var status ChangeStatus
	switch {
	case inStaged && !inCommitted:
		status = StatusNew
	case inStaged && inCommitted:
		if newV.ContentHash == oldV.ContentHash {
			return nil, nil
		}
		status = StatusModified
	case inCommitted:
		status = StatusDeleted
	default:
		return nil, nil
	}

	var oldContent, newContent []byte
	var err error
	if inCommitted {
		if oldContent, err = s.readContent(oldV.ContentHash); err != nil {
			return nil, err
		}
	}
	if inStaged {
		if newContent, err = s.readContent(newV.ContentHash); err != nil {
			return nil, err
		}
	}

	d := &FileDiff{Path: p, Status: status}
	if !utf8.Valid(oldContent) || !utf8.Valid(newContent) {
		d.IsBinary = true
		d.Diff = BinaryPlaceholder
		return d, nil
	}

	fromFile, toFile := "a/"+p, "b/"+p
	if status == StatusNew {
		fromFile = "/dev/null"
	}
	if status == StatusDeleted {
		toFile = "/dev/null"
	}

	text, err := UnifiedDiff(string(oldContent), string(newContent), fromFile, toFile)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", p, err)
	}
	d.Diff = text
	return d, nil
}

// UnifiedDiff renders a line-based unified diff between two texts.
func UnifiedDiff(from, to, fromFile, toFile string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(from),
		B:        splitLines(to),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  diffContext,
	})
}

// splitLines splits text into lines that each end in "\n". Empty text has
// no lines, so diffs against an absent side are pure additions or removals.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
