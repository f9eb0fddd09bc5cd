package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are always applied regardless of config or .vcsignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

type rule struct {
	glob     string
	anchored bool // compared with the whole slash-separated path instead of the basename
	dirOnly  bool
	negate   bool
}

func (r rule) matches(rel, base string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	target := base
	if r.anchored {
		target = rel
	}
	ok, err := path.Match(r.glob, target)
	return err == nil && ok
}

// IgnoreMatcher decides which paths a directory scan skips, using a
// .gitignore-like pattern language:
//
//	*.log       basename glob, matches at any depth
//	build/out   contains '/', matched against the path from the scan root
//	/notes.txt  leading '/' anchors a basename pattern to the scan root
//	cache/      trailing '/' matches directories only
//	!keep.log   re-includes a path an earlier pattern ignored
//
// Patterns are evaluated in order and the last one that matches decides.
type IgnoreMatcher struct {
	rules []rule
}

// NewIgnoreMatcher compiles raw pattern lines. Blank lines, '#' comments and
// patterns with invalid glob syntax are dropped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		var r rule
		if line[0] == '!' {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			r.anchored = true
			line = strings.TrimLeft(line, "/")
		}
		if line == "" {
			continue
		}
		if _, err := path.Match(line, ""); errors.Is(err, path.ErrBadPattern) {
			continue
		}
		r.glob = line
		r.anchored = r.anchored || strings.Contains(line, "/")
		m.rules = append(m.rules, r)
	}
	return m
}

// Match reports whether the file at relativePath should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.ignored(relativePath, false)
}

// MatchDir reports whether the directory at relativePath should be skipped.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.ignored(relativePath, true)
}

func (m *IgnoreMatcher) ignored(relativePath string, isDir bool) bool {
	if relativePath == "" {
		return false
	}
	rel := filepath.ToSlash(relativePath)
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, base, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile reads a .vcsignore file and returns its raw lines.
// A missing file yields no patterns and no error.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
