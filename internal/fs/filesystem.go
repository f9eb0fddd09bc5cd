package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"vcs-go/internal/vcs"
)

// IgnoreFileName is the per-directory ignore file read from the scan root.
const IgnoreFileName = ".vcsignore"

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignorePatterns []string
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
// ignorePatterns are applied to every directory scan in addition to the
// scan root's .vcsignore file.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignorePatterns: ignorePatterns}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*vcs.Path, error) {
	// Convert to absolute path
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return vcs.NewPath(absPath, info), nil
}

// mappedFile reads a memory-mapped file sequentially.
type mappedFile struct {
	*io.SectionReader
	mapping *mmap.ReaderAt
}

func (f *mappedFile) Close() error { return f.mapping.Close() }

// Open maps a file read-only and returns a sequential reader over it.
func (m *OSFilesystemManager) Open(path *vcs.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	r, err := mmap.Open(path.String())
	if err != nil {
		return nil, fmt.Errorf("mapping file: %w", err)
	}
	return &mappedFile{SectionReader: io.NewSectionReader(r, 0, int64(r.Len())), mapping: r}, nil
}

// FindFiles walks root recursively and returns every regular file beneath
// it in lexical order, with forward-slash paths relative to root. Entries
// matching the configured patterns or the root's .vcsignore are skipped;
// an ignored directory is skipped entirely.
func (m *OSFilesystemManager) FindFiles(root *vcs.Path) ([]vcs.ScannedFile, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	matcher, err := m.matcherFor(root.String())
	if err != nil {
		return nil, err
	}

	var files []vcs.ScannedFile
	err = filepath.WalkDir(root.String(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root.String(), p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		if d.IsDir() {
			if rel != "." && matcher.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, vcs.ScannedFile{
			RelativePath: filepath.ToSlash(rel),
			Path:         vcs.NewPath(p, info),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// matcherFor combines the default, configured and .vcsignore patterns for a scan root.
func (m *OSFilesystemManager) matcherFor(root string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(m.ignorePatterns)+len(fromFile))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, m.ignorePatterns...)
	patterns = append(patterns, fromFile...)
	return NewIgnoreMatcher(patterns), nil
}

// Compile-time check that OSFilesystemManager implements vcs.FilesystemManager interface
var _ vcs.FilesystemManager = (*OSFilesystemManager)(nil)
