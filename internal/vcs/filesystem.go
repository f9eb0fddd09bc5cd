package vcs

import (
	"io"
	"io/fs"
)

// FilesystemManager abstracts access to the external filesystem that files are
// staged from.
type FilesystemManager interface {
	// Resolve makes rawPath absolute and stats it without following symlinks.
	// Only regular files and directories are accepted. A missing path yields
	// an error wrapping fs.ErrNotExist.
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// FindFiles walks root recursively and returns every regular file beneath
	// it that is not ignored.
	FindFiles(root *Path) ([]ScannedFile, error)
}

// Path is a resolved source path together with the file info captured when
// it was resolved. Only FilesystemManager implementations create them.
type Path struct {
	abs  string
	info fs.FileInfo
}

func NewPath(abs string, info fs.FileInfo) *Path {
	return &Path{abs: abs, info: info}
}

func (p *Path) String() string    { return p.abs }
func (p *Path) Info() fs.FileInfo { return p.info }
func (p *Path) IsDir() bool       { return p.info != nil && p.info.IsDir() }

// ScannedFile is a file discovered by FindFiles.
type ScannedFile struct {
	RelativePath string // relative to the scan root, forward slashes
	Path         *Path
}
