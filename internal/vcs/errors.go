package vcs

import "errors"

// ErrorKind classifies a failure so callers (CLI, HTTP layers) can map it
// to an exit code or status without matching on individual errors.
type ErrorKind uint8

const (
	KindUnknown   ErrorKind = iota
	KindNotFound            // repository, commit, or file absent
	KindConflict            // duplicate name, nothing to commit, no history
	KindInvalid             // bad input: empty message, malformed path or name
	KindIOFailure           // source unreadable, target uncreatable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Error is a sentinel error tagged with its kind. Operations wrap these with
// fmt.Errorf("...: %w", ...) so errors.Is and KindOf keep working.
type Error struct {
	kind ErrorKind
	msg  string
}

func (e *Error) Error() string   { return e.msg }
func (e *Error) Kind() ErrorKind { return e.kind }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

var (
	ErrRepositoryNotFound = newError(KindNotFound, "repository not found")
	ErrCommitNotFound     = newError(KindNotFound, "commit not found")
	ErrFileNotInCommit    = newError(KindNotFound, "file not found in commit")
	ErrFileNotFound       = newError(KindNotFound, "file not found")
	ErrNotStaged          = newError(KindNotFound, "file not found in staging area")

	ErrRepositoryExists = newError(KindConflict, "repository already exists")
	ErrNothingStaged    = newError(KindConflict, "no files staged for commit")
	ErrNoCommits        = newError(KindConflict, "no previous commits found")
	ErrStagingFull      = newError(KindConflict, "staging area full")

	ErrEmptyMessage   = newError(KindInvalid, "commit message is required")
	ErrInvalidName    = newError(KindInvalid, "repository name can only contain letters, numbers, hyphens and underscores")
	ErrInvalidPath    = newError(KindInvalid, "invalid path")
	ErrNothingMatched = newError(KindInvalid, "no staged files match prefix")

	ErrPathNotFound = newError(KindIOFailure, "source path does not exist")
	ErrTargetPath   = newError(KindIOFailure, "target path cannot be created")

	// ErrContentNotFound is returned by vaults when no content is stored
	// under a checksum. The repository documents reference missing content.
	ErrContentNotFound = newError(KindIOFailure, "content not found in vault")
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}
