package vcs

import "io"

// Vault stores file content addressed by its SHA-256 checksum.
// All operations stream through io.Reader/io.Writer so large files are not
// held in memory by the storage layer.
type Vault interface {
	// PutContent stores content identified by its checksum.
	// The operation is idempotent: storing the same checksum multiple times is safe.
	// size is the number of bytes that will be read from r.
	PutContent(checksum string, r io.Reader, size int64) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(checksum string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
