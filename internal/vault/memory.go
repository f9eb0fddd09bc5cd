package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"vcs-go/internal/vcs"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Content is lost when the process exits, making it useful for testing
// and for the "memory" vault type. Safe for concurrent use.
type MemoryVault struct {
	name    string
	content map[string][]byte // checksum -> content
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

// PutContent stores content identified by its checksum.
func (m *MemoryVault) PutContent(checksum string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Identical checksums mean identical content; keep the first copy.
	if _, ok := m.content[checksum]; !ok {
		m.content[checksum] = data
	}
	return nil
}

// GetContent retrieves content by checksum.
func (m *MemoryVault) GetContent(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[checksum]
	if !ok {
		return fmt.Errorf("%w: %s", vcs.ErrContentNotFound, checksum)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}

	return nil
}

// Len returns the number of distinct content objects stored.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements vcs.Vault interface
var _ vcs.Vault = (*MemoryVault)(nil)
