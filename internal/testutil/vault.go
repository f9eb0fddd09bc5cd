package testutil

import (
	"vcs-go/internal/encryption"
	"vcs-go/internal/vault"
	"vcs-go/internal/vcs"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// NewEncryptedTestVault wraps an in-memory vault with the test encryptor.
// The inner vault is returned so tests can inspect the stored ciphertext.
func NewEncryptedTestVault() (*vault.EncryptedVault, *vault.MemoryVault) {
	inner := NewTestVault()
	enc := encryption.NewTestEncryptor()
	v := vault.NewEncryptedVault(inner, enc, func() (vcs.DecryptionContext, error) {
		return enc.Unlock("")
	})
	return v, inner
}
