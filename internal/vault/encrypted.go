package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"vcs-go/internal/vcs"
)

// UnlockFunc produces the DecryptionContext for an EncryptedVault. It is
// called at most once successfully, on the first read.
type UnlockFunc func() (vcs.DecryptionContext, error)

// EncryptedVault encrypts content before handing it to an inner vault and
// decrypts it on the way out. Objects stay addressed by the plaintext
// checksum, so staging and diffs are unaffected by encryption.
type EncryptedVault struct {
	inner     vcs.Vault
	encryptor vcs.Encryptor
	unlock    UnlockFunc

	mu      sync.Mutex
	decrypt vcs.DecryptionContext
}

// NewEncryptedVault wraps inner. unlock is only invoked when content is read,
// so write-only sessions (staging, committing) never need the passphrase.
func NewEncryptedVault(inner vcs.Vault, encryptor vcs.Encryptor, unlock UnlockFunc) *EncryptedVault {
	return &EncryptedVault{inner: inner, encryptor: encryptor, unlock: unlock}
}

// PutContent encrypts the plaintext from r and stores the ciphertext.
func (v *EncryptedVault) PutContent(checksum string, r io.Reader, size int64) error {
	counter := &countingReader{r: r}
	var ciphertext bytes.Buffer
	if err := v.encryptor.Encrypt(counter, &ciphertext); err != nil {
		return fmt.Errorf("encrypting content: %w", err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return v.inner.PutContent(checksum, &ciphertext, int64(ciphertext.Len()))
}

// GetContent streams the ciphertext from the inner vault through the
// decryptor into w.
func (v *EncryptedVault) GetContent(checksum string, w io.Writer) error {
	dc, err := v.decryptionContext()
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	vaultErrCh := make(chan error, 1)
	go func() {
		err := v.inner.GetContent(checksum, pw)
		pw.CloseWithError(err)
		vaultErrCh <- err
	}()

	decryptErr := dc.Decrypt(pr, w)
	pr.CloseWithError(decryptErr) // unblock the writer if Decrypt stopped early
	vaultErr := <-vaultErrCh

	if vaultErr != nil {
		return vaultErr
	}
	if decryptErr != nil {
		return fmt.Errorf("decrypting content %s: %w", checksum, decryptErr)
	}
	return nil
}

// ValidateSetup checks the inner vault and that encryption keys exist.
func (v *EncryptedVault) ValidateSetup() error {
	if !v.encryptor.IsConfigured() {
		return fmt.Errorf("encryption is enabled but keys are not configured; run 'vcs config init'")
	}
	return v.inner.ValidateSetup()
}

func (v *EncryptedVault) decryptionContext() (vcs.DecryptionContext, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.decrypt != nil {
		return v.decrypt, nil
	}
	if v.unlock == nil {
		return nil, fmt.Errorf("content is encrypted but no passphrase was provided")
	}
	dc, err := v.unlock()
	if err != nil {
		return nil, fmt.Errorf("unlocking encryption key: %w", err)
	}
	v.decrypt = dc
	return dc, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that EncryptedVault implements vcs.Vault interface
var _ vcs.Vault = (*EncryptedVault)(nil)
