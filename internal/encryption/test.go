package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"vcs-go/internal/vcs"
)

// testHeader marks content written by TestEncryptor.
var testHeader = []byte("VCSENC\x00\x00")

// testMask is XOR-ed into every byte so ciphertext never contains the plaintext.
const testMask = 0x5a

// ErrWrongPassphrase is returned by TestEncryptor.Unlock for a passphrase
// other than the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor is a deterministic, trivially reversible encryptor for tests
// and for exercising the encrypted vault without key files. Ciphertext is a
// fixed header followed by the plaintext XOR-ed with a constant mask.
//
// Before Setup any passphrase unlocks; after Setup only the one given to it.
type TestEncryptor struct {
	passphrase *string
}

var _ vcs.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = &passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, &maskReader{r: r}); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (vcs.DecryptionContext, error) {
	if e.passphrase != nil && *e.passphrase != passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext reverses TestEncryptor.
type TestDecryptionContext struct{}

var _ vcs.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(testHeader))
	if err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := br.Discard(len(testHeader)); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if _, err := io.Copy(w, &maskReader{r: br}); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

type maskReader struct {
	r io.Reader
}

func (m *maskReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	for i := range p[:n] {
		p[i] ^= testMask
	}
	return n, err
}
