package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filippo.io/age"

	"vcs-go/internal/config"
	"vcs-go/internal/vcs"
)

// AgeEncryptor implements vcs.Encryptor using filippo.io/age with X25519 keys.
//
// The public key file is an age recipients file: one recipient per line,
// blank lines and "#" comments ignored. Content is encrypted to every
// recipient listed, so extra readers can be added by appending their keys.
// The private key file holds the identity generated by Setup, encrypted with
// a passphrase using age's scrypt recipient.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string

	mu         sync.Mutex
	recipients []age.Recipient
}

var _ vcs.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates a new AgeEncryptor from configuration.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a new X25519 key pair. Existing keys are never
// overwritten: content encrypted to them would become unreadable.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	if e.IsConfigured() {
		return fmt.Errorf("encryption keys already exist at %s", e.publicKeyPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	pub := fmt.Sprintf("# created %s\n%s\n", time.Now().UTC().Format(time.RFC3339), identity.Recipient())
	if err := os.WriteFile(e.publicKeyPath, []byte(pub), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	if err := writePrivateKey(e.privateKeyPath, identity.String(), passphrase, os.O_EXCL); err != nil {
		return err
	}
	return nil
}

// ChangePassphrase re-encrypts the private key under a new passphrase.
// The key pair itself is unchanged, so stored content stays readable.
func (e *AgeEncryptor) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	if newPassphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	identities, err := e.unlockIdentities(oldPassphrase)
	if err != nil {
		return err
	}

	var keys strings.Builder
	for _, id := range identities {
		x, ok := id.(*age.X25519Identity)
		if !ok {
			return fmt.Errorf("unsupported identity type %T in private key", id)
		}
		keys.WriteString(x.String())
		keys.WriteString("\n")
	}

	tmp := e.privateKeyPath + ".new"
	if err := writePrivateKey(tmp, strings.TrimSuffix(keys.String(), "\n"), newPassphrase, os.O_TRUNC); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, e.privateKeyPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing private key: %w", err)
	}
	return nil
}

// writePrivateKey encrypts keys with passphrase into path. flag is OR-ed
// into the create flags (os.O_EXCL or os.O_TRUNC).
func writePrivateKey(path, keys, passphrase string, flag int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|flag, 0600)
	if err != nil {
		return fmt.Errorf("creating private key file: %w", err)
	}
	defer f.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, keys+"\n"); err != nil {
		return fmt.Errorf("writing encrypted private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted private key: %w", err)
	}
	return f.Sync()
}

// Encrypt reads plaintext from r and writes ciphertext for every recipient in
// the public key file to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipients, err := e.loadRecipients()
	if err != nil {
		return fmt.Errorf("loading public key: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock decrypts the private key using the passphrase and returns an
// AgeDecryptionContext holding the unlocked identities.
func (e *AgeEncryptor) Unlock(passphrase string) (vcs.DecryptionContext, error) {
	identities, err := e.unlockIdentities(passphrase)
	if err != nil {
		return nil, err
	}
	return &AgeDecryptionContext{identities: identities}, nil
}

func (e *AgeEncryptor) unlockIdentities(passphrase string) ([]age.Identity, error) {
	privData, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(privData), scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}

	identities, err := age.ParseIdentities(decReader)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return identities, nil
}

// IsConfigured returns true if both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// loadRecipients parses the public key file once and caches the result.
func (e *AgeEncryptor) loadRecipients() ([]age.Recipient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recipients != nil {
		return e.recipients, nil
	}

	f, err := os.Open(e.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	defer f.Close()

	recipients, err := age.ParseRecipients(f)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	e.recipients = recipients
	return recipients, nil
}

// AgeDecryptionContext holds unlocked age identities for decrypting data.
type AgeDecryptionContext struct {
	identities []age.Identity
}

var _ vcs.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt reads age-encrypted ciphertext from r and writes plaintext to w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, c.identities...)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
