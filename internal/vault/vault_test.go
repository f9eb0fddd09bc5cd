package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"vcs-go/internal/encryption"
	"vcs-go/internal/vcs"
)

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// testVaultContract exercises the behavior every vcs.Vault must share.
func testVaultContract(t *testing.T, newVault func(t *testing.T) vcs.Vault) {
	t.Run("round trip", func(t *testing.T) {
		v := newVault(t)
		for _, content := range []string{"hello world", "", strings.Repeat("x", 10000)} {
			if err := v.PutContent(sum(content), strings.NewReader(content), int64(len(content))); err != nil {
				t.Fatalf("PutContent(%d bytes) error = %v", len(content), err)
			}
			var buf bytes.Buffer
			if err := v.GetContent(sum(content), &buf); err != nil {
				t.Fatalf("GetContent(%d bytes) error = %v", len(content), err)
			}
			if buf.String() != content {
				t.Errorf("GetContent() returned %d bytes, want %d", buf.Len(), len(content))
			}
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		v := newVault(t)
		content := "same bytes"
		for i := 0; i < 2; i++ {
			if err := v.PutContent(sum(content), strings.NewReader(content), int64(len(content))); err != nil {
				t.Fatalf("PutContent() run %d error = %v", i+1, err)
			}
		}
		var buf bytes.Buffer
		if err := v.GetContent(sum(content), &buf); err != nil || buf.String() != content {
			t.Errorf("GetContent() = %q, %v, want %q", buf.String(), err, content)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		v := newVault(t)
		err := v.GetContent(sum("never stored"), &bytes.Buffer{})
		if !errors.Is(err, vcs.ErrContentNotFound) {
			t.Errorf("GetContent() error = %v, want ErrContentNotFound", err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		err := v.PutContent(sum("test"), strings.NewReader("test"), 14)
		if err == nil || !strings.Contains(err.Error(), "size mismatch") {
			t.Errorf("PutContent() error = %v, want size mismatch", err)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := newVault(t).ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestMemoryVault(t *testing.T) {
	testVaultContract(t, func(*testing.T) vcs.Vault { return NewMemoryVault("test") })
}

func TestFileSystemVault(t *testing.T) {
	testVaultContract(t, func(t *testing.T) vcs.Vault {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		return v
	})
}

func TestEncryptedVault(t *testing.T) {
	testVaultContract(t, func(*testing.T) vcs.Vault {
		enc := encryption.NewTestEncryptor()
		return NewEncryptedVault(NewMemoryVault("inner"), enc, func() (vcs.DecryptionContext, error) {
			return enc.Unlock("")
		})
	})
}

func TestMemoryVault_Len(t *testing.T) {
	v := NewMemoryVault("test")
	for _, content := range []string{"a", "b", "a"} {
		if err := v.PutContent(sum(content), strings.NewReader(content), 1); err != nil {
			t.Fatalf("PutContent(%q) error = %v", content, err)
		}
	}
	if v.Len() != 2 {
		t.Errorf("Len() = %d, want 2", v.Len())
	}
}
