package encryption

import (
	"testing"

	"vcs-go/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EncryptionConfig
		wantErr bool
		wantNil bool
	}{
		{name: "empty type disables encryption", cfg: config.EncryptionConfig{}, wantNil: true},
		{name: "none disables encryption", cfg: config.EncryptionConfig{Type: "none"}, wantNil: true},
		{name: "age", cfg: config.EncryptionConfig{Type: "age", PublicKeyPath: "/k/vcs.pub", PrivateKeyPath: "/k/vcs.key"}},
		{name: "age without key paths", cfg: config.EncryptionConfig{Type: "age"}, wantErr: true, wantNil: true},
		{name: "test", cfg: config.EncryptionConfig{Type: "test"}},
		{name: "unknown", cfg: config.EncryptionConfig{Type: "rot13"}, wantErr: true, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("NewEncryptorFromConfig() = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}
