package vault

import (
	"path/filepath"
	"testing"

	"vcs-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.VaultConfig
		wantErr  bool
		wantNil  bool
		validate bool
	}{
		{
			name:     "memory vault",
			cfg:      config.VaultConfig{Type: "memory", Name: "test-memory"},
			validate: true,
		},
		{
			name: "s3 vault",
			cfg: config.VaultConfig{
				Type:     "s3",
				Name:     "test-s3",
				S3Bucket: "my-bucket",
				S3Region: "us-east-1",
			},
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:     "filesystem vault",
			cfg:      config.VaultConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: "ROOT"},
			validate: true,
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.FSVaultRoot == "ROOT" {
				tt.cfg.FSVaultRoot = filepath.Join(t.TempDir(), "vault")
			}

			got, err := NewVaultFromConfig(tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if (got == nil) != tt.wantNil {
				t.Errorf("NewVaultFromConfig() returned nil = %v, wantNil %v", got == nil, tt.wantNil)
			}

			if tt.validate {
				if err := got.ValidateSetup(); err != nil {
					t.Errorf("ValidateSetup() error = %v", err)
				}
			}
		})
	}
}
