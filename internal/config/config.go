package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultStagingMaxSize caps a staging area at 100MB of content unless configured.
const DefaultStagingMaxSize = 100 * 1024 * 1024

// Config represents the main configuration for vcs.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Staging    StagingConfig    `toml:"staging"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// EncryptionConfig selects at-rest encryption of vault content.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"` // patterns skipped when staging a directory
}

// VaultConfig represents configuration for the content store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`          // custom endpoint for S3-compatible stores
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`     // static credentials; default chain when empty
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"` // static credentials; default chain when empty

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the repository store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "bolt" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite and type=bolt
}

// StagingConfig represents configuration for staging areas.
type StagingConfig struct {
	MaxSize int64 `toml:"max_size"` // max total staged bytes per repository; zero or negative disables the limit
}

// NewConfig creates a new Config rooted at baseDir with default backends:
// a sqlite database, a filesystem vault and no encryption.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "vcs.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "vcs.key"),
		},
		Staging: StagingConfig{MaxSize: DefaultStagingMaxSize},
		Filesystem: FilesystemConfig{
			Ignore: []string{".git/", ".DS_Store"},
		},
	}
}

// Validate reports every backend setting that cannot be used, joined into one error.
// Unknown backend types are rejected here so a typo surfaces before any store is opened.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Type {
	case "memory":
	case "sqlite", "bolt":
		if c.Database.DataDir == "" {
			errs = append(errs, fmt.Errorf("database: data_dir is required for type %q", c.Database.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown type %q", c.Database.Type))
	}

	switch c.Vault.Type {
	case "memory":
	case "filesystem":
		if c.Vault.FSVaultRoot == "" {
			errs = append(errs, errors.New("vault: fs_vault_root is required for type \"filesystem\""))
		}
	case "s3":
		if c.Vault.S3Bucket == "" {
			errs = append(errs, errors.New("vault: s3_bucket is required for type \"s3\""))
		}
		if (c.Vault.S3AccessKeyID == "") != (c.Vault.S3SecretAccessKey == "") {
			errs = append(errs, errors.New("vault: s3_access_key_id and s3_secret_access_key must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("vault: unknown type %q", c.Vault.Type))
	}

	switch c.Encryption.Type {
	case "", "none", "test":
	case "age":
		if c.Encryption.PublicKeyPath == "" || c.Encryption.PrivateKeyPath == "" {
			errs = append(errs, errors.New("encryption: public_key_path and private_key_path are required for type \"age\""))
		}
	default:
		errs = append(errs, fmt.Errorf("encryption: unknown type %q", c.Encryption.Type))
	}

	for _, p := range c.Filesystem.Ignore {
		if strings.TrimSuffix(p, "/") == "" {
			errs = append(errs, fmt.Errorf("filesystem: empty ignore pattern %q", p))
		}
	}

	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path, creating parent directories.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
