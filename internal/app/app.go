package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vcs-go/internal/config"
	"vcs-go/internal/database"
	"vcs-go/internal/encryption"
	"vcs-go/internal/fs"
	"vcs-go/internal/vault"
	"vcs-go/internal/vcs"
)

// PassphraseFunc supplies the passphrase that unlocks encrypted content.
// It is only called when encrypted content is read.
type PassphraseFunc func() (string, error)

// Options configures a VCSApp beyond what the config file holds.
type Options struct {
	Operation  string         // CLI command being run, e.g. "Commit"
	Passphrase PassphraseFunc // nil when no passphrase source is available
	Stderr     io.Writer      // log output for warnings; os.Stderr when nil
	Verbose    bool           // log every level to Stderr
}

// VCSApp is the application layer between the CLI and VCSService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type VCSApp struct {
	cfg       *config.Config
	db        vcs.Database
	vault     vcs.Vault
	encryptor vcs.Encryptor
	service   *vcs.VCSService
	clock     vcs.Clock
	op        *Operation
	logger    *slogAdapter
	logFile   *os.File
}

// migrationChecker is implemented by databases with a versioned schema.
type migrationChecker interface {
	CheckMigrations() error
}

// backupper is implemented by databases that can snapshot themselves to a file.
type backupper interface {
	BackupTo(path string) error
}

// NewVCSApp creates a fully wired VCSApp from the given config.
// The caller must call Close when done.
func NewVCSApp(cfg *config.Config, opts Options) (*VCSApp, error) {
	clock := vcs.RealClock{}
	op := NewOperation(opts.Operation, clock.Now())

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, stderr, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := wire(cfg, opts.Passphrase, &slogAdapter{l: logger}, clock)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.op = op
	a.logFile = logFile
	return a, nil
}

func wire(cfg *config.Config, passphrase PassphraseFunc, logger *slogAdapter, clock vcs.Clock) (*VCSApp, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if mc, ok := db.(migrationChecker); ok {
		if err := mc.CheckMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		if !enc.IsConfigured() {
			db.Close()
			return nil, fmt.Errorf("encryption enabled but no keys found: run 'vcs config encryption init'")
		}
		v = vault.NewEncryptedVault(v, enc, unlocker(enc, passphrase))
	}

	svc := vcs.NewVCSService(db, v, fsmgr, logger, clock, vcs.UUIDGenerator{}, cfg.Staging.MaxSize)

	return &VCSApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		service:   svc,
		clock:     clock,
		logger:    logger,
	}, nil
}

// unlocker adapts a passphrase source to the vault's lazy unlock hook.
func unlocker(enc vcs.Encryptor, passphrase PassphraseFunc) vault.UnlockFunc {
	return func() (vcs.DecryptionContext, error) {
		if passphrase == nil {
			return nil, fmt.Errorf("content is encrypted but no passphrase was provided")
		}
		p, err := passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return enc.Unlock(p)
	}
}

// record notes a call on the operation and passes err through.
func (a *VCSApp) record(parameters string, err error) error {
	if a.op != nil {
		a.op.Record(parameters, err)
	}
	return err
}

// CreateRepository creates a new, empty repository.
func (a *VCSApp) CreateRepository(name string) error {
	return a.record(name, a.service.CreateRepository(name))
}

// DeleteRepository deletes a repository with its history and staging area.
func (a *VCSApp) DeleteRepository(name string) error {
	return a.record(name, a.service.DeleteRepository(name))
}

// ListRepositories returns all repository names, sorted.
func (a *VCSApp) ListRepositories() ([]string, error) {
	names, err := a.service.ListRepositories()
	return names, a.record("", err)
}

// Stage resolves rawPath and stages the file or directory it names.
// When as is non-empty the content is staged under that repository path.
func (a *VCSApp) Stage(repoName string, rawPath string, as string) ([]vcs.StagedFile, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, a.record(rawPath, fmt.Errorf("resolving path: %w", err))
	}

	var staged []vcs.StagedFile
	if as == "" {
		staged, err = a.service.Stage(repoName, absPath)
	} else {
		staged, err = a.service.StageAs(repoName, absPath, as)
	}
	return staged, a.record(repoName+" "+absPath, err)
}

// Unstage removes one staged path.
func (a *VCSApp) Unstage(repoName string, path string) error {
	return a.record(repoName+" "+path, a.service.Unstage(repoName, path))
}

// UnstageAll removes every staged path starting with prefix, or all of them
// when prefix is empty.
func (a *VCSApp) UnstageAll(repoName string, prefix string) (int, error) {
	n, err := a.service.UnstageAll(repoName, prefix)
	return n, a.record(repoName+" "+prefix, err)
}

// ListStaged returns the staging area's entries.
func (a *VCSApp) ListStaged(repoName string) ([]vcs.StagedFile, error) {
	files, err := a.service.ListStaged(repoName)
	return files, a.record(repoName, err)
}

// Commit records staging as a new commit and returns its ID.
func (a *VCSApp) Commit(repoName string, message string, author string) (string, error) {
	id, err := a.service.Commit(repoName, message, author)
	return id, a.record(repoName, err)
}

// History returns the repository's commits, oldest first.
func (a *VCSApp) History(repoName string) ([]vcs.CommitSummary, error) {
	commits, err := a.service.History(repoName)
	return commits, a.record(repoName, err)
}

// FileLog returns every committed version of one path, newest first.
func (a *VCSApp) FileLog(repoName string, path string) ([]*vcs.FileHistoryEntry, error) {
	entries, err := a.service.FileLog(repoName, path)
	return entries, a.record(repoName+" "+path, err)
}

// Diff compares staging against the latest commit. A non-empty path limits
// the comparison to that path.
func (a *VCSApp) Diff(repoName string, path string) ([]vcs.FileDiff, error) {
	if path == "" {
		diffs, err := a.service.Diff(repoName)
		return diffs, a.record(repoName, err)
	}

	d, err := a.service.DiffFile(repoName, path)
	if err != nil || d == nil {
		return nil, a.record(repoName+" "+path, err)
	}
	return []vcs.FileDiff{*d}, a.record(repoName+" "+path, nil)
}

// Rollback restores committed content into staging. See vcs.VCSService.Rollback.
func (a *VCSApp) Rollback(repoName string, path string, commitID string) (*vcs.RollbackResult, error) {
	res, err := a.service.Rollback(repoName, path, commitID)
	return res, a.record(repoName+" "+path+" "+commitID, err)
}

// Clone writes the latest tree of a repository under targetParent/<repoName>.
func (a *VCSApp) Clone(repoName string, targetParent string) (int, error) {
	absTarget, err := filepath.Abs(targetParent)
	if err != nil {
		return 0, a.record(targetParent, fmt.Errorf("resolving path: %w", err))
	}
	n, err := a.service.Clone(repoName, absTarget)
	return n, a.record(repoName+" "+absTarget, err)
}

// CheckVault verifies that the configured vault is reachable.
func (a *VCSApp) CheckVault() error {
	return a.record(a.cfg.Vault.Name, a.vault.ValidateSetup())
}

// BackupDatabase writes a consistent snapshot of the database to destPath.
func (a *VCSApp) BackupDatabase(destPath string) error {
	b, ok := a.db.(backupper)
	if !ok {
		return a.record(destPath, fmt.Errorf("database type %q does not support backups", a.cfg.Database.Type))
	}
	absDest, err := filepath.Abs(destPath)
	if err != nil {
		return a.record(destPath, fmt.Errorf("resolving path: %w", err))
	}
	if err := b.BackupTo(absDest); err != nil {
		return a.record(absDest, fmt.Errorf("backing up database: %w", err))
	}
	a.logger.Info("database backed up", "dest", absDest)
	return a.record(absDest, nil)
}

// Close logs the operation outcome and closes all resources.
func (a *VCSApp) Close() error {
	if a.op != nil {
		a.logger.Debug("operation finished",
			"operation", a.op.Name,
			"params", a.op.Parameters,
			"status", a.op.Status,
			"duration", a.op.Duration(a.clock.Now()),
		)
	}

	var errs []error
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// InitEncryption generates the key pair for the configured encryptor,
// protecting the private key with passphrase.
func InitEncryption(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled: set encryption.type in the config first")
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	return nil
}

// passphraseChanger is implemented by encryptors whose private key is
// protected by a passphrase that can be rotated.
type passphraseChanger interface {
	ChangePassphrase(oldPassphrase, newPassphrase string) error
}

// ChangePassphrase re-protects the configured private key with a new passphrase.
func ChangePassphrase(cfg *config.Config, oldPassphrase, newPassphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	pc, ok := enc.(passphraseChanger)
	if !ok {
		return fmt.Errorf("encryption type %q has no passphrase to change", cfg.Encryption.Type)
	}
	if err := pc.ChangePassphrase(oldPassphrase, newPassphrase); err != nil {
		return fmt.Errorf("changing passphrase: %w", err)
	}
	return nil
}
