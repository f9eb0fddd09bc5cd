package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"vcs-go/internal/app"
	"vcs-go/internal/config"
	"vcs-go/internal/vcs"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passphraseEnv holds the passphrase for non-interactive use.
const passphraseEnv = "VCS_PASSPHRASE"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error's kind to the process exit status.
func exitCode(err error) int {
	switch vcs.KindOf(err) {
	case vcs.KindInvalid:
		return 2
	case vcs.KindNotFound:
		return 3
	case vcs.KindConflict:
		return 4
	case vcs.KindIOFailure:
		return 5
	default:
		return 1
	}
}

// newApp reads the config and creates a VCSApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Stage", "Commit").
func newApp(cmd *cobra.Command, operation string) (*app.VCSApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewVCSApp(cfg, app.Options{
		Operation:  operation,
		Passphrase: passphraseSource(),
		Stderr:     cmd.ErrOrStderr(),
		Verbose:    verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// passphraseSource returns the environment passphrase if set, a terminal
// prompt if stdin is a terminal, and nil otherwise.
func passphraseSource() app.PassphraseFunc {
	if p, ok := os.LookupEnv(passphraseEnv); ok {
		return func() (string, error) { return p, nil }
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func() (string, error) { return readPassphrase("Passphrase: ") }
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readNewPassphrase prompts for a passphrase twice and checks they match.
func readNewPassphrase() (string, error) {
	passphrase, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm != passphrase {
		return "", errors.New("passphrases do not match")
	}
	return passphrase, nil
}

var rootCmd = &cobra.Command{
	Use:          "vcs",
	Short:        "Minimal version control",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Vault:       %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Staging Max: %d bytes\n", cfg.Staging.MaxSize)
		if len(cfg.Filesystem.Ignore) > 0 {
			fmt.Printf("Ignore:      %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		}
		return nil
	},
}

var configEncryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage encryption keys",
}

var configEncryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		passphrase, ok := os.LookupEnv(passphraseEnv)
		if !ok {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("set %s or run from a terminal", passphraseEnv)
			}
			if passphrase, err = readNewPassphrase(); err != nil {
				return err
			}
		}

		if err := app.InitEncryption(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Encryption keys written to %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

var configEncryptionPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the passphrase protecting the private key",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("changing the passphrase requires a terminal")
		}

		oldPassphrase, err := readPassphrase("Current passphrase: ")
		if err != nil {
			return err
		}
		newPassphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}

		if err := app.ChangePassphrase(cfg, oldPassphrase, newPassphrase); err != nil {
			return err
		}
		fmt.Println("Passphrase changed")
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the content vault",
}

var vaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "CheckVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckVault(); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the repository database",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database written to %s\n", args[0])
		return nil
	},
}

// repo command
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories",
}

var repoCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "CreateRepository")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateRepository(args[0]); err != nil {
			return err
		}
		fmt.Printf("Repository %q created\n", args[0])
		return nil
	},
}

var repoDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a repository and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteRepository")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteRepository(args[0]); err != nil {
			return err
		}
		fmt.Printf("Repository %q deleted\n", args[0])
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListRepositories")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListRepositories()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No repositories.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add REPO PATH",
	Short: "Stage a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		as, _ := cmd.Flags().GetString("as")

		a, err := newApp(cmd, "Stage")
		if err != nil {
			return err
		}
		defer a.Close()

		staged, err := a.Stage(args[0], args[1], as)
		if err != nil {
			return fmt.Errorf("staging: %w", err)
		}
		for _, f := range staged {
			fmt.Printf("staged  %s\n", f.Path)
		}
		fmt.Printf("Staged %d file(s)\n", len(staged))
		return nil
	},
}

// unstage command
var unstageCmd = &cobra.Command{
	Use:   "unstage REPO [PATH]",
	Short: "Remove files from the staging area",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		prefix, _ := cmd.Flags().GetString("prefix")

		if len(args) == 2 && (all || prefix != "") {
			return errors.New("PATH cannot be combined with --all or --prefix")
		}
		if len(args) == 1 && !all && prefix == "" {
			return errors.New("specify a PATH, --prefix or --all")
		}

		a, err := newApp(cmd, "Unstage")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 2 {
			if err := a.Unstage(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Unstaged %s\n", args[1])
			return nil
		}

		n, err := a.UnstageAll(args[0], prefix)
		if err != nil {
			return err
		}
		fmt.Printf("Unstaged %d file(s)\n", n)
		return nil
	},
}

// staged command
var stagedCmd = &cobra.Command{
	Use:   "staged REPO",
	Short: "List staged files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListStaged")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListStaged(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("Nothing staged.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %10d  %s\n", shortHash(f.Hash), f.Size, f.Path)
		}
		return nil
	},
}

// commit command
var commitCmd = &cobra.Command{
	Use:   "commit REPO",
	Short: "Record the staging area as a new commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		author, _ := cmd.Flags().GetString("author")

		a, err := newApp(cmd, "Commit")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Commit(args[0], message, author)
		if err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		fmt.Printf("Committed %s\n", id)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history REPO",
	Short: "View commit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showFiles, _ := cmd.Flags().GetBool("files")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		commits, err := a.History(args[0])
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			fmt.Println("No commits.")
			return nil
		}

		for i := len(commits) - 1; i >= 0; i-- {
			c := commits[i]
			fmt.Printf("%s  %s  %-12s  %3d file(s)  %s\n",
				c.ID,
				c.Timestamp.Format("2006-01-02 15:04:05"),
				c.Author,
				c.FileCount,
				c.Message,
			)
			if showFiles {
				for _, f := range c.Files {
					fmt.Printf("    %s  %s\n", shortHash(f.Hash), f.Path)
				}
			}
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log REPO PATH",
	Short: "View the history of one file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "FileLog")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.FileLog(args[0], args[1])
		if err != nil {
			return err
		}

		for _, e := range entries {
			current := ""
			if e.IsCurrent {
				current = "  [current]"
			}
			fmt.Printf("%s  %s  %s  %d  %s%s\n",
				shortHash(e.ContentChecksum),
				e.CommitID,
				e.CommittedAt.Format("2006-01-02 15:04:05"),
				e.Size,
				e.Message,
				current,
			)
		}
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff REPO [PATH]",
	Short: "Compare staged files with the latest commit",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 2 {
			path = args[1]
		}

		a, err := newApp(cmd, "Diff")
		if err != nil {
			return err
		}
		defer a.Close()

		diffs, err := a.Diff(args[0], path)
		if err != nil {
			return err
		}
		if len(diffs) == 0 {
			fmt.Println("No changes.")
			return nil
		}
		for _, d := range diffs {
			fmt.Printf("%s: %s\n", d.Status, d.Path)
			fmt.Print(d.Diff)
			if !strings.HasSuffix(d.Diff, "\n") {
				fmt.Println()
			}
		}
		return nil
	},
}

// rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback REPO [PATH]",
	Short: "Restore committed content into the staging area",
	Long: `Restore committed content into the staging area.

With PATH, the file's version from --commit (default: the latest commit) is staged.
Without PATH and with --commit, staging is replaced by that commit's files.
Without PATH or --commit, the latest commit is discarded and staging is set
to the previous commit's files.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commitID, _ := cmd.Flags().GetString("commit")
		path := ""
		if len(args) == 2 {
			path = args[1]
		}

		a, err := newApp(cmd, "Rollback")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Rollback(args[0], path, commitID)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if res.CommitID == "" {
			fmt.Println("History cleared; staging area is empty")
			return nil
		}
		fmt.Printf("Staged %d file(s) from commit %s\n", res.FileCount, res.CommitID)
		return nil
	},
}

// clone command
var cloneCmd = &cobra.Command{
	Use:   "clone REPO TARGET",
	Short: "Write the latest version of every file to TARGET/REPO",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Clone")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Clone(args[0], args[1])
		if err != nil {
			return fmt.Errorf("clone failed: %w", err)
		}
		fmt.Printf("Wrote %d file(s)\n", n)
		return nil
	},
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log all levels to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEncryptionCmd)
	configEncryptionCmd.AddCommand(configEncryptionInitCmd)
	configEncryptionCmd.AddCommand(configEncryptionPasswdCmd)

	vaultCmd.AddCommand(vaultCheckCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// repo subcommands
	repoCmd.AddCommand(repoCreateCmd)
	repoCmd.AddCommand(repoDeleteCmd)
	repoCmd.AddCommand(repoListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().String("as", "", "Repository path (file) or prefix (directory) to stage under")
	rootCmd.AddCommand(unstageCmd)
	unstageCmd.Flags().Bool("all", false, "Unstage everything")
	unstageCmd.Flags().String("prefix", "", "Unstage every path starting with this prefix")
	rootCmd.AddCommand(stagedCmd)
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.Flags().String("author", "", "Commit author (default \"Unknown\")")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("files", false, "List the files in each commit")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().String("commit", "", "Commit ID to restore from")
	rootCmd.AddCommand(cloneCmd)
}
