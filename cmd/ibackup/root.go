// Command ibackup is a thin cobra front end over internal/backup: open a
// backup, unlock it, list its catalog, or extract a single file. It is an
// external collaborator, not part of the programmatic API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/richinfante/ibackuptool-go/internal/bkerrors"
	"github.com/richinfante/ibackuptool-go/internal/config"
	"github.com/richinfante/ibackuptool-go/internal/log"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "ibackup",
	Short:   "Inspect and decrypt mobile device backups",
	Version: version,
}

var (
	flagPassword       string
	flagPasswordStdin  bool
	flagOldConvention  bool
	flagBypassManifest bool
	flagLogLevel       string
	flagConfigFile     string
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "optional YAML config file (IBACKUP_* env vars also apply)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "one of debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagOldConvention, "use-old-file-convention", false, "use the pre-content-addressed blob layout")
	rootCmd.PersistentFlags().BoolVar(&flagBypassManifest, "bypass-manifest", false, "skip manifest-key unwrap and treat the backup as unencrypted")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(extractCmd)
}

// loadConfig resolves Config for cmd — flags override IBACKUP_* environment
// variables, which override an optional --config file — and configures the
// package logger from the resolved LogLevel.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfigFile, cmd.Flags())
	if err != nil {
		return nil, bkerrors.Wrap(err, "load config")
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(levelName string) {
	level := log.LevelWarn
	switch levelName {
	case "debug":
		level = log.LevelDebug
	case "info":
		level = log.LevelInfo
	case "error":
		level = log.LevelError
	}
	log.SetLogger(log.NewSimpleLogger(os.Stderr, level))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// internalSentinels are the bkerrors sentinels that indicate a failure
// inside the backup core itself (malformed key bag, catalog, or state
// machine misuse) rather than a problem with the path the user gave.
var internalSentinels = []error{
	bkerrors.ErrMalformedKeyBag,
	bkerrors.ErrTruncatedRecord,
	bkerrors.ErrMissingDoubleProtection,
	bkerrors.ErrBadBlockSize,
	bkerrors.ErrShortBuffer,
	bkerrors.ErrIntegrityMismatch,
	bkerrors.ErrCatalogOpenFailed,
	bkerrors.ErrRowDecodeFailed,
	bkerrors.ErrInManifestButNotFound,
	bkerrors.ErrNoFileInfo,
	bkerrors.ErrNoEncryptionKey,
	bkerrors.ErrNotReady,
	bkerrors.ErrNotUnlocked,
}

// exitCodeFor classifies err per the documented exit code contract: 2 for a
// wrong passcode, 3 for a failure inside the backup core, 1 otherwise (a
// missing/non-backup path, or a plain cobra/CLI usage error).
func exitCodeFor(err error) int {
	switch {
	case bkerrors.Is(err, bkerrors.ErrWrongPasscode):
		return 2
	case isCoreError(err):
		return 3
	case isMissingPathError(err):
		return 1
	default:
		return 1
	}
}

func isMissingPathError(err error) bool {
	if bkerrors.Is(err, bkerrors.ErrMissingIndex) || bkerrors.Is(err, bkerrors.ErrNotABackup) || bkerrors.Is(err, bkerrors.ErrFileNotFound) {
		return true
	}
	var fileErr *bkerrors.FileError
	return bkerrors.As(err, &fileErr)
}

func isCoreError(err error) bool {
	var tlvErr *bkerrors.TlvError
	var keyBagErr *bkerrors.KeyBagError
	var stateErr *bkerrors.StateError
	if bkerrors.As(err, &tlvErr) || bkerrors.As(err, &keyBagErr) || bkerrors.As(err, &stateErr) {
		return true
	}
	for _, sentinel := range internalSentinels {
		if bkerrors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
