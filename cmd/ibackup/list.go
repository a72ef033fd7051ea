package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richinfante/ibackuptool-go/internal/backup"
	"github.com/richinfante/ibackuptool-go/internal/util"
)

var listCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "Load the catalog and print (domain, relative_path, file_id, size) rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openAndUnlock(cmd, args[0])
		if err != nil {
			return err
		}

		if err := b.LoadCatalog(); err != nil {
			return err
		}
		if err := b.UnwrapAllFileKeys(); err != nil {
			return err
		}

		for _, rec := range b.Records() {
			var size int64
			if rec.FileInfo != nil {
				size = int64(rec.FileInfo.Size)
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", rec.Domain, rec.RelativePath, rec.FileID, util.Sizeify(size))
		}
		return nil
	},
}

// openAndUnlock opens the backup at path and, if it is encrypted, resolves
// a passcode and unlocks the key bag and manifest key. Shared by list and
// extract, which both need a readable catalog.
func openAndUnlock(cmd *cobra.Command, path string) (*backup.Backup, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	b, err := backup.Open(path, backup.Options{
		UseOldFileConvention: cfg.UseOldFileConvention,
		BypassManifest:       cfg.BypassManifest,
	})
	if err != nil {
		return nil, err
	}
	if !b.Encrypted() {
		return b, nil
	}

	passcode, err := resolvePasscode(flagPassword, flagPasswordStdin)
	if err != nil {
		return nil, err
	}
	if err := b.ParseKeyBag(); err != nil {
		return nil, err
	}
	if err := b.Unlock(passcode); err != nil {
		return nil, err
	}
	if err := b.UnlockManifestKey(); err != nil {
		return nil, err
	}
	return b, nil
}

func init() {
	listCmd.Flags().StringVar(&flagPassword, "password", "", "backup passcode (insecure: visible in process list)")
	listCmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read passcode as one line from stdin")
}
