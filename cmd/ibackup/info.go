package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richinfante/ibackuptool-go/internal/backup"
)

var flagVerbose bool

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Print a backup's Info/Status/Manifest summary and domain list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		b, err := backup.Open(args[0], backup.Options{
			UseOldFileConvention: cfg.UseOldFileConvention,
			BypassManifest:       cfg.BypassManifest,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Device:     %s (%s)\n", b.Info.DisplayName, b.Info.ProductType)
		fmt.Printf("Serial:     %s\n", b.Info.SerialNumber)
		fmt.Printf("UUID:       %s\n", b.Status.UUID)
		fmt.Printf("Full backup: %v\n", b.Status.IsFullBackup)
		fmt.Printf("Encrypted:  %v\n", b.Manifest.IsEncrypted)
		fmt.Printf("Date:       %s\n", b.Manifest.Date)
		if root, ok := b.ArchiveRoot(); ok && root != "" {
			fmt.Printf("Archive root: %s\n", root)
		}

		if b.Encrypted() {
			if !flagVerbose {
				return nil
			}
			passcode, err := resolvePasscode(flagPassword, flagPasswordStdin)
			if err != nil {
				return err
			}
			if err := b.ParseKeyBag(); err != nil {
				return err
			}
			fmt.Printf("Key bag UUID: %s\n", b.KeyBagUUID())
			fmt.Printf("Class keys:   %d\n", b.KeyBagClassCount())
			if err := b.Unlock(passcode); err != nil {
				return err
			}
			if err := b.UnlockManifestKey(); err != nil {
				return err
			}
		}

		if err := b.LoadCatalog(); err != nil {
			return err
		}
		domains := b.Domains()
		fmt.Printf("Domains (%d):\n", len(domains))
		for _, d := range domains {
			fmt.Printf("  %s\n", d)
		}

		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "include key bag details and domain list (resolves a passcode for encrypted backups)")
	infoCmd.Flags().StringVar(&flagPassword, "password", "", "backup passcode (insecure: visible in process list)")
	infoCmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read passcode as one line from stdin")
}
