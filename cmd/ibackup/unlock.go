package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richinfante/ibackuptool-go/internal/backup"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Parse and unlock a backup's key bag with a passcode",
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

		if !b.Encrypted() {
			fmt.Println("backup does not require unlocking; nothing to do")
			return nil
		}

		passcode, err := resolvePasscode(flagPassword, flagPasswordStdin)
		if err != nil {
			return err
		}

		if err := b.ParseKeyBag(); err != nil {
			return err
		}
		if err := b.Unlock(passcode); err != nil {
			return err
		}
		if err := b.UnlockManifestKey(); err != nil {
			return err
		}

		fmt.Println("unlocked successfully")
		return nil
	},
}

func init() {
	unlockCmd.Flags().StringVar(&flagPassword, "password", "", "backup passcode (insecure: visible in process list)")
	unlockCmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read passcode as one line from stdin")
}
