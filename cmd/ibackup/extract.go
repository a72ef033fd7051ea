package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDomain string
	flagPath   string
	flagOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract <path>",
	Short: "Resolve one catalog record and write its decrypted bytes to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagDomain == "" || flagPath == "" || flagOutput == "" {
			return fmt.Errorf("--domain, --path, and -o/--output are all required")
		}

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

		rec, ok := b.FindByPath(flagDomain, flagPath)
		if !ok {
			return fmt.Errorf("no record for domain %q path %q", flagDomain, flagPath)
		}

		data, err := b.ReadFile(rec)
		if err != nil {
			return err
		}

		if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		fmt.Printf("wrote %d bytes to %s\n", len(data), flagOutput)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&flagPassword, "password", "", "backup passcode (insecure: visible in process list)")
	extractCmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "read passcode as one line from stdin")
	extractCmd.Flags().StringVar(&flagDomain, "domain", "", "catalog domain of the file to extract")
	extractCmd.Flags().StringVar(&flagPath, "path", "", "relative path within the domain")
	extractCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file path")
}
