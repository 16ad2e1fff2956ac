package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/backup"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// backupInput is the path to a backup file for restore/verify.
	backupInput string
	// backupDecrypt makes verify also test decryption.
	backupDecrypt bool
)

// backupCmd is the parent command for backup operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage store backups",
	Long:  `Create, verify, and restore encrypted snapshots of the wallet store.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an encrypted store backup",
	Long: `Snapshot every wallet set into an encrypted backup file.

The file is written to <home>/backups/ with a timestamped name and is
encrypted with a password you choose. Mnemonics are inside, so keep
both the file and the password safe.

Example:
  walletdir backup create`,
	Args: cobra.NoArgs,
	RunE: runBackupCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a backup file",
	Long: `Verify the structure and SHA256 checksum of a backup file.

With --decrypt the password is requested and every record is parsed.

Example:
  walletdir backup verify --input ~/.walletdir/backups/walletdir-2026-01-15-120000.wdbak
  walletdir backup verify --input backup.wdbak --decrypt`,
	Args: cobra.NoArgs,
	RunE: runBackupVerify,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore wallet sets from a backup",
	Long: `Merge the wallet sets of a backup into the store.

Emails already in the store keep their current wallet set; only missing
emails are added.

Example:
  walletdir backup restore --input backup.wdbak`,
	Args: cobra.NoArgs,
	RunE: runBackupRestore,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List available backups",
	Long:    `List all backup files in the backups directory.`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runBackupList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)

	backupVerifyCmd.Flags().StringVar(&backupInput, "input", "", "path to backup file (required)")
	backupVerifyCmd.Flags().BoolVar(&backupDecrypt, "decrypt", false, "also test decryption")
	_ = backupVerifyCmd.MarkFlagRequired("input")

	backupRestoreCmd.Flags().StringVar(&backupInput, "input", "", "path to backup file (required)")
	_ = backupRestoreCmd.MarkFlagRequired("input")
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc, err := cc.backupService()
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer zero(password)

	bak, backupPath, err := svc.Create(password)
	if err != nil {
		return err
	}
	cc.logger().Info("backup created at %s with %d records", backupPath, bak.Manifest.RecordCount)

	result := map[string]any{
		"path":     backupPath,
		"manifest": bak.Manifest,
		"checksum": bak.Checksum,
	}
	return cc.formatter(cmd).Emit(result, func(w io.Writer) error {
		outln(w, "Backup created successfully!")
		outln(w)
		out(w, "  File:     %s\n", backupPath)
		out(w, "  Records:  %d\n", bak.Manifest.RecordCount)
		out(w, "  Checksum: %s\n", bak.Checksum[:16]+"...")
		outln(w)
		outln(w, "Store this file securely. It holds every mnemonic and needs your password to restore.")
		return nil
	})
}

func runBackupVerify(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc, err := cc.backupService()
	if err != nil {
		return err
	}

	manifest, err := svc.Verify(backupInput)
	if err != nil {
		return err
	}

	if backupDecrypt {
		password, pwErr := promptPasswordFn("Enter backup password: ")
		if pwErr != nil {
			return pwErr
		}
		defer zero(password)

		if manifest, err = svc.VerifyWithDecryption(backupInput, password); err != nil {
			return err
		}
	}

	result := map[string]any{
		"path":      backupInput,
		"manifest":  manifest,
		"decrypted": backupDecrypt,
	}
	return cc.formatter(cmd).Emit(result, func(w io.Writer) error {
		outln(w, "Backup structure verified successfully!")
		outln(w)
		out(w, "  Created: %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05"))
		out(w, "  Records: %d\n", manifest.RecordCount)
		if backupDecrypt {
			outln(w)
			outln(w, "Decryption verified successfully!")
		}
		return nil
	})
}

func runBackupRestore(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc, err := cc.backupService()
	if err != nil {
		return err
	}

	// Fail on a damaged file before asking for a password.
	if _, err = svc.Verify(backupInput); err != nil {
		return err
	}

	password, err := promptPasswordFn("Enter backup password: ")
	if err != nil {
		return err
	}
	defer zero(password)

	result, err := svc.Restore(backupInput, password)
	if err != nil {
		return err
	}

	return cc.formatter(cmd).Emit(result, func(w io.Writer) error {
		outln(w, "Backup restored successfully!")
		outln(w)
		out(w, "  Records in backup: %d\n", result.Total)
		out(w, "  Added:             %d\n", result.Added)
		out(w, "  Already present:   %d\n", result.Skipped)
		return nil
	})
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := backup.NewService(cc.Cfg.BackupDir(), nil)

	backups, err := svc.List()
	if err != nil {
		return err
	}
	if backups == nil {
		backups = []string{}
	}

	return cc.formatter(cmd).Emit(backups, func(w io.Writer) error {
		if len(backups) == 0 {
			outln(w, "No backups found.")
			outln(w, "Create one with: walletdir backup create")
			return nil
		}
		outln(w, "Backups:")
		for _, b := range backups {
			out(w, "  %s\n", b)
		}
		outln(w)
		out(w, "Backup directory: %s\n", cc.Cfg.BackupDir())
		return nil
	})
}
