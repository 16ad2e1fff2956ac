package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/directory"
	"github.com/aira-payment/walletdir/internal/output"
	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// maxSuggestionDistance bounds how far a stored email may be from the
// requested one and still be offered as "did you mean".
const maxSuggestionDistance = 3

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// deleteYes skips the delete confirmation prompt.
	deleteYes bool
	// showMnemonic includes the mnemonic in text output.
	showMnemonic bool
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet sets",
	Long:  `Create, show, list, and delete the wallet sets in the store.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Get or create the wallet set for an email",
	Long: `Return the wallet set stored for an email, generating one on first use.

Running create twice for the same email returns the same set.

Example:
  walletdir wallet create alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Show an existing wallet set",
	Long: `Show the wallet set stored for an email without creating one.

Example:
  walletdir wallet show alice@example.com
  walletdir wallet show alice@example.com --mnemonic`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all wallet sets",
	Long:    `List every wallet set in the store in insertion order.`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runWalletList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete the wallet set for an email",
	Long: `Delete the wallet set stored for an email.

The mnemonic is not recoverable afterwards unless a backup holds it.
A later create for the same email draws a new mnemonic.

Example:
  walletdir wallet delete alice@example.com --yes`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletDelete,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletBackfillCmd = &cobra.Command{
	Use:   "backfill-ids",
	Short: "Assign AIRA IDs to legacy records",
	Long: `Assign a fresh AIRA ID to every record that has none.

Records written before AIRA IDs existed end in an empty field. Records
that already have an AIRA ID are never changed.`,
	Args: cobra.NoArgs,
	RunE: runWalletBackfill,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the store for malformed lines",
	Long: `Scan the store and report every line that does not parse.

Malformed lines are skipped by reads and kept verbatim by writes, so
they can be repaired by hand.`,
	Args: cobra.NoArgs,
	RunE: runWalletVerify,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletShowCmd)
	walletCmd.AddCommand(walletListCmd)
	walletCmd.AddCommand(walletDeleteCmd)
	walletCmd.AddCommand(walletBackfillCmd)
	walletCmd.AddCommand(walletVerifyCmd)

	walletCreateCmd.Flags().BoolVar(&showMnemonic, "mnemonic", false, "include the mnemonic in text output")
	walletShowCmd.Flags().BoolVar(&showMnemonic, "mnemonic", false, "include the mnemonic in text output")
	walletDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	ws, err := dir.GetOrCreate(args[0])
	if err != nil {
		return err
	}

	return cc.formatter(cmd).Emit(ws, func(w io.Writer) error {
		displayWalletSet(w, &ws, showMnemonic)
		return nil
	})
}

func runWalletShow(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	ws, err := dir.Lookup(args[0])
	if err != nil {
		if errors.Is(err, wderr.ErrWalletNotFound) {
			return suggestEmail(dir, args[0], err)
		}
		return err
	}

	return cc.formatter(cmd).Emit(ws, func(w io.Writer) error {
		displayWalletSet(w, &ws, showMnemonic)
		return nil
	})
}

func runWalletList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	sets, err := dir.ListAll()
	if err != nil {
		return err
	}
	if sets == nil {
		sets = []walletset.WalletSet{}
	}

	return cc.formatter(cmd).Emit(sets, func(w io.Writer) error {
		if len(sets) == 0 {
			outln(w, "No wallet sets found.")
			outln(w, "Create one with: walletdir wallet create <email>")
			return nil
		}

		table := output.NewTable("EMAIL", "AIRA ID", "EVM", "SOLANA")
		table.Truncate(2, 15)
		table.Truncate(3, 15)
		for i := range sets {
			airaID := sets[i].AiraID
			if airaID == "" {
				airaID = "(none)"
			}
			table.AddRow(sets[i].Email, airaID, sets[i].EVMWallet, sets[i].SolanaWallet)
		}
		if err := table.Render(w); err != nil {
			return err
		}
		outln(w)
		out(w, "%d wallet set(s)\n", table.Len())
		return nil
	})
}

func runWalletDelete(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	email := args[0]

	if !deleteYes && !promptConfirmFn(fmt.Sprintf("Delete the wallet set for %s? The mnemonic cannot be recovered.", email)) {
		return wderr.WithSuggestion(wderr.ErrGeneral, "deletion cancelled")
	}

	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	deleted, err := dir.Delete(email)
	if err != nil {
		return err
	}
	if !deleted {
		return suggestEmail(dir, email, wderr.WithDetails(wderr.ErrWalletNotFound, map[string]string{"email": email}))
	}

	f := cc.formatter(cmd)
	if f.IsJSON() {
		return f.Emit(map[string]any{"email": email, "deleted": true}, nil)
	}
	f.Success("Deleted wallet set for %s", email)
	return nil
}

func runWalletBackfill(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	assigned, err := dir.BackfillAiraIDs()
	if err != nil {
		return err
	}

	return cc.formatter(cmd).Emit(map[string]int{"assigned": assigned}, func(w io.Writer) error {
		if assigned == 0 {
			outln(w, "Every record already has an AIRA ID.")
			return nil
		}
		out(w, "Assigned AIRA IDs to %d record(s).\n", assigned)
		return nil
	})
}

type verifyReport struct {
	Stats   directory.Stats `json:"stats"`
	Corrupt []corruptLine   `json:"corrupt"`
}

type corruptLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func runWalletVerify(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	problems, err := dir.Verify()
	if err != nil {
		return err
	}
	stats, err := dir.Stats()
	if err != nil {
		return err
	}

	report := verifyReport{Stats: stats, Corrupt: make([]corruptLine, 0, len(problems))}
	for _, p := range problems {
		report.Corrupt = append(report.Corrupt, corruptLine{Line: p.Line, Reason: p.Reason})
	}

	err = cc.formatter(cmd).Emit(report, func(w io.Writer) error {
		out(w, "Store:   %s\n", stats.Path)
		out(w, "Records: %d\n", stats.Records)
		if stats.MissingAiraID > 0 {
			out(w, "Missing AIRA ID: %d (run: walletdir wallet backfill-ids)\n", stats.MissingAiraID)
		}
		if len(problems) == 0 {
			outln(w, "No malformed lines.")
			return nil
		}
		outln(w)
		for _, p := range problems {
			out(w, "  line %d: %s\n", p.Line, p.Reason)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(problems) > 0 {
		output.Warn(cmd.ErrOrStderr(), "%d malformed line(s) in %s", len(problems), stats.Path)
		return wderr.WithDetails(wderr.ErrCorruptRecord, map[string]string{
			"count": fmt.Sprintf("%d", len(problems)),
		})
	}
	return nil
}

// suggestEmail decorates a not-found error with the closest stored email.
func suggestEmail(dir *directory.Directory, email string, notFound error) error {
	sets, err := dir.ListAll()
	if err != nil || len(sets) == 0 {
		return wderr.WithSuggestion(notFound, "list wallet sets with: walletdir wallet list")
	}

	best, bestDist := "", maxSuggestionDistance+1
	for i := range sets {
		if d := levenshtein.ComputeDistance(email, sets[i].Email); d < bestDist {
			best, bestDist = sets[i].Email, d
		}
	}
	if best == "" {
		return wderr.WithSuggestion(notFound, "list wallet sets with: walletdir wallet list")
	}
	return wderr.WithSuggestion(notFound, fmt.Sprintf("did you mean %s?", best))
}

// displayWalletSet prints a wallet set for humans.
func displayWalletSet(w io.Writer, ws *walletset.WalletSet, withMnemonic bool) {
	out(w, "Email:    %s\n", ws.Email)
	airaID := ws.AiraID
	if airaID == "" {
		airaID = "(none)"
	}
	out(w, "AIRA ID:  %s\n", airaID)
	outln(w)
	for _, c := range walletset.Chains() {
		out(w, "  %-9s %s\n", c.String()+":", ws.Address(c))
	}
	if withMnemonic {
		outln(w)
		out(w, "Mnemonic: %s\n", ws.Mnemonic)
	}
}
