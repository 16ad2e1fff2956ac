package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := version.Get()
		return GetCmdContext(cmd).formatter(cmd).Emit(info, func(w io.Writer) error {
			out(w, "walletdir %s\n", info)
			out(w, "go %s %s\n", info.GoVersion, info.Platform)
			return nil
		})
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
