// Package cli implements the walletdir command-line interface.
//
// Flag values live in package-level variables, the standard pattern for
// Cobra applications. Everything a command needs at run time is carried
// in a CommandContext attached to the command's context.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/output"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	storePath    string
	outputFormat string
	verbose      bool

	helpOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "walletdir",
	Short: "Email-keyed wallet directory",
	Long: `walletdir maps an email address to a stable set of wallet addresses.

The first request for an email generates a mnemonic, five chain addresses
(EVM, Celestia, Solana, Aptos, Sui), and an AIRA ID. Every later request
returns the same set. Records live in a single flat file.

Example:
  walletdir serve
  walletdir wallet create alice@example.com
  walletdir wallet list -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cc, err := initCommandContext()
		if err != nil {
			return err
		}
		SetCmdContext(cmd, cc)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if cc := GetCmdContext(cmd); cc != nil && cc.Log != nil {
			_ = cc.Log.Close()
		}
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	helpOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	executed, err := rootCmd.ExecuteC()
	if err == nil {
		return wderr.ExitSuccess
	}

	format := output.FormatText
	if cc := GetCmdContext(executed); cc != nil && cc.Fmt != nil {
		format = cc.Fmt.Format()
	}
	_ = output.FormatError(os.Stderr, err, format)
	return wderr.ExitCode(err)
}

// initCommandContext resolves config from file, environment, and flags,
// in increasing precedence.
func initCommandContext() (*CommandContext, error) {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	cfg, err := config.Load(config.Path(home))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, wderr.WithCause(
				wderr.WithDetails(wderr.ErrConfigInvalid, map[string]string{"path": config.Path(home)}),
				err,
			)
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = config.LogLevelDebug.String()
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err := config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		// An unwritable log file must not block the command.
		logger = config.NullLogger()
	}

	formatter := output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), os.Stdout)

	return NewCommandContext(cfg, logger, formatter), nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "walletdir data directory (default: ~/.walletdir)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "wallet store file (default: <home>/database.txt)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
