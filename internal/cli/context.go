package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/backup"
	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/directory"
	"github.com/aira-payment/walletdir/internal/metrics"
	"github.com/aira-payment/walletdir/internal/output"
	"github.com/aira-payment/walletdir/internal/walletset"
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg *config.Config
	Log *config.Logger
	Fmt *output.Formatter
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, logger *config.Logger, formatter *output.Formatter) *CommandContext {
	return &CommandContext{Cfg: cfg, Log: logger, Fmt: formatter}
}

// SetCmdContext attaches cc to cmd so RunE functions can find it.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext attached to cmd, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	cc, _ := cmd.Context().Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// formatter returns a formatter writing to cmd's stdout in the resolved
// output format.
func (c *CommandContext) formatter(cmd *cobra.Command) *output.Formatter {
	format := output.FormatText
	if c.Fmt != nil {
		format = c.Fmt.Format()
	}
	return output.NewFormatter(format, cmd.OutOrStdout())
}

// logger returns the configured logger, or one that discards.
func (c *CommandContext) logger() *config.Logger {
	if c.Log == nil {
		return config.NullLogger()
	}
	return c.Log
}

// openDirectory opens the configured wallet store.
func (c *CommandContext) openDirectory() (*directory.Directory, error) {
	gen, err := walletset.NewGenerator(c.Cfg.Store.WordList)
	if err != nil {
		return nil, err
	}
	return directory.New(c.Cfg.StorePath(), gen, c.logger(), metrics.Global)
}

// backupService opens the store and the backup service over it.
func (c *CommandContext) backupService() (*backup.Service, error) {
	dir, err := c.openDirectory()
	if err != nil {
		return nil, err
	}
	return backup.NewService(c.Cfg.BackupDir(), dir), nil
}
