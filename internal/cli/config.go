package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/output"
	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify walletdir configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at <home>/config.yaml.

An existing file is kept unless --force is given.

Example:
  walletdir config init
  walletdir config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after environment overrides.

Example:
  walletdir config show
  walletdir config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by its dotted key.

Examples:
  walletdir config get server.listen_addr
  walletdir config get store.word_list`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its dotted key and save the file.

Examples:
  walletdir config set server.listen_addr :8080
  walletdir config set server.cors.allowed_origins https://a.example,https://b.example
  walletdir config set logging.level info`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configField binds a dotted key to a Config field.
type configField struct {
	key string
	get func(*config.Config) string
	set func(*config.Config, string) error
}

// configFields lists every settable key, in display order.
//
//nolint:gochecknoglobals // Static key table
var configFields = []configField{
	{
		key: "home",
		get: func(c *config.Config) string { return c.Home },
		set: func(c *config.Config, v string) error { c.Home = v; return nil },
	},
	{
		key: "store.path",
		get: func(c *config.Config) string { return c.Store.Path },
		set: func(c *config.Config, v string) error { c.Store.Path = v; return nil },
	},
	{
		key: "store.word_list",
		get: func(c *config.Config) string { return c.Store.WordList },
		set: func(c *config.Config, v string) error {
			if _, err := walletset.WordList(v); err != nil {
				return invalidValue("store.word_list", v, "bip39 or legacy")
			}
			c.Store.WordList = v
			return nil
		},
	},
	{
		key: "server.listen_addr",
		get: func(c *config.Config) string { return c.Server.ListenAddr },
		set: func(c *config.Config, v string) error { c.Server.ListenAddr = v; return nil },
	},
	intField("server.read_timeout_seconds", func(c *config.Config) *int { return &c.Server.ReadTimeoutSeconds }),
	intField("server.write_timeout_seconds", func(c *config.Config) *int { return &c.Server.WriteTimeoutSeconds }),
	intField("server.shutdown_timeout_seconds", func(c *config.Config) *int { return &c.Server.ShutdownTimeoutSeconds }),
	{
		key: "server.max_body_bytes",
		get: func(c *config.Config) string { return strconv.FormatInt(c.Server.MaxBodyBytes, 10) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return invalidValue("server.max_body_bytes", v, "a non-negative integer")
			}
			c.Server.MaxBodyBytes = n
			return nil
		},
	},
	{
		key: "server.cors.allowed_origins",
		get: func(c *config.Config) string { return strings.Join(c.Server.CORS.AllowedOrigins, ",") },
		set: func(c *config.Config, v string) error {
			c.Server.CORS.AllowedOrigins = config.SanitizeOrigins(strings.Split(v, ","))
			return nil
		},
	},
	{
		key: "server.rate_limit.requests_per_second",
		get: func(c *config.Config) string {
			return strconv.FormatFloat(c.Server.RateLimit.RequestsPerSecond, 'f', -1, 64)
		},
		set: func(c *config.Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return invalidValue("server.rate_limit.requests_per_second", v, "a non-negative number, 0 disables")
			}
			c.Server.RateLimit.RequestsPerSecond = f
			return nil
		},
	},
	intField("server.rate_limit.burst", func(c *config.Config) *int { return &c.Server.RateLimit.Burst }),
	{
		key: "output.default_format",
		get: func(c *config.Config) string { return c.Output.DefaultFormat },
		set: func(c *config.Config, v string) error {
			if v != string(output.FormatText) && v != string(output.FormatJSON) && v != string(output.FormatAuto) {
				return invalidValue("output.default_format", v, "text, json, or auto")
			}
			c.Output.DefaultFormat = v
			return nil
		},
	},
	{
		key: "output.verbose",
		get: func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalidValue("output.verbose", v, "true or false")
			}
			c.Output.Verbose = b
			return nil
		},
	},
	{
		key: "logging.level",
		get: func(c *config.Config) string { return c.Logging.Level },
		set: func(c *config.Config, v string) error {
			switch v {
			case "off", "error", "info", "debug":
				c.Logging.Level = v
				return nil
			}
			return invalidValue("logging.level", v, "off, error, info, or debug")
		},
	},
	{
		key: "logging.file",
		get: func(c *config.Config) string { return c.Logging.File },
		set: func(c *config.Config, v string) error { c.Logging.File = v; return nil },
	},
}

func intField(key string, ptr func(*config.Config) *int) configField {
	return configField{
		key: key,
		get: func(c *config.Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return invalidValue(key, v, "a non-negative integer")
			}
			*ptr(c) = n
			return nil
		},
	}
}

func invalidValue(key, value, valid string) error {
	return wderr.WithDetails(wderr.ErrInvalidInput, map[string]string{
		"key":   key,
		"value": value,
		"valid": valid,
	})
}

func lookupField(key string) (configField, error) {
	for _, f := range configFields {
		if f.key == key {
			return f, nil
		}
	}
	return configField{}, wderr.WithSuggestion(
		wderr.WithDetails(wderr.ErrUnknownConfigKey, map[string]string{"key": key}),
		"list keys with: walletdir config show",
	)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return wderr.WithSuggestion(
			wderr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - store.path: Wallet store file")
	outln(w, "  - server.listen_addr: HTTP API address")
	outln(w, "  - server.cors.allowed_origins: Front-end origins")
	outln(w, "  - logging.level: Log level (off/error/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	f := cc.formatter(cmd)

	if f.IsJSON() {
		values := make(map[string]string, len(configFields))
		for _, field := range configFields {
			values[field.key] = field.get(cc.Cfg)
		}
		return f.Emit(values, nil)
	}

	table := output.NewTable("KEY", "VALUE")
	for _, field := range configFields {
		value := field.get(cc.Cfg)
		if value == "" {
			value = "(not set)"
		}
		table.AddRow(field.key, value)
	}
	return table.Render(cmd.OutOrStdout())
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	field, err := lookupField(args[0])
	if err != nil {
		return err
	}

	outln(cmd.OutOrStdout(), field.get(cc.Cfg))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, value := args[0], args[1]

	field, err := lookupField(key)
	if err != nil {
		return err
	}

	// Edit the file as written, not the environment-adjusted view.
	configPath := config.Path(cc.Cfg.Home)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return wderr.WithCause(wderr.ErrConfigInvalid, err)
		}
		fileCfg = config.Defaults()
		fileCfg.Home = cc.Cfg.Home
	}

	if err := field.set(fileCfg, value); err != nil {
		return err
	}

	if err := config.Save(fileCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", key, field.get(fileCfg))
	return nil
}
