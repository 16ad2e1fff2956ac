package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cobra"

	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/metrics"
	"github.com/aira-payment/walletdir/internal/server"
	"github.com/aira-payment/walletdir/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the wallet directory over HTTP until interrupted.

Routes:
  POST   /api/v1/wallet-manager/wallet          get or create by {"email": ...}
  GET    /api/v1/wallet-manager/wallet/{email}  look up an existing set
  DELETE /api/v1/wallet-manager/wallet/{email}  delete a set
  GET    /api/v1/wallet-manager/wallets         list every set
  GET    /health, /api/v1/docs, /metrics

SIGINT or SIGTERM drains in-flight requests before exiting.

Example:
  walletdir serve
  walletdir serve --listen 127.0.0.1:7003`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	logger := cc.logger()

	// A server is long-lived; mirror the log to stderr even when a
	// file is configured.
	if logger.Level() == config.LogLevelOff {
		logger.SetLevel(config.LogLevelInfo)
	}
	logger.Tee(cmd.ErrOrStderr())

	// Report suspected lock inversions instead of killing the process.
	deadlock.Opts.LogBuf = logger.Writer(config.LogLevelError)
	deadlock.Opts.OnPotentialDeadlock = func() {
		logger.Error("potential deadlock detected in wallet directory")
	}

	dir, err := cc.openDirectory()
	if err != nil {
		return err
	}

	serverCfg := cc.Cfg.Server
	if serveListen != "" {
		serverCfg.ListenAddr = serveListen
	}

	srv := server.New(dir, server.Options{
		Config:  serverCfg,
		Logger:  logger,
		Metrics: metrics.Global,
		Version: version.Get().Version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverCfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
