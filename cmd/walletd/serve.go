package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/rpc"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/wallet"
	"github.com/spf13/cobra"
)

var (
	serveAddress    string
	notifyRetention int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wallet RPC server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "serve a watch-only wallet for this address instead of the signing key's")
	serveCmd.Flags().IntVar(&notifyRetention, "notifications", 100, "finished writes kept for GetNotifications")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ring := wallet.NewRingSink(notifyRetention)
	engine, err := a.engine(ctx, serveAddress, wallet.Fanout{wallet.LogSink{Logger: log}, ring})
	if err != nil {
		return err
	}
	log.Info().Str("wallet", engine.Address()).Msg("Wallet engine ready")

	server, err := rpc.NewServer(ctx, a.serverConfig(), rpc.NewWalletServer(engine, a.resolver, a.health, ring, a.level))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
