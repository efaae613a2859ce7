package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/signet-registry/cmd/flags"
	"github.com/ruteri/signet-registry/httpserver"
	"github.com/ruteri/signet-registry/registry"
	"github.com/ruteri/signet-registry/storage"
	"github.com/urfave/cli/v2"
)

var flagListenAddr = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Relay signed Signet Registry and RTSProxyWallet operations",
		Flags: append([]cli.Flag{
			flagListenAddr,
			flags.ChainIDFlag,
			flags.SignetStoreFlag,
			flags.ProxyWalletStoreFlag,
			flags.MaxBodyBytesFlag,
			flags.LogServiceFlagFn("signet-registry"),
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx := context.Background()

			storeFactory := storage.NewStoreFactory(logger)

			signetStore, err := storeFactory.StoreFor(ctx, cCtx.StringSlice(flags.SignetStoreFlag.Name)...)
			if err != nil {
				logger.Error("Failed to open Signet Registry store", "err", err)
				return err
			}
			proxyStore, err := storeFactory.StoreFor(ctx, cCtx.StringSlice(flags.ProxyWalletStoreFlag.Name)...)
			if err != nil {
				logger.Error("Failed to open RTSProxyWallet store", "err", err)
				return err
			}

			chainID := big.NewInt(cCtx.Int64(flags.ChainIDFlag.Name))
			signet, err := registry.NewSignetRegistry(signetStore, chainID, logger)
			if err != nil {
				return fmt.Errorf("could not create signet registry: %w", err)
			}
			proxy, err := registry.NewProxyWalletRegistry(proxyStore, logger)
			if err != nil {
				return fmt.Errorf("could not create proxy wallet registry: %w", err)
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))
			server, err := httpserver.New(cfg, signet, proxy)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "chainId", chainID.String())
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
