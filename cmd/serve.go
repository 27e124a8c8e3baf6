package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinycask/tinycask/internal/api"
	"github.com/tinycask/tinycask/internal/engine"
	"github.com/tinycask/tinycask/internal/shared"
)

var (
	serveAddress   string
	jaegerEndpoint string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store over HTTP",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", ":8080", "Address for the HTTP server to listen on")
	serveCmd.Flags().StringVar(&jaegerEndpoint, "jaeger", "", "Jaeger collector endpoint; empty disables tracing")
}

func runServe(cmd *cobra.Command, args []string) {
	logger := shared.NewLogger(shared.ParseLevel(logLevel))

	opts := engine.DefaultOptions()
	opts.SyncOnAppend = !noSync
	opts.Logger = logger

	db, err := engine.Open(dbPath, opts)
	if err != nil {
		logger.Error("failed to open database %s: %v", dbPath, err)
		os.Exit(1)
	}

	srv, err := api.NewServer(db, api.Config{
		Address:        serveAddress,
		JaegerEndpoint: jaegerEndpoint,
	}, logger)
	if err != nil {
		logger.Error("failed to create server: %v", err)
		db.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error: %v", err)
			cancel()
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal %v, shutting down", sig)
	case <-ctx.Done():
		logger.Info("shutting down due to server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("error closing database: %v", err)
	}
}
