package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, CITEAS_ADDR or PORT)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Routes:
  GET /                        service version
  GET /product/<identifier>    citation bundle for an identifier
  GET /steps                   documentation of every source searched
  GET /metrics                 Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a := setup(false)
	defer a.Close()

	addr := a.cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.service, a.registry, server.WithLogger(a.logger.Named("http")))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
