package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/slabworks/certlister/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the listing API server",
		Long: `Starts the certlister HTTP API.

Endpoints:
  POST /api/psa/lookup        single certificate lookup
  POST /api/psa/lookup/batch  comma separated certificates and ranges
  POST /api/psa/lookup/image  certificates read from a slab photo
  POST /api/psa/submit        consignment submission
  GET  /healthcheck`,
		Example: `  # Start server on the configured port (default 8888)
  certlister serve

  # Start server on custom port
  certlister serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			handler := handlers.New(a.processor, a.extractor, a.cfg.BatchDelay())

			addr := ":" + a.cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.WithRequestID(handlers.WithCORS(a.cfg.Server.CORSOrigins, handler.Routes())),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Certlister API available", "addr", addr, "url", "http://localhost"+addr, "provider", a.cfg.Vision.Provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT and config)")

	return cmd
}
