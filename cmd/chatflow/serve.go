package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/aretw0/chatflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the conversation API: inbound messages, execution inspection, state
change events and Prometheus metrics. SIGHUP reloads the flow files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error("Failed to release resources", "error", err)
			}
		}()

		handler := httpAdapter.NewHandler(a.bot, a.bot.Flows(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
			httpAdapter.WithMaxInputSize(cfg.Server.MaxInputSize),
			httpAdapter.WithMetrics(a.registry),
		)

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting chatflow server", "addr", srv.Addr, "flows", cfg.Flows.Dir, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)
		defer signal.Stop(shutdown)
		defer signal.Stop(reload)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-reload:
				if err := a.Reload(); err != nil {
					logger.Error("Flow reload failed, keeping previous flows", "error", err)
					continue
				}
				logger.Info("Flows reloaded", "tenants", len(a.files.Tenants()))

			case sig := <-shutdown:
				logger.Info("Start shutdown", "signal", sig.String())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					logger.Warn("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "error", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("failed to kill server: %w", err)
					}
				}
				logger.Info("Chatflow server stopped gracefully")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
