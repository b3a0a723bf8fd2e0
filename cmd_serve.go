package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var refreshOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the MCP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer shutdown(a)
		logger := a.Logger

		if refreshOnStart {
			go func() {
				report, err := a.Refresh.Refresh(ctx)
				if err != nil {
					logger.Error("Startup refresh failed", zap.Error(err))
					return
				}
				logger.Info("Startup refresh finished",
					zap.String("refresh_id", report.RefreshID),
					zap.Bool("degraded", report.Degraded()))
			}()
		}

		srv := &http.Server{
			Addr:              net.JoinHostPort(a.Config.BindAddr, a.Config.Port),
			Handler:           a.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting ekaya-insight",
				zap.String("addr", srv.Addr),
				zap.String("version", a.Config.Version))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&refreshOnStart, "refresh", false, "Run a metadata refresh in the background after startup")
}
