package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/logger"
	"sports-spaces-backend/pkg/metrics"
	"sports-spaces-backend/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer log.Sync()

		deps, err := server.Bootstrap(cfg, log, metrics.New(), database.NewDatabase)
		if err != nil {
			log.Error("startup failed", zap.Error(err))
			return err
		}
		defer deps.DB.Close()

		addr := serveAddr
		if addr == "" {
			addr = ":" + cfg.Port
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("server listening", zap.String("addr", addr), zap.String("environment", cfg.Environment))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server failed", zap.Error(err))
				return err
			}
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default \":$PORT\")")
}
