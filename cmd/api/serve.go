package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mindtrack/infrastructure/di"
	"mindtrack/interfaces/http/rest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the outbox processor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		container, err := di.InitializeContainer(ctx, cfg)
		if err != nil {
			return err
		}
		logger := container.Logger
		defer func() { _ = logger.Sync() }()

		container.Processor.Start(ctx)
		container.LoginLimiter.StartCleanup(ctx, 10*time.Minute)
		container.JournalLimiter.StartCleanup(ctx, 10*time.Minute)

		srv := &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           rest.NewRouter(container.RouterDependencies(), logger).Setup(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// submissions wait on the insight provider and two stores
			WriteTimeout: cfg.InsightTimeout + 2*cfg.StoreTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting server",
				zap.String("address", cfg.ServerAddress),
				zap.String("environment", cfg.Environment),
				zap.String("storeDriver", cfg.StoreDriver),
				zap.String("insightProvider", cfg.InsightProvider),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				logger.Error("Server failed", zap.Error(err))
				_ = container.Shutdown(context.Background())
				return err
			}
		case <-ctx.Done():
		}

		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Error("Resource cleanup error", zap.Error(err))
		}

		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
