package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nekogravitycat/reservation-service/internal/app"
	"github.com/nekogravitycat/reservation-service/internal/config"
	"github.com/nekogravitycat/reservation-service/internal/db"
	"github.com/nekogravitycat/reservation-service/internal/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			// For receiving Ctrl+C / SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := logger.NewLogger(cfg.Server.IsProduction, cfg.Log.Level)
			defer func() { _ = log.Sync() }()

			if cfg.DB.AutoMigrate {
				if err := db.RunMigrations(cfg.DB.DatabaseURL()); err != nil {
					return err
				}
				log.Info("migrations applied")
			}

			pool, err := db.NewPool(ctx, cfg.DB.DatabaseURL(), int32(cfg.DB.MaxConnections))
			if err != nil {
				return fmt.Errorf("failed to connect to db: %w", err)
			}
			defer pool.Close()

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			container := app.NewContainer(app.Config{
				IsProduction: cfg.Server.IsProduction,
				ProdOrigins:  cfg.Server.ProdOrigins,
				DBPool:       pool,
				JWTSecret:    cfg.Auth.JWTSecret,
				Logger:       log,
				Registry:     registry,
			})

			// Use http.Server for graceful shutdown
			server := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           container.Router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server running",
					zap.String("addr", cfg.Server.Addr),
					zap.Bool("auth", cfg.Auth.JWTSecret != ""),
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
				log.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("server forced to shutdown", zap.Error(err))
			}

			log.Info("server exited gracefully")
			return nil
		},
	}
}
