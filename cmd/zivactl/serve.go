package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/api"
	"github.com/Checker-Finance/ziva-sdk/pkg/config"
	"github.com/Checker-Finance/ziva-sdk/pkg/ziva"
)

// serve runs the status server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, client *ziva.Client, logg *zap.Logger) error {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	var nc api.Pinger
	if conn := client.NATS(); conn != nil {
		nc = conn
	}
	api.RegisterRoutes(app, client, nc)

	errCh := make(chan error, 1)
	go func() {
		logg.Info("zivactl.status_listening", zap.Int("port", cfg.StatusPort))
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.StatusPort))
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
	}

	logg.Info("zivactl.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warn("fiber.shutdown_failed", zap.Error(err))
	}
	return nil
}
