// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/mediasync/internal/api"
	"github.com/andresuchdata/mediasync/internal/app"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run history is optional; without DATABASE_URL the runs endpoint is not mounted.
	deps, err := app.Build(ctx, cfg, app.Options{Runs: true})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer deps.Close()

	router := api.NewRouter(&api.Services{
		BackupRoot: cfg.Backup.Root,
		Runs:       deps.Runs,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("backup_root", cfg.Backup.Root).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
