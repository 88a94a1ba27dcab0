package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-tracker/internal/api"
	"github.com/ndewijer/portfolio-tracker/internal/app"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/logger"
	"github.com/ndewijer/portfolio-tracker/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logr := logger.New(cfg.Log)
	log.Logger = logr

	a, err := app.New(cfg, logr)
	if err != nil {
		logr.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	// Create router
	router := api.NewRouter(a.SystemService, a.PortfolioService, cfg, logr)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logr.Info().Str("addr", cfg.Server.Addr).Str("version", version.Version).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	logr.Info().Msg("Server exited")
}
