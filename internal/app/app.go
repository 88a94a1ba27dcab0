// Package app wires configuration, the market data stack and the services
// shared by cmd/server and cmd/pfctl.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/database"
	"github.com/ndewijer/portfolio-tracker/internal/market"
	"github.com/ndewijer/portfolio-tracker/internal/portfolio"
	"github.com/ndewijer/portfolio-tracker/internal/repository"
	"github.com/ndewijer/portfolio-tracker/internal/service"
	"github.com/ndewijer/portfolio-tracker/internal/yahoo"
)

// App holds the initialized services of one process.
type App struct {
	Config           *config.Config
	Logger           zerolog.Logger
	DB               *sql.DB // Nil when the price cache is disabled
	Provider         market.Provider
	PortfolioService *service.PortfolioService
	SystemService    *service.SystemService
}

// New builds the Yahoo-backed market data stack and the services. The
// configured portfolio file is loaded when it exists; a missing file gives
// an empty portfolio.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	client := yahoo.NewFinanceClient(
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(cfg.Market.RateLimit),
		yahoo.WithTimeout(cfg.Market.Timeout),
	)
	return NewWithProvider(cfg, logger, market.NewYahooProvider(client, cfg.Market.RetryDelay, logger))
}

// NewWithProvider is New with a caller-supplied upstream provider. The
// price cache, when enabled, is layered on top of upstream.
func NewWithProvider(cfg *config.Config, logger zerolog.Logger, upstream market.Provider) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Provider: upstream}

	if cfg.Database.Path != "" {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open price cache: %w", err)
		}
		a.DB = db
		a.Provider = market.NewCachedProvider(upstream, repository.NewPriceRepository(db), cfg.Market.AllowStale, logger)
		logger.Info().Str("path", cfg.Database.Path).Msg("price cache enabled")
	}

	a.SystemService = service.NewSystemService(a.DB)
	a.PortfolioService = service.NewPortfolioService(portfolio.NewStore(), a.Provider, cfg, logger)

	if cfg.Portfolio.File != "" {
		_, err := a.PortfolioService.LoadFile(cfg.Portfolio.File)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn().Str("file", cfg.Portfolio.File).Msg("portfolio file does not exist, starting empty")
		case err != nil:
			a.Close()
			return nil, fmt.Errorf("failed to load portfolio: %w", err)
		}
	}

	return a, nil
}

// Close releases the price cache.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
