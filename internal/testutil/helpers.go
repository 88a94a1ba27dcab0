package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/market"
	"github.com/ndewijer/portfolio-tracker/internal/portfolio"
	"github.com/ndewijer/portfolio-tracker/internal/service"
)

// TestConfig returns the default configuration with deterministic market
// settings: zero retry delay and a fixed benchmark.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Market.Benchmark = "SPY"
	cfg.Market.RetryDelay = 0
	cfg.Market.Concurrency = 4
	cfg.Database.Path = ""
	return cfg
}

// NewTestPortfolioService creates a PortfolioService over store and provider
// with TestConfig, a silent logger and the clock fixed at Day(30).
func NewTestPortfolioService(t *testing.T, store *portfolio.Store, provider market.Provider) *service.PortfolioService {
	t.Helper()
	return NewTestPortfolioServiceWithConfig(t, store, provider, TestConfig())
}

// NewTestPortfolioServiceWithConfig is NewTestPortfolioService with a custom configuration.
func NewTestPortfolioServiceWithConfig(t *testing.T, store *portfolio.Store, provider market.Provider, cfg *config.Config) *service.PortfolioService {
	t.Helper()

	if store == nil {
		store = portfolio.NewStore()
	}
	svc := service.NewPortfolioService(store, provider, cfg, zerolog.Nop())
	svc.SetClock(func() time.Time { return Day(30) })
	return svc
}

// NewTestSystemService creates a SystemService over db, which may be nil
// to test a disabled cache.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}
