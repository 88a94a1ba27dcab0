package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Portfolio PortfolioConfig
	Market    MarketConfig
	Valuation ValuationConfig
	Rebalance RebalanceConfig
	Log       LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds the market-data cache location. An empty Path
// disables the cache; ":memory:" keeps it for the lifetime of the process.
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PortfolioConfig holds the portfolio file used by reload and save.
type PortfolioConfig struct {
	File string
}

// MarketConfig holds market data and risk settings.
type MarketConfig struct {
	Benchmark      string  // Benchmark ticker for beta and alpha
	Period         string  // Default lookback preset
	RiskFreeRate   float64 // Annual rate, e.g. 0.02
	PeriodsPerYear int     // Trading periods per year for annualization
	VaRConfidence  float64 // Historical VaR confidence level
	Timeout        time.Duration
	RateLimit      int // Requests per second to the market data source
	Concurrency    int // Parallel fetches per computation
	AllowStale     bool
	RetryDelay     time.Duration
}

// ValuationConfig selects the missing-price policy.
type ValuationConfig struct {
	// RequireAllPrices fails a valuation with MissingPriceError instead of
	// excluding unpriced positions with a warning.
	RequireAllPrices bool
}

// RebalanceConfig holds the cash buffer policy, transaction cost model and
// trade sizing rules.
type RebalanceConfig struct {
	MinimumCash           float64 // Absolute cash to retain
	MinimumCashPercent    float64 // Fraction of total value to retain as cash
	FixedCost             float64 // Flat fee per trade
	PercentCost           float64 // Fee as a fraction of trade value
	MinimumTradeThreshold float64 // Value deltas at or below this are skipped
	LotSize               float64 // Quantities are multiples of this
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	c := &Config{
		Server: ServerConfig{
			Port: "5001",
			Host: "localhost",
		},
		Database: DatabaseConfig{
			Path: ":memory:",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Portfolio: PortfolioConfig{
			File: "portfolio.csv",
		},
		Market: MarketConfig{
			Benchmark:      "SPY",
			Period:         "1y",
			RiskFreeRate:   0.02,
			PeriodsPerYear: 252,
			VaRConfidence:  0.95,
			Timeout:        10 * time.Second,
			RateLimit:      5,
			Concurrency:    4,
			RetryDelay:     500 * time.Millisecond,
		},
		Rebalance: RebalanceConfig{
			MinimumTradeThreshold: 1,
			LotSize:               1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
	c.Server.Addr = fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
	return c
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	d := Default()
	p := &parser{}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", d.Server.Port),
			Host: getEnv("SERVER_HOST", d.Server.Host),
		},
		Database: DatabaseConfig{
			Path: getEnvAllowEmpty("PRICE_CACHE_PATH", d.Database.Path),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", d.CORS.AllowedOrigins),
		},
		Portfolio: PortfolioConfig{
			File: getEnv("PORTFOLIO_FILE", d.Portfolio.File),
		},
		Market: MarketConfig{
			Benchmark:      strings.ToUpper(getEnv("BENCHMARK", d.Market.Benchmark)),
			Period:         getEnv("DEFAULT_PERIOD", d.Market.Period),
			RiskFreeRate:   p.float("RISK_FREE_RATE", d.Market.RiskFreeRate),
			PeriodsPerYear: p.int("PERIODS_PER_YEAR", d.Market.PeriodsPerYear),
			VaRConfidence:  p.float("VAR_CONFIDENCE", d.Market.VaRConfidence),
			Timeout:        p.duration("MARKET_TIMEOUT", d.Market.Timeout),
			RateLimit:      p.int("MARKET_RATE_LIMIT", d.Market.RateLimit),
			Concurrency:    p.int("MARKET_CONCURRENCY", d.Market.Concurrency),
			AllowStale:     p.bool("ALLOW_STALE_PRICES", d.Market.AllowStale),
			RetryDelay:     p.duration("MARKET_RETRY_DELAY", d.Market.RetryDelay),
		},
		Valuation: ValuationConfig{
			RequireAllPrices: p.bool("REQUIRE_ALL_PRICES", d.Valuation.RequireAllPrices),
		},
		Rebalance: RebalanceConfig{
			MinimumCash:           p.float("REBALANCE_MIN_CASH", d.Rebalance.MinimumCash),
			MinimumCashPercent:    p.float("REBALANCE_MIN_CASH_PERCENT", d.Rebalance.MinimumCashPercent),
			FixedCost:             p.float("REBALANCE_FIXED_COST", d.Rebalance.FixedCost),
			PercentCost:           p.float("REBALANCE_PERCENT_COST", d.Rebalance.PercentCost),
			MinimumTradeThreshold: p.float("REBALANCE_MIN_TRADE", d.Rebalance.MinimumTradeThreshold),
			LotSize:               p.float("REBALANCE_LOT_SIZE", d.Rebalance.LotSize),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", d.Log.Level),
			Pretty: p.bool("LOG_PRETTY", d.Log.Pretty),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// Validate checks value ranges that parsing alone cannot.
func (c *Config) Validate() error {
	switch {
	case c.Market.PeriodsPerYear <= 0:
		return fmt.Errorf("PERIODS_PER_YEAR must be positive, got %d", c.Market.PeriodsPerYear)
	case c.Market.VaRConfidence <= 0 || c.Market.VaRConfidence >= 1:
		return fmt.Errorf("VAR_CONFIDENCE must be between 0 and 1, got %v", c.Market.VaRConfidence)
	case c.Rebalance.LotSize <= 0:
		return fmt.Errorf("REBALANCE_LOT_SIZE must be positive, got %v", c.Rebalance.LotSize)
	case c.Rebalance.MinimumCash < 0 || c.Rebalance.FixedCost < 0 || c.Rebalance.PercentCost < 0 || c.Rebalance.MinimumTradeThreshold < 0:
		return fmt.Errorf("rebalance cash, cost and threshold settings must not be negative")
	case c.Rebalance.MinimumCashPercent < 0 || c.Rebalance.MinimumCashPercent > 1:
		return fmt.Errorf("REBALANCE_MIN_CASH_PERCENT must be between 0 and 1, got %v", c.Rebalance.MinimumCashPercent)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAllowEmpty is getEnv, except that a variable set to the empty string
// is returned as such.
func getEnvAllowEmpty(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parser records the first malformed variable so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}
