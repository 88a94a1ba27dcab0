package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ndewijer/portfolio-tracker/internal/app"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/logger"
)

// As a short lived CLI it is fine to keep the global flags in variables.

var portfolioFile = flag.String("file", "", "Path to the portfolio CSV file. Overrides PORTFOLIO_FILE.")
var plainOutput = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal")
var verbose = flag.Bool("v", false, "Log market data requests to stderr")

// openApp loads configuration and the portfolio. The caller must Close the app.
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if *portfolioFile != "" {
		cfg.Portfolio.File = *portfolioFile
	}
	if _, err := os.Stat(cfg.Portfolio.File); err != nil {
		return nil, fmt.Errorf("portfolio file %q: %w", cfg.Portfolio.File, err)
	}

	if !*verbose {
		cfg.Log.Level = "error"
	}
	cfg.Log.Pretty = true
	return app.New(cfg, logger.New(cfg.Log))
}
