package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/api/handlers"
	custommiddleware "github.com/ndewijer/portfolio-tracker/internal/api/middleware"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(systemService *service.SystemService, portfolioService *service.PortfolioService, cfg *config.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger.With().Str("component", "http").Logger()))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
			r.Get("/", portfolioHandler.Portfolio)
			r.Post("/upload", portfolioHandler.Upload)
			r.Get("/export", portfolioHandler.Download)
			r.Post("/reload", portfolioHandler.Reload)
			r.Post("/save", portfolioHandler.Save)
			r.Put("/cash", portfolioHandler.SetCash)

			r.Post("/position", portfolioHandler.AddPosition)
			r.Route("/position/{ticker}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateTickerMiddleware)
				r.Put("/", portfolioHandler.UpdatePosition)
				r.Delete("/", portfolioHandler.RemovePosition)
			})

			r.Get("/valuation", portfolioHandler.Valuation)
			r.Get("/risk", portfolioHandler.Risk)
			r.Get("/performance", portfolioHandler.Performance)
			r.Get("/rebalance", portfolioHandler.Rebalance)
			r.Post("/rebalance/simulate", portfolioHandler.Simulate)
			r.Post("/rebalance/apply", portfolioHandler.ApplyRebalance)
		})

		r.Route("/market", func(r chi.Router) {
			marketHandler := handlers.NewMarketHandler(portfolioService)
			r.With(custommiddleware.ValidateTickerMiddleware).Get("/quote/{ticker}", marketHandler.Quote)
			r.Get("/search", marketHandler.Search)
		})
	})

	return r
}
