package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-tracker/internal/api/request"
	"github.com/ndewijer/portfolio-tracker/internal/api/response"
	"github.com/ndewijer/portfolio-tracker/internal/service"
)

// MarketHandler serves market data lookups that do not depend on the
// portfolio.
type MarketHandler struct {
	portfolioService *service.PortfolioService
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(portfolioService *service.PortfolioService) *MarketHandler {
	return &MarketHandler{
		portfolioService: portfolioService,
	}
}

// Quote returns the latest price of a ticker.
//
// Endpoint: GET /api/market/quote/{ticker}
// Response: 200 OK with model.Quote
// Error: 502 Bad Gateway if no price is available
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.portfolioService.Quote(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve quote")
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// Search looks up ticker symbols by name or symbol prefix.
//
// Endpoint: GET /api/market/search
// Query params: q (required), limit (1-50, default 10)
// Response: 200 OK with []model.SymbolMatch
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseSearchQuery(r.URL.Query().Get("q"), r.URL.Query().Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	matches, err := h.portfolioService.Search(r.Context(), q.Query, q.Limit)
	if err != nil {
		respondServiceError(w, err, "Failed to search symbols")
		return
	}
	respondJSON(w, http.StatusOK, matches)
}
