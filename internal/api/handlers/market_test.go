package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/portfolio-tracker/internal/api/handlers"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/testutil"
)

// TestMarketHandler_Quote tests the GET /api/market/quote/{ticker} endpoint.
//
// WHY: Quotes are used to check a ticker before adding it, so an unknown
// symbol must be distinguishable from a server fault.
func TestMarketHandler_Quote(t *testing.T) {
	provider := testutil.NewStubProvider().WithPrice("AAPL", 187.5)
	handler := handlers.NewMarketHandler(testutil.NewTestPortfolioService(t, nil, provider))

	t.Run("returns latest price", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/market/quote/aapl", map[string]string{"ticker": "aapl"})
		w := httptest.NewRecorder()

		handler.Quote(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var quote model.Quote
		if err := json.NewDecoder(w.Body).Decode(&quote); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if quote.Ticker != "AAPL" || quote.Price != 187.5 {
			t.Errorf("Expected AAPL at 187.5, got %+v", quote)
		}
	})

	t.Run("returns 502 for unknown ticker", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/market/quote/NOPE", map[string]string{"ticker": "NOPE"})
		w := httptest.NewRecorder()

		handler.Quote(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Expected status 502, got %d", w.Code)
		}
	})
}

// TestMarketHandler_Search tests the GET /api/market/search endpoint.
func TestMarketHandler_Search(t *testing.T) {
	provider := testutil.NewStubProvider()
	provider.Matches = []model.SymbolMatch{
		{Ticker: "AAPL", Name: "Apple Inc.", Exchange: "NMS", Type: "EQUITY"},
		{Ticker: "AAP", Name: "Advance Auto Parts", Exchange: "NYQ", Type: "EQUITY"},
		{Ticker: "MSFT", Name: "Microsoft", Exchange: "NMS", Type: "EQUITY"},
	}
	handler := handlers.NewMarketHandler(testutil.NewTestPortfolioService(t, nil, provider))

	tests := []struct {
		name       string
		params     map[string]string
		wantStatus int
		wantCount  int
	}{
		{"matches prefix", map[string]string{"q": "aa"}, http.StatusOK, 2},
		{"applies limit", map[string]string{"q": "aa", "limit": "1"}, http.StatusOK, 1},
		{"no matches is empty array", map[string]string{"q": "zz"}, http.StatusOK, 0},
		{"rejects missing query", map[string]string{}, http.StatusBadRequest, 0},
		{"rejects limit above maximum", map[string]string{"q": "aa", "limit": "500"}, http.StatusBadRequest, 0},
		{"rejects non-numeric limit", map[string]string{"q": "aa", "limit": "ten"}, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Search(w, testutil.NewRequestWithQueryParams(http.MethodGet, "/api/market/search", tt.params))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var matches []model.SymbolMatch
			if err := json.NewDecoder(w.Body).Decode(&matches); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if matches == nil {
				t.Error("Expected JSON array, got null")
			}
			if len(matches) != tt.wantCount {
				t.Errorf("Expected %d matches, got %d", tt.wantCount, len(matches))
			}
		})
	}
}
