// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-tracker/internal/api/response"
	"github.com/ndewijer/portfolio-tracker/internal/validation"
)

// ValidateTickerMiddleware validates that the ticker URL parameter is present and looks like a symbol.
// Returns 400 Bad Request if the ticker is missing or malformed.
//
// Example usage in router:
//
//	r.Route("/{ticker}", func(r chi.Router) {
//	    r.Use(middleware.ValidateTickerMiddleware)
//	    r.Put("/", handler.UpdatePosition)
//	    r.Delete("/", handler.RemovePosition)
//	})
func ValidateTickerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := chi.URLParam(r, "ticker")

		if ticker == "" {
			response.RespondError(w, http.StatusBadRequest, "ticker is required", "")
			return
		}

		if err := validation.ValidateTicker(ticker); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid ticker format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
