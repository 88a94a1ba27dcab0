package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ndewijer/portfolio-tracker/internal/api/response"
	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/validation"
)

// maxBodyBytes limits JSON and CSV request bodies.
const maxBodyBytes = 1 << 20

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	response.RespondJSON(w, status, data)
}

// ValidationDetail is the error detail of a rejected portfolio value.
type ValidationDetail struct {
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// respondServiceError maps a service error to its HTTP status:
//
//	validation             400
//	position not found     404
//	duplicate ticker       409
//	concurrent change      409
//	missing price          422
//	market data unavailable 502
//	timeout                504
//
// Anything else is a 500 with message as the error text.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	var fieldsErr *validation.Error
	var valueErr *apperrors.ValidationError

	switch {
	case errors.As(err, &fieldsErr):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrValidation.Error(), fieldsErr.Fields)
	case errors.As(err, &valueErr):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrValidation.Error(), ValidationDetail{
			Row:     valueErr.Row,
			Field:   valueErr.Field,
			Message: valueErr.Message,
		})
	case errors.Is(err, apperrors.ErrEmptyQuery):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrEmptyQuery.Error(), "")
	case errors.Is(err, apperrors.ErrNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrNotFound.Error(), err.Error())
	case errors.Is(err, apperrors.ErrDuplicateTicker):
		response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateTicker.Error(), err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		response.RespondError(w, http.StatusConflict, apperrors.ErrConflict.Error(), err.Error())
	case errors.Is(err, apperrors.ErrMissingPrice):
		response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrMissingPrice.Error(), err.Error())
	case errors.Is(err, apperrors.ErrDataUnavailable):
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrDataUnavailable.Error(), err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		response.RespondError(w, http.StatusGatewayTimeout, "request timed out", err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}

// decodeJSON decodes a size-limited JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
