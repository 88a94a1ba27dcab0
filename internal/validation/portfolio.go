package validation

import (
	"strings"

	"github.com/ndewijer/portfolio-tracker/internal/api/request"
)

func ValidateAddPosition(req request.AddPositionRequest) error {
	errors := make(map[string]string)

	// Required field
	if strings.TrimSpace(req.Ticker) == "" {
		errors["ticker"] = "ticker is required"
	} else if err := ValidateTicker(req.Ticker); err != nil {
		errors["ticker"] = "ticker is not a valid symbol"
	}

	if !nonNegative(req.Quantity) {
		errors["quantity"] = "quantity must be zero or positive"
	}
	if !nonNegative(req.Dividends) {
		errors["dividends"] = "dividends must be zero or positive"
	}
	if !nonNegative(req.TransactionCost) {
		errors["transactionCost"] = "transactionCost must be zero or positive"
	}
	if !fraction(req.TargetAllocation) {
		errors["targetAllocation"] = "targetAllocation must be between 0 and 1"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateUpdatePosition(req request.UpdatePositionRequest) error {
	errors := make(map[string]string)

	if req.Quantity == nil && req.Dividends == nil && req.TransactionCost == nil && req.TargetAllocation == nil {
		errors["body"] = "at least one field must be provided"
	}

	// Only validate provided fields
	if req.Quantity != nil && !nonNegative(*req.Quantity) {
		errors["quantity"] = "quantity must be zero or positive"
	}
	if req.Dividends != nil && !nonNegative(*req.Dividends) {
		errors["dividends"] = "dividends must be zero or positive"
	}
	if req.TransactionCost != nil && !nonNegative(*req.TransactionCost) {
		errors["transactionCost"] = "transactionCost must be zero or positive"
	}
	if req.TargetAllocation != nil && !fraction(*req.TargetAllocation) {
		errors["targetAllocation"] = "targetAllocation must be between 0 and 1"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateSetCash(req request.SetCashRequest) error {
	errors := make(map[string]string)

	if req.CashBalance == nil {
		errors["cashBalance"] = "cashBalance is required"
	} else if !nonNegative(*req.CashBalance) {
		errors["cashBalance"] = "cashBalance must be zero or positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
