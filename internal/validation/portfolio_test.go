package validation

import (
	"errors"
	"testing"

	"github.com/ndewijer/portfolio-tracker/internal/api/request"
	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
)

func ptr(v float64) *float64 { return &v }

func TestValidateTicker(t *testing.T) {
	valid := []string{"AAPL", "brk-b", "BRK.B", "^GSPC", "EURUSD=X", "ASML.AS", " vti "}
	for _, ticker := range valid {
		if err := ValidateTicker(ticker); err != nil {
			t.Errorf("Expected %q to be valid, got %v", ticker, err)
		}
	}

	invalid := []string{"", "   ", "AA PL", "$AAPL", "A;DROP", "ABCDEFGHIJKLMNOPQRSTUV"}
	for _, ticker := range invalid {
		if err := ValidateTicker(ticker); !errors.Is(err, ErrInvalidTicker) {
			t.Errorf("Expected %q to be invalid, got %v", ticker, err)
		}
	}
}

func TestValidateAddPosition(t *testing.T) {
	tests := []struct {
		name       string
		req        request.AddPositionRequest
		wantFields []string
	}{
		{
			name: "valid request",
			req:  request.AddPositionRequest{Ticker: "AAPL", Quantity: 10, TargetAllocation: 0.5},
		},
		{
			name:       "missing ticker",
			req:        request.AddPositionRequest{Quantity: 10},
			wantFields: []string{"ticker"},
		},
		{
			name:       "negative amounts",
			req:        request.AddPositionRequest{Ticker: "AAPL", Quantity: -1, Dividends: -2, TransactionCost: -3},
			wantFields: []string{"quantity", "dividends", "transactionCost"},
		},
		{
			name:       "allocation above one",
			req:        request.AddPositionRequest{Ticker: "AAPL", TargetAllocation: 1.5},
			wantFields: []string{"targetAllocation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddPosition(tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Error("Expected error to match ErrValidation")
			}
			for _, field := range tt.wantFields {
				if _, ok := verr.Fields[field]; !ok {
					t.Errorf("Expected field %q in %v", field, verr.Fields)
				}
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("Expected %d fields, got %v", len(tt.wantFields), verr.Fields)
			}
		})
	}
}

func TestValidateUpdatePosition(t *testing.T) {
	t.Run("empty update is rejected", func(t *testing.T) {
		var verr *Error
		if !errors.As(ValidateUpdatePosition(request.UpdatePositionRequest{}), &verr) {
			t.Fatal("Expected *Error for empty update")
		}
		if _, ok := verr.Fields["body"]; !ok {
			t.Errorf("Expected body field, got %v", verr.Fields)
		}
	})

	t.Run("only provided fields are checked", func(t *testing.T) {
		if err := ValidateUpdatePosition(request.UpdatePositionRequest{Quantity: ptr(0)}); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("allocation out of range", func(t *testing.T) {
		var verr *Error
		if !errors.As(ValidateUpdatePosition(request.UpdatePositionRequest{TargetAllocation: ptr(-0.1)}), &verr) {
			t.Fatal("Expected *Error")
		}
		if _, ok := verr.Fields["targetAllocation"]; !ok {
			t.Errorf("Expected targetAllocation field, got %v", verr.Fields)
		}
	})
}

func TestValidateSetCash(t *testing.T) {
	if err := ValidateSetCash(request.SetCashRequest{CashBalance: ptr(0)}); err != nil {
		t.Errorf("Expected zero cash to be valid, got %v", err)
	}
	if err := ValidateSetCash(request.SetCashRequest{}); err == nil {
		t.Error("Expected error for missing cashBalance")
	}
	if err := ValidateSetCash(request.SetCashRequest{CashBalance: ptr(-5)}); err == nil {
		t.Error("Expected error for negative cashBalance")
	}
}

func TestError_Error(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "second", "a": "first"}}
	if got := err.Error(); got != "a: first; b: second" {
		t.Errorf("Expected sorted message, got %q", got)
	}
}
