package response

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()

	RespondError(w, http.StatusNotFound, "position not found", "AAPL")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Error != "position not found" || body.Details != "AAPL" {
		t.Errorf("Unexpected body %+v", body)
	}
}

func TestFloat(t *testing.T) {
	if Float(math.NaN()) != nil {
		t.Error("Expected NaN to map to nil")
	}
	if Float(math.Inf(1)) != nil {
		t.Error("Expected +Inf to map to nil")
	}
	if v := Float(0); v == nil || *v != 0 {
		t.Error("Expected zero to be kept")
	}

	m := Matrix([][]float64{{1, math.NaN()}, {math.NaN(), 1}})
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Failed to marshal matrix: %v", err)
	}
	if string(out) != "[[1,null],[null,1]]" {
		t.Errorf("Unexpected JSON %s", out)
	}
}
