package handlers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-tracker/internal/api/request"
	"github.com/ndewijer/portfolio-tracker/internal/api/response"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/service"
	"github.com/ndewijer/portfolio-tracker/internal/validation"
)

// PortfolioHandler handles portfolio-related HTTP requests.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the portfolioService.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// PortfolioResponse represents the portfolio get response
type PortfolioResponse struct {
	Positions             []model.Position `json:"positions"`
	CashBalance           float64          `json:"cashBalance"`
	TotalTargetAllocation float64          `json:"totalTargetAllocation"`
}

func newPortfolioResponse(p model.Portfolio) PortfolioResponse {
	resp := PortfolioResponse{Positions: p.Positions, CashBalance: p.CashBalance}
	if resp.Positions == nil {
		resp.Positions = []model.Position{}
	}
	for _, pos := range p.Positions {
		resp.TotalTargetAllocation += pos.TargetAllocation
	}
	return resp
}

// Portfolio returns the current positions and cash balance.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with PortfolioResponse
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newPortfolioResponse(h.portfolioService.Portfolio()))
}

// Upload replaces the portfolio with an uploaded CSV file. The file is
// either the raw request body or the "file" field of a multipart form.
//
// Endpoint: POST /api/portfolio/upload
// Response: 200 OK with PortfolioResponse
// Error: 400 Bad Request naming the offending row and column
func (h *PortfolioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "file is required", err.Error())
			return
		}
		defer file.Close()
		body = file
	}

	p, err := h.portfolioService.Upload(body)
	if err != nil {
		respondServiceError(w, err, "Failed to load portfolio")
		return
	}
	respondJSON(w, http.StatusOK, newPortfolioResponse(p))
}

// Reload re-reads the configured portfolio file, discarding unsaved changes.
//
// Endpoint: POST /api/portfolio/reload
// Response: 200 OK with PortfolioResponse
// Error: 400 Bad Request if the file is invalid, 500 if it cannot be read
func (h *PortfolioHandler) Reload(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolioService.Reload()
	if err != nil {
		respondServiceError(w, err, "Failed to reload portfolio")
		return
	}
	respondJSON(w, http.StatusOK, newPortfolioResponse(p))
}

// Save writes the portfolio to the configured portfolio file.
//
// Endpoint: POST /api/portfolio/save
// Response: 204 No Content
// Error: 500 Internal Server Error if the file cannot be written
func (h *PortfolioHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.Save(); err != nil {
		respondServiceError(w, err, "Failed to save portfolio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download returns the portfolio in the CSV file format.
//
// Endpoint: GET /api/portfolio/export
// Response: 200 OK with text/csv body
func (h *PortfolioHandler) Download(w http.ResponseWriter, r *http.Request) {
	var buf strings.Builder
	if err := h.portfolioService.Export(&buf); err != nil {
		respondServiceError(w, err, "Failed to export portfolio")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio.csv"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, buf.String()) //nolint:errcheck // Client went away
}

// AddPosition adds a new position. Unless verify is false the ticker must
// have a market price.
//
// Endpoint: POST /api/portfolio/position
// Request: AddPositionRequest
// Response: 201 Created with the position
// Error: 400 Bad Request, 409 Conflict if held, 502 Bad Gateway if the ticker has no price
func (h *PortfolioHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	var req request.AddPositionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateAddPosition(req); err != nil {
		respondServiceError(w, err, "")
		return
	}

	verify := req.Verify == nil || *req.Verify
	pos, err := h.portfolioService.AddPosition(r.Context(), model.Position{
		Ticker:           req.Ticker,
		Quantity:         req.Quantity,
		Dividends:        req.Dividends,
		TransactionCost:  req.TransactionCost,
		TargetAllocation: req.TargetAllocation,
	}, verify)
	if err != nil {
		respondServiceError(w, err, "Failed to add position")
		return
	}
	respondJSON(w, http.StatusCreated, pos)
}

// UpdatePosition applies a partial update to a held position.
//
// Endpoint: PUT /api/portfolio/position/{ticker}
// Request: UpdatePositionRequest
// Response: 200 OK with the position
// Error: 400 Bad Request, 404 Not Found
func (h *PortfolioHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePositionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateUpdatePosition(req); err != nil {
		respondServiceError(w, err, "")
		return
	}

	pos, err := h.portfolioService.UpdatePosition(chi.URLParam(r, "ticker"), model.PositionUpdate{
		Quantity:         req.Quantity,
		Dividends:        req.Dividends,
		TransactionCost:  req.TransactionCost,
		TargetAllocation: req.TargetAllocation,
	})
	if err != nil {
		respondServiceError(w, err, "Failed to update position")
		return
	}
	respondJSON(w, http.StatusOK, pos)
}

// RemovePosition deletes a held position.
//
// Endpoint: DELETE /api/portfolio/position/{ticker}
// Response: 204 No Content
// Error: 404 Not Found
func (h *PortfolioHandler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.RemovePosition(chi.URLParam(r, "ticker")); err != nil {
		respondServiceError(w, err, "Failed to remove position")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCash replaces the cash balance.
//
// Endpoint: PUT /api/portfolio/cash
// Request: SetCashRequest
// Response: 200 OK with PortfolioResponse
func (h *PortfolioHandler) SetCash(w http.ResponseWriter, r *http.Request) {
	var req request.SetCashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateSetCash(req); err != nil {
		respondServiceError(w, err, "")
		return
	}
	if err := h.portfolioService.SetCash(*req.CashBalance); err != nil {
		respondServiceError(w, err, "Failed to set cash balance")
		return
	}
	respondJSON(w, http.StatusOK, newPortfolioResponse(h.portfolioService.Portfolio()))
}

// Valuation prices the portfolio at the latest market prices. Positions
// without a price are listed under excluded.
//
// Endpoint: GET /api/portfolio/valuation
// Response: 200 OK with model.ValuationSnapshot
// Error: 422 Unprocessable Entity when every price is required and one is missing
func (h *PortfolioHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.portfolioService.Valuation(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to value portfolio")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// RiskMetricsResponse is model.RiskMetrics with undefined values as null.
type RiskMetricsResponse struct {
	Ticker               string   `json:"ticker"`
	Observations         int      `json:"observations"`
	Volatility           *float64 `json:"volatility"`
	AnnualizedVolatility *float64 `json:"annualizedVolatility"`
	SharpeRatio          *float64 `json:"sharpeRatio"`
	Beta                 *float64 `json:"beta"`
	Alpha                *float64 `json:"alpha"`
	RSquared             *float64 `json:"rSquared"`
	VaR                  *float64 `json:"var"`
	VaRAmount            *float64 `json:"varAmount"`
	MaxDrawdown          *float64 `json:"maxDrawdown"`
}

// RiskResponse represents the risk report response
type RiskResponse struct {
	Start        string                `json:"start"`
	End          string                `json:"end"`
	Benchmark    string                `json:"benchmark"`
	RiskFreeRate float64               `json:"riskFreeRate"`
	Confidence   float64               `json:"confidence"`
	Positions    []RiskMetricsResponse `json:"positions"`
	Portfolio    RiskMetricsResponse   `json:"portfolio"`
	Failures     []model.FetchFailure  `json:"failures"`
	Stale        []string              `json:"stale"`
	Warnings     []model.Warning       `json:"warnings"`
}

func newRiskMetricsResponse(m model.RiskMetrics) RiskMetricsResponse {
	return RiskMetricsResponse{
		Ticker:               m.Ticker,
		Observations:         m.Observations,
		Volatility:           response.Float(m.Volatility),
		AnnualizedVolatility: response.Float(m.AnnualizedVolatility),
		SharpeRatio:          response.Float(m.SharpeRatio),
		Beta:                 response.Float(m.Beta),
		Alpha:                response.Float(m.Alpha),
		RSquared:             response.Float(m.RSquared),
		VaR:                  response.Float(m.VaR),
		VaRAmount:            response.Float(m.VaRAmount),
		MaxDrawdown:          response.Float(m.MaxDrawdown),
	}
}

// Risk computes risk metrics over a lookback window against a benchmark.
//
// Endpoint: GET /api/portfolio/risk
// Query params: period (1m,3m,6m,1y,YTD,3y,5y), start, end (YYYY-MM-DD), benchmark
// Response: 200 OK with RiskResponse
// Error: 400 Bad Request on bad parameters, 502 Bad Gateway if the benchmark cannot be fetched
func (h *PortfolioHandler) Risk(w http.ResponseWriter, r *http.Request) {
	q, window, ok := h.parseAnalysis(w, r)
	if !ok {
		return
	}

	report, err := h.portfolioService.Risk(r.Context(), window, q.Benchmark)
	if err != nil {
		respondServiceError(w, err, "Failed to compute risk metrics")
		return
	}

	resp := RiskResponse{
		Start:        report.Window.Start.Format("2006-01-02"),
		End:          report.Window.End.Format("2006-01-02"),
		Benchmark:    report.Benchmark,
		RiskFreeRate: report.RiskFreeRate,
		Confidence:   report.Confidence,
		Positions:    make([]RiskMetricsResponse, len(report.Positions)),
		Portfolio:    newRiskMetricsResponse(report.Portfolio),
		Failures:     report.Failures,
		Stale:        report.Stale,
		Warnings:     report.Warnings,
	}
	for i, m := range report.Positions {
		resp.Positions[i] = newRiskMetricsResponse(m)
	}
	respondJSON(w, http.StatusOK, resp)
}

// PerformanceMetricsResponse is model.PerformanceMetrics with undefined values as null.
type PerformanceMetricsResponse struct {
	Ticker               string              `json:"ticker"`
	Observations         int                 `json:"observations"`
	TotalReturn          *float64            `json:"totalReturn"`
	AnnualizedReturn     *float64            `json:"annualizedReturn"`
	AnnualizedVolatility *float64            `json:"annualizedVolatility"`
	SharpeRatio          *float64            `json:"sharpeRatio"`
	MaxDrawdown          *float64            `json:"maxDrawdown"`
	Cumulative           []model.ReturnPoint `json:"cumulative"`
}

// PerformanceResponse represents the performance report response
type PerformanceResponse struct {
	Start       string                       `json:"start"`
	End         string                       `json:"end"`
	Positions   []PerformanceMetricsResponse `json:"positions"`
	Portfolio   PerformanceMetricsResponse   `json:"portfolio"`
	Benchmark   *PerformanceMetricsResponse  `json:"benchmark"`
	Tickers     []string                     `json:"tickers"`
	Correlation [][]*float64                 `json:"correlation"`
	Failures    []model.FetchFailure         `json:"failures"`
	Warnings    []model.Warning              `json:"warnings"`
}

func newPerformanceMetricsResponse(m model.PerformanceMetrics) PerformanceMetricsResponse {
	curve := m.Cumulative
	if curve == nil {
		curve = []model.ReturnPoint{}
	}
	return PerformanceMetricsResponse{
		Ticker:               m.Ticker,
		Observations:         m.Observations,
		TotalReturn:          response.Float(m.TotalReturn),
		AnnualizedReturn:     response.Float(m.AnnualizedReturn),
		AnnualizedVolatility: response.Float(m.AnnualizedVolatility),
		SharpeRatio:          response.Float(m.SharpeRatio),
		MaxDrawdown:          response.Float(m.MaxDrawdown),
		Cumulative:           curve,
	}
}

// Performance summarizes returns over a lookback window.
//
// Endpoint: GET /api/portfolio/performance
// Query params: period (1m,3m,6m,1y,YTD,3y,5y), start, end (YYYY-MM-DD), benchmark
// Response: 200 OK with PerformanceResponse
// Error: 400 Bad Request on bad parameters
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	q, window, ok := h.parseAnalysis(w, r)
	if !ok {
		return
	}

	report, err := h.portfolioService.Performance(r.Context(), window, q.Benchmark)
	if err != nil {
		respondServiceError(w, err, "Failed to compute performance")
		return
	}

	resp := PerformanceResponse{
		Start:       report.Window.Start.Format("2006-01-02"),
		End:         report.Window.End.Format("2006-01-02"),
		Positions:   make([]PerformanceMetricsResponse, len(report.Positions)),
		Portfolio:   newPerformanceMetricsResponse(report.Portfolio),
		Tickers:     report.Tickers,
		Correlation: response.Matrix(report.Correlation),
		Failures:    report.Failures,
		Warnings:    report.Warnings,
	}
	for i, m := range report.Positions {
		resp.Positions[i] = newPerformanceMetricsResponse(m)
	}
	if report.Benchmark != nil {
		bm := newPerformanceMetricsResponse(*report.Benchmark)
		resp.Benchmark = &bm
	}
	respondJSON(w, http.StatusOK, resp)
}

// Rebalance proposes trades toward the target allocations. Nothing is executed.
//
// Endpoint: GET /api/portfolio/rebalance
// Response: 200 OK with model.RebalancePlan
func (h *PortfolioHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	plan, err := h.portfolioService.Rebalance(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to plan rebalance")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// Simulate proposes a rebalance and returns the portfolio and valuation
// that would result from it. The stored portfolio is not changed.
//
// Endpoint: POST /api/portfolio/rebalance/simulate
// Response: 200 OK with model.RebalanceSimulation
func (h *PortfolioHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	sim, err := h.portfolioService.Simulate(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to simulate rebalance")
		return
	}
	respondJSON(w, http.StatusOK, sim)
}

// ApplyRebalance records the planned trades in the portfolio as if they had
// been executed. The portfolio file is only written by a later save.
//
// Endpoint: POST /api/portfolio/rebalance/apply
// Response: 200 OK with model.RebalanceSimulation
func (h *PortfolioHandler) ApplyRebalance(w http.ResponseWriter, r *http.Request) {
	sim, err := h.portfolioService.ApplyRebalance(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to apply rebalance")
		return
	}
	respondJSON(w, http.StatusOK, sim)
}

func (h *PortfolioHandler) parseAnalysis(w http.ResponseWriter, r *http.Request) (*request.AnalysisQuery, model.Window, bool) {
	query := r.URL.Query()
	q, err := request.ParseAnalysisQuery(query.Get("period"), query.Get("start"), query.Get("end"), query.Get("benchmark"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return nil, model.Window{}, false
	}
	if q.Benchmark != "" {
		if err := validation.ValidateTicker(q.Benchmark); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
			return nil, model.Window{}, false
		}
	}

	window, err := h.portfolioService.ResolveWindow(q.Period, q.Start, q.End)
	if err != nil {
		respondServiceError(w, err, "")
		return nil, model.Window{}, false
	}
	return q, window, true
}
