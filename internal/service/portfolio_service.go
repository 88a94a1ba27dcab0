package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/market"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/portfolio"
)

// DefaultSearchLimit caps ticker search results when the caller gives no limit.
const DefaultSearchLimit = 10

// PortfolioService is the single logical session over one portfolio.
// It owns the store, fetches market data and runs the engines.
//
// Store mutations are synchronous and visible to the next computation.
// Computations (valuation, risk, performance, rebalance) run one at a time;
// their price fetches fan out in parallel and never write the store.
type PortfolioService struct {
	compute sync.Mutex

	store     *portfolio.Store
	provider  market.Provider
	valuation *ValuationEngine
	risk      *RiskEngine
	rebalance *RebalanceEngine

	fileMu sync.Mutex
	file   string

	market config.MarketConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewPortfolioService creates a PortfolioService over store. The engines are
// configured from cfg; the portfolio file defaults to cfg.Portfolio.File.
func NewPortfolioService(store *portfolio.Store, provider market.Provider, cfg *config.Config, logger zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		store:     store,
		provider:  provider,
		valuation: NewValuationEngine(cfg.Valuation),
		risk:      NewRiskEngine(cfg.Market),
		rebalance: NewRebalanceEngine(cfg.Rebalance),
		file:      cfg.Portfolio.File,
		market:    cfg.Market,
		logger:    logger.With().Str("component", "portfolio_service").Logger(),
		now:       time.Now,
	}
}

// SetClock replaces the reference clock used to resolve lookback periods.
func (s *PortfolioService) SetClock(now func() time.Time) {
	s.now = now
}

// File returns the portfolio file used by Reload and Save.
func (s *PortfolioService) File() string {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.file
}

// LoadFile replaces the portfolio with the contents of path and makes path
// the file used by Reload and Save. The file is decoded completely before
// the store is touched.
func (s *PortfolioService) LoadFile(path string) (model.Portfolio, error) {
	records, err := portfolio.ReadFile(path)
	if err != nil {
		return model.Portfolio{}, err
	}
	if err := s.store.Load(records); err != nil {
		return model.Portfolio{}, err
	}

	s.fileMu.Lock()
	s.file = path
	s.fileMu.Unlock()

	p := s.store.Snapshot()
	s.logger.Info().Str("file", path).Int("positions", len(p.Positions)).Msg("portfolio loaded")
	return p, nil
}

// Reload re-reads the current portfolio file, discarding unsaved changes.
func (s *PortfolioService) Reload() (model.Portfolio, error) {
	return s.LoadFile(s.File())
}

// Save writes the portfolio to the current portfolio file. With no
// positions only the header is written and the cash balance is lost.
func (s *PortfolioService) Save() error {
	path := s.File()
	p := s.store.Snapshot()
	if err := portfolio.WriteFile(path, p); err != nil {
		return err
	}
	s.logger.Info().Str("file", path).Int("positions", len(p.Positions)).Msg("portfolio saved")
	return nil
}

// Upload replaces the portfolio with CSV read from r.
func (s *PortfolioService) Upload(r io.Reader) (model.Portfolio, error) {
	records, err := portfolio.DecodeCSV(r)
	if err != nil {
		return model.Portfolio{}, err
	}
	if err := s.store.Load(records); err != nil {
		return model.Portfolio{}, err
	}
	return s.store.Snapshot(), nil
}

// Export writes the portfolio to w in the portfolio file format.
func (s *PortfolioService) Export(w io.Writer) error {
	return portfolio.EncodeCSV(w, s.store.Snapshot())
}

// Portfolio returns a copy of the current positions and cash.
func (s *PortfolioService) Portfolio() model.Portfolio {
	return s.store.Snapshot()
}

// AddPosition adds a new holding. With verify set the ticker must have a
// latest price before it is accepted, which catches typos and delisted
// symbols; the lookup failure is returned as is.
func (s *PortfolioService) AddPosition(ctx context.Context, p model.Position, verify bool) (model.Position, error) {
	p.Ticker = portfolio.NormalizeTicker(p.Ticker)
	if p.Ticker == "" {
		return model.Position{}, apperrors.NewValidationError("ticker", "ticker is required")
	}
	if _, err := s.store.Position(p.Ticker); err == nil {
		return model.Position{}, &apperrors.DuplicateTickerError{Ticker: p.Ticker}
	}
	if verify {
		if _, err := s.provider.LatestPrice(ctx, p.Ticker); err != nil {
			return model.Position{}, err
		}
	}
	if err := s.store.AddPosition(p); err != nil {
		return model.Position{}, err
	}
	return s.store.Position(p.Ticker)
}

// UpdatePosition applies a partial update to a held ticker.
func (s *PortfolioService) UpdatePosition(ticker string, update model.PositionUpdate) (model.Position, error) {
	return s.store.UpdatePosition(ticker, update)
}

// RemovePosition deletes a held ticker.
func (s *PortfolioService) RemovePosition(ticker string) error {
	return s.store.RemovePosition(ticker)
}

// SetCash replaces the cash balance.
func (s *PortfolioService) SetCash(amount float64) error {
	return s.store.SetCashBalance(amount)
}

// ResolveWindow turns request parameters into a window. An explicit start
// and end win over period; with neither the configured default period is
// used. end alone means period back from end.
func (s *PortfolioService) ResolveWindow(period, start, end string) (model.Window, error) {
	ref := s.now()
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return model.Window{}, apperrors.NewValidationError("end", "must be a date in YYYY-MM-DD format")
		}
		ref = t
	}
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return model.Window{}, apperrors.NewValidationError("start", "must be a date in YYYY-MM-DD format")
		}
		w, err := model.NewWindow(t, ref)
		if err != nil {
			return model.Window{}, apperrors.NewValidationError("start", "%v", err)
		}
		return w, nil
	}
	if period == "" {
		period = s.market.Period
	}
	w, err := model.ParsePeriod(period, ref)
	if err != nil {
		return model.Window{}, apperrors.NewValidationError("period", "%v", err)
	}
	return w, nil
}

// Valuation prices every held position at its latest price.
func (s *PortfolioService) Valuation(ctx context.Context) (model.ValuationSnapshot, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	snap, _, err := s.value(ctx, s.store.Snapshot())
	return snap, err
}

// Risk computes risk metrics of every position and the held aggregate over
// window against benchmark (the configured benchmark when empty). Tickers
// whose history cannot be fetched are reported in Failures; a failing
// benchmark fails the run since no relative statistic can be computed.
func (s *PortfolioService) Risk(ctx context.Context, window model.Window, benchmark string) (model.RiskReport, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	p := s.store.Snapshot()
	benchmark = s.benchmark(benchmark)

	history, err := market.FetchHistory(ctx, s.provider, withTicker(p.Tickers(), benchmark), window, s.market.Concurrency)
	if err != nil {
		return model.RiskReport{}, err
	}
	bm, ok := history.Series[benchmark]
	if !ok {
		return model.RiskReport{}, history.Failures[benchmark]
	}

	report := s.risk.Compute(RiskInput{
		Tickers:   p.Tickers(),
		Series:    history.Series,
		Benchmark: bm,
		Holdings:  p.Quantities(),
		Window:    window,
	})
	report.Failures = history.FailureList()
	s.logFailures("risk", history.Failures)
	return report, nil
}

// Performance summarizes the return path of every position, the held
// aggregate and the benchmark over window. Unlike Risk, a failing benchmark
// is only reported in Failures.
func (s *PortfolioService) Performance(ctx context.Context, window model.Window, benchmark string) (model.PerformanceReport, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	p := s.store.Snapshot()
	benchmark = s.benchmark(benchmark)

	history, err := market.FetchHistory(ctx, s.provider, withTicker(p.Tickers(), benchmark), window, s.market.Concurrency)
	if err != nil {
		return model.PerformanceReport{}, err
	}

	in := PerformanceInput{
		Tickers:  p.Tickers(),
		Series:   history.Series,
		Holdings: p.Quantities(),
		Window:   window,
	}
	if bm, ok := history.Series[benchmark]; ok {
		in.Benchmark = &bm
	}

	report := s.risk.Performance(in)
	report.Failures = history.FailureList()
	s.logFailures("performance", history.Failures)
	return report, nil
}

// Rebalance proposes trades toward the positions' target allocations. The
// portfolio is not changed.
func (s *PortfolioService) Rebalance(ctx context.Context) (model.RebalancePlan, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	p := s.store.Snapshot()
	snap, _, err := s.value(ctx, p)
	if err != nil {
		return model.RebalancePlan{}, err
	}
	return s.rebalance.Plan(snap, p.TargetAllocations()), nil
}

// Simulate proposes a rebalance and values the portfolio that would result
// from executing it. The stored portfolio is not changed.
func (s *PortfolioService) Simulate(ctx context.Context) (model.RebalanceSimulation, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	return s.simulate(ctx, s.store.Snapshot())
}

// ApplyRebalance records the trades of a simulated rebalance in the store,
// as if they had been executed at the planned prices. The file is not
// written; call Save for that.
//
// Positions or cash edited while prices were being fetched make the plan
// stale; the apply then fails with a ConflictError and the edit is kept.
func (s *PortfolioService) ApplyRebalance(ctx context.Context) (model.RebalanceSimulation, error) {
	s.compute.Lock()
	defer s.compute.Unlock()

	p, version := s.store.VersionedSnapshot()
	sim, err := s.simulate(ctx, p)
	if err != nil {
		return model.RebalanceSimulation{}, err
	}
	if err := s.store.ReplaceIf(version, sim.Portfolio); err != nil {
		return model.RebalanceSimulation{}, fmt.Errorf("failed to apply rebalance %s: %w", sim.Plan.ID, err)
	}
	s.logger.Info().Str("plan", sim.Plan.ID).Int("actions", len(sim.Plan.Actions)).Msg("rebalance applied")
	return sim, nil
}

func (s *PortfolioService) simulate(ctx context.Context, p model.Portfolio) (model.RebalanceSimulation, error) {
	snap, prices, err := s.value(ctx, p)
	if err != nil {
		return model.RebalanceSimulation{}, err
	}
	plan := s.rebalance.Plan(snap, p.TargetAllocations())
	after, err := s.rebalance.Apply(p, plan)
	if err != nil {
		return model.RebalanceSimulation{}, fmt.Errorf("failed to simulate rebalance %s: %w", plan.ID, err)
	}

	afterSnap, err := s.valuation.Value(after, prices.Quotes, prices.Failures)
	if err != nil {
		return model.RebalanceSimulation{}, err
	}
	return model.RebalanceSimulation{Plan: plan, Portfolio: after, Valuation: afterSnap}, nil
}

// Quote returns the latest price of any ticker, held or not.
func (s *PortfolioService) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	ticker = portfolio.NormalizeTicker(ticker)
	if ticker == "" {
		return model.Quote{}, apperrors.NewValidationError("ticker", "ticker is required")
	}
	return s.provider.LatestPrice(ctx, ticker)
}

// Search looks up symbols matching query. It fails when the provider cannot search.
func (s *PortfolioService) Search(ctx context.Context, query string, limit int) ([]model.SymbolMatch, error) {
	searcher, ok := s.provider.(market.Searcher)
	if !ok {
		return nil, errors.New("symbol search is not supported by this price source")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return searcher.Search(ctx, query, limit)
}

func (s *PortfolioService) value(ctx context.Context, p model.Portfolio) (model.ValuationSnapshot, market.LatestPrices, error) {
	prices, err := market.FetchLatestPrices(ctx, s.provider, p.Tickers(), s.market.Concurrency)
	if err != nil {
		return model.ValuationSnapshot{}, market.LatestPrices{}, err
	}
	s.logFailures("valuation", prices.Failures)

	snap, err := s.valuation.Value(p, prices.Quotes, prices.Failures)
	if err != nil {
		return model.ValuationSnapshot{}, market.LatestPrices{}, err
	}
	return snap, prices, nil
}

func (s *PortfolioService) benchmark(ticker string) string {
	if ticker = portfolio.NormalizeTicker(ticker); ticker != "" {
		return ticker
	}
	return portfolio.NormalizeTicker(s.market.Benchmark)
}

func (s *PortfolioService) logFailures(op string, failures map[string]error) {
	for ticker, err := range failures {
		s.logger.Warn().Err(err).Str("op", op).Str("ticker", ticker).Msg("market data unavailable")
	}
}

// withTicker appends ticker unless it is already present.
func withTicker(tickers []string, ticker string) []string {
	if slices.Contains(tickers, ticker) {
		return tickers
	}
	return append(tickers, ticker)
}
