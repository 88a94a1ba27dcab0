package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/subcommands"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// analysisFlags are the lookback and benchmark flags shared by risk and performance.
type analysisFlags struct {
	period    string
	start     string
	end       string
	benchmark string
}

func (c *analysisFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "", "Lookback period: "+strings.Join(model.Periods, ", ")+". Defaults to DEFAULT_PERIOD.")
	f.StringVar(&c.start, "start", "", "Window start (YYYY-MM-DD). Takes precedence over -period.")
	f.StringVar(&c.end, "end", "", "Window end (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.benchmark, "benchmark", "", "Benchmark ticker. Defaults to BENCHMARK.")
}

// riskCmd implements the "risk" command.
type riskCmd struct {
	analysisFlags
}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "compute volatility, beta, alpha, VaR and drawdown" }
func (*riskCmd) Usage() string {
	return `pfctl [-file <portfolio.csv>] risk [-period 1y | -start <date> [-end <date>]] [-benchmark SPY]

  Computes risk metrics of every position and of the held portfolio
  against a benchmark over the lookback window.
`
}

func (c *riskCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	window, err := a.PortfolioService.ResolveWindow(c.period, c.start, c.end)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	report, err := a.PortfolioService.Risk(ctx, window, c.benchmark)
	if err != nil {
		fail("computing risk: %v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(RiskMarkdown(report))
	return subcommands.ExitSuccess
}

// performanceCmd implements the "performance" command.
type performanceCmd struct {
	analysisFlags
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "summarize returns and correlations over a period" }
func (*performanceCmd) Usage() string {
	return `pfctl [-file <portfolio.csv>] performance [-period 1y | -start <date> [-end <date>]] [-benchmark SPY]

  Reports total and annualized returns, volatility, Sharpe ratio and
  drawdown of every position, the held portfolio and the benchmark, plus
  the correlation matrix of position returns.
`
}

func (c *performanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	window, err := a.PortfolioService.ResolveWindow(c.period, c.start, c.end)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	report, err := a.PortfolioService.Performance(ctx, window, c.benchmark)
	if err != nil {
		fail("computing performance: %v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(PerformanceMarkdown(report))
	return subcommands.ExitSuccess
}
