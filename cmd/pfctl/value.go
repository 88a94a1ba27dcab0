package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

// valueCmd implements the "value" command.
type valueCmd struct{}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the portfolio at the latest market prices" }
func (*valueCmd) Usage() string {
	return `pfctl [-file <portfolio.csv>] value

  Prices every position at its latest close and prints market values,
  allocations and net value. Positions without a price are listed as excluded.
`
}

func (*valueCmd) SetFlags(*flag.FlagSet) {}

func (*valueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snap, err := a.PortfolioService.Valuation(ctx)
	if err != nil {
		fail("valuing portfolio: %v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(ValuationMarkdown(snap))
	return subcommands.ExitSuccess
}
