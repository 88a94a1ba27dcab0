package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// rebalanceCmd implements the "rebalance" command.
type rebalanceCmd struct {
	simulate bool
	apply    bool
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "propose trades toward the target allocations" }
func (*rebalanceCmd) Usage() string {
	return `pfctl [-file <portfolio.csv>] rebalance [-simulate] [-apply]

  Proposes BUY and SELL trades that move the portfolio toward its target
  allocations while keeping the cash buffer. Nothing is traded.

  -simulate also prints the valuation after the trades.
  -apply writes the simulated positions and cash back to the portfolio file.
`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.simulate, "simulate", false, "Print the valuation that would result from the plan")
	f.BoolVar(&c.apply, "apply", false, "Record the planned trades in the portfolio file")
}

func (c *rebalanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if !c.simulate && !c.apply {
		plan, err := a.PortfolioService.Rebalance(ctx)
		if err != nil {
			fail("planning rebalance: %v", err)
			return subcommands.ExitFailure
		}
		printMarkdown(RebalanceMarkdown(plan))
		return subcommands.ExitSuccess
	}

	run := a.PortfolioService.Simulate
	if c.apply {
		run = a.PortfolioService.ApplyRebalance
	}
	sim, err := run(ctx)
	if err != nil {
		fail("simulating rebalance: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(RebalanceMarkdown(sim.Plan) + ValuationMarkdown(sim.Valuation))

	if c.apply {
		if err := a.PortfolioService.Save(); err != nil {
			fail("saving portfolio: %v", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Recorded %d trades in %s\n", len(sim.Plan.Actions), a.PortfolioService.File())
	}
	return subcommands.ExitSuccess
}
