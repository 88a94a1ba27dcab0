package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/subcommands"

	"github.com/ndewijer/portfolio-tracker/internal/service"
)

// searchCmd implements the "search" command.
type searchCmd struct {
	limit int
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search ticker symbols by name or symbol" }
func (*searchCmd) Usage() string {
	return `pfctl search [-limit 10] <search term>

  Looks up exchange symbols matching the search term, e.g. "apple" or "ASML".
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", service.DefaultSearchLimit, "Maximum number of results")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fail("a search term is required.")
		return subcommands.ExitUsageError
	}
	query := strings.Join(f.Args(), " ")

	a, err := openApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	matches, err := a.PortfolioService.Search(ctx, query, c.limit)
	if err != nil {
		fail("searching securities: %v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(SearchMarkdown(query, matches))
	return subcommands.ExitSuccess
}
