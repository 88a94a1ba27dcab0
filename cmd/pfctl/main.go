// Command pfctl values, analyzes and rebalances a portfolio file from the
// command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&valueCmd{}, "portfolio")
	commander.Register(&riskCmd{}, "analysis")
	commander.Register(&performanceCmd{}, "analysis")
	commander.Register(&rebalanceCmd{}, "portfolio")
	commander.Register(&searchCmd{}, "market")
	commander.Register(&versionCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
