// Command roomctl is a composition-root CLI over the game-authority
// runtime: it wires a Room, its session manager, economy engine, sync
// engine, and moderation/integrity stack in a single process and
// drives them from canned input (a scripted demo hand and a ledger
// export check); it reads no interactive input. It owns no transport
// of its own (spec.md's non-goal); everything here is local
// demonstration and smoke-testing scaffolding around the library
// packages.
package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

// CLI is the roomctl command tree: one sub-command per operating mode.
type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Demo    DemoCmd          `cmd:"" help:"Run a scripted heads-up hand end to end and print the resulting events"`
	Ledger  LedgerCmd        `cmd:"" help:"Replay a ledger export and verify its hash chain"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("roomctl"),
		kong.Description("Operate and inspect a poker game-authority room"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
