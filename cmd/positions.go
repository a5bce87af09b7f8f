package cmd

import (
	"context"
	"flag"

	"github.com/etnz/journal"
	"github.com/etnz/journal/renderer"
	"github.com/google/subcommands"
)

type positionsCmd struct {
	marketFlags
	account string
	closed  bool
	json    bool
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "display the positions of an account" }
func (*positionsCmd) Usage() string {
	return `tj positions -a <account> [-closed] [-d <date>] [-q TICKER=PRICE,...] [-assets <amount>] [-json]

  Lists the active positions of the account, valued at the given quotes, with
  their risk when stop-losses fire.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	c.marketFlags.SetFlags(f)
	f.StringVar(&c.account, "a", "", "Account to report on.")
	f.BoolVar(&c.closed, "closed", false, "Also list closed positions.")
	f.BoolVar(&c.json, "json", false, "Print the positions as JSON.")
}

func (c *positionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return failf(subcommands.ExitUsageError, "Error: an account is required (-a)")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	m, err := c.parse(e.cfg.Settings.Currency)
	if err != nil {
		return failf(subcommands.ExitUsageError, "Error: %v", err)
	}
	positions, err := e.store.PositionsByAccount(ctx, c.account)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error loading positions: %v", err)
	}
	equity, err := e.store.EquityCurve(ctx, c.account)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error loading equity curve: %v", err)
	}
	m = m.withEquity(equity)
	if m, err = m.withQuotes(ctx, e, positions); err != nil {
		return failf(subcommands.ExitFailure, "Error fetching quotes: %v", err)
	}

	if c.json {
		list := []journal.Position{}
		for _, p := range positions {
			if p.IsActive() || c.closed {
				list = append(list, p)
			}
		}
		if err := writeJSON(list); err != nil {
			return failf(subcommands.ExitFailure, "Error: %v", err)
		}
		return subcommands.ExitSuccess
	}

	view := renderer.NewPositions(c.account, positions, m.quotes, m.assets, m.on, e.cfg.Settings, c.closed)
	printMarkdown(renderer.RenderPositions(view))
	return subcommands.ExitSuccess
}
