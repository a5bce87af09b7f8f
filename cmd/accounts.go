package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/journal"
	"github.com/google/subcommands"
)

type accountsCmd struct {
	delete string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list or delete the accounts of the journal" }
func (*accountsCmd) Usage() string {
	return `tj accounts [-delete <account>]

  Lists the accounts with at least one trade. With -delete, removes every
  trade, position, stop-loss and equity point of the account.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.delete, "delete", "", "Account to delete.")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	if c.delete != "" {
		if err := e.store.DeleteAccount(ctx, c.delete); err != nil {
			return failf(subcommands.ExitFailure, "Error deleting account %q: %v", c.delete, err)
		}
		fmt.Fprintf(stdout, "Account %s deleted\n", c.delete)
		return subcommands.ExitSuccess
	}

	accounts, err := e.store.Accounts(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	for _, a := range accounts {
		fmt.Fprintln(stdout, a)
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	account string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the trades of an account as JSONL" }
func (*exportCmd) Usage() string {
	return `tj export -a <account> > trades.jsonl

  Writes every trade of the account, one per line, in the format accepted by
  tj import.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to export.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return failf(subcommands.ExitUsageError, "Error: an account is required (-a)")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	trades, err := e.store.TradesByAccount(ctx, c.account)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error loading trades: %v", err)
	}
	if err := journal.EncodeTrades(stdout, trades); err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	return subcommands.ExitSuccess
}
