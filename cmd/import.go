package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/journal"
	"github.com/etnz/journal/renderer"
	"github.com/google/subcommands"
)

type importCmd struct {
	account string
	mode    string
	assets  string
	dryRun  bool
	verbose bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import broker trades into an account" }
func (*importCmd) Usage() string {
	return `tj import -a <account> [-mode FULL|APPEND] [-assets <amount>] [-n] [-v] [<file.jsonl> ...]

  Reconciles trades (one JSON object per line) with the journal of the account
  and saves the result. Trades already in the journal are skipped. Without
  files, trades are read from the standard input.

  A FULL import replaces the whole history of the account, and needs the
  current total assets of the account to rebuild its equity curve.
  An APPEND import extends it.

  The command fails if any trade was rejected. Accepted trades are saved anyway.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to import into.")
	f.StringVar(&c.mode, "mode", string(journal.AppendImport), "Import mode: FULL or APPEND.")
	f.StringVar(&c.assets, "assets", "", "Current total assets of the account, anchors the equity curve.")
	f.BoolVar(&c.dryRun, "n", false, "Dry run: reconcile and report, but do not save.")
	f.BoolVar(&c.verbose, "v", false, "List the imported trades.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return failf(subcommands.ExitUsageError, "Error: an account is required (-a)")
	}
	mode, err := journal.ParseImportMode(c.mode)
	if err != nil {
		return failf(subcommands.ExitUsageError, "Error: %v", err)
	}

	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	req := journal.ImportRequest{AccountID: c.account, Mode: mode}
	if c.assets != "" {
		assets, err := journal.ParseMoney(c.assets, e.cfg.Settings.Currency)
		if err != nil {
			return failf(subcommands.ExitUsageError, "Error parsing assets: %v", err)
		}
		req.CurrentAssets = &assets
	}

	if req.Trades, err = readTrades(f.Args()); err != nil {
		return failf(subcommands.ExitFailure, "Error reading trades: %v", err)
	}

	res, err := journal.NewReconciler(e.store, e.cfg.Settings, e.log).Import(ctx, req)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error reconciling trades: %v", err)
	}
	if !c.dryRun {
		if err := e.store.SaveImport(ctx, res); err != nil {
			return failf(subcommands.ExitFailure, "Error saving import: %v", err)
		}
	}

	printMarkdown(renderer.RenderImport(renderer.NewImport(res, c.verbose)))
	if res.IsMissingAnchor() {
		fmt.Fprintln(stderr, "Hint: pass the current total assets of the account with -assets to build its equity curve.")
	}
	if res.HasErrors() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// readTrades decodes the trades of every file in 'files', or of the standard
// input when there are none or the file is "-".
func readTrades(files []string) ([]journal.Trade, error) {
	if len(files) == 0 {
		files = []string{"-"}
	}
	var trades []journal.Trade
	for _, name := range files {
		var r io.Reader = stdin
		if name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		list, err := journal.DecodeTrades(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		trades = append(trades, list...)
	}
	return trades, nil
}
