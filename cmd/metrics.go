package cmd

import (
	"context"
	"flag"

	"github.com/etnz/journal"
	"github.com/etnz/journal/renderer"
	"github.com/google/subcommands"
)

type metricsCmd struct {
	marketFlags
	account string
	period  string
	start   string
	json    bool
}

func (*metricsCmd) Name() string     { return "metrics" }
func (*metricsCmd) Synopsis() string { return "display the performance metrics of an account" }
func (*metricsCmd) Usage() string {
	return `tj metrics -a <account> [-p <period> | -s <start_date>] [-d <date>] [-q TICKER=PRICE,...] [-assets <amount>] [-cash <amount>] [-json]

  Computes the performance, expectancy, distribution, timing and portfolio
  metrics of the account. Closed positions count when they closed within the
  window, active positions when they were opened before its end.
`
}

func (c *metricsCmd) SetFlags(f *flag.FlagSet) {
	c.marketFlags.SetFlags(f)
	f.StringVar(&c.account, "a", "", "Account to report on.")
	f.StringVar(&c.period, "p", "inception", "Predefined period for the window (day, week, month, quarter, year, inception).")
	f.StringVar(&c.start, "s", "", "The start date for a custom window. Overrides -p.")
	f.BoolVar(&c.json, "json", false, "Print the metrics as JSON.")
}

func (c *metricsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	var window journal.Range
	if c.start != "" {
		start, err := journal.ParseDate(c.start)
		if err != nil {
			return failf(subcommands.ExitUsageError, "Error parsing start date: %v", err)
		}
		window = journal.NewRange(start, m.on)
	} else {
		period, err := journal.ParsePeriod(c.period)
		if err != nil {
			return failf(subcommands.ExitUsageError, "Error parsing period: %v", err)
		}
		window = period.ToDate(m.on)
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

	metrics := journal.ComputeMetrics(journal.MetricsInput{
		Positions:     journal.FilterPositions(positions, window),
		Quotes:        m.quotes,
		TotalAssets:   m.assets,
		Cash:          m.cash,
		AccountOpened: journal.OpenedOn(positions),
		AsOf:          m.on,
		Equity:        equity,
	}, e.cfg.Settings)

	if c.json {
		if err := writeJSON(metrics); err != nil {
			return failf(subcommands.ExitFailure, "Error: %v", err)
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderMetrics(renderer.NewMetrics(c.account, window, metrics)))
	return subcommands.ExitSuccess
}
