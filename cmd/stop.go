package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/journal"
	"github.com/etnz/journal/renderer"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stopCmd struct {
	account  string
	ticker   string
	price    string
	quantity string
}

func (*stopCmd) Name() string     { return "stop" }
func (*stopCmd) Synopsis() string { return "attach a stop-loss to an active position" }
func (*stopCmd) Usage() string {
	return `tj stop -a <account> -t <ticker> -price <stop price> [-qty <shares>]

  Attaches a stop-loss to the active position of the ticker. Without -qty the
  stop-loss covers every remaining share. The risk of the position is then
  recomputed.
`
}

func (c *stopCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account of the position.")
	f.StringVar(&c.ticker, "t", "", "Ticker of the position.")
	f.StringVar(&c.price, "price", "", "Stop price.")
	f.StringVar(&c.quantity, "qty", "0", "Number of shares covered, 0 for all of them.")
}

func (c *stopCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.ticker == "" || c.price == "" {
		return failf(subcommands.ExitUsageError, "Error: -a, -t and -price are required")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	s := e.cfg.Settings
	price, err := journal.ParseMoney(c.price, s.Currency)
	if err != nil || !price.IsPositive() {
		return failf(subcommands.ExitUsageError, "Error: invalid stop price %q", c.price)
	}
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil || qty.IsNegative() {
		return failf(subcommands.ExitUsageError, "Error: invalid quantity %q", c.quantity)
	}

	p, err := attachStopLoss(ctx, e, c.account, strings.ToUpper(c.ticker), journal.StopLoss{
		ID:           uuid.NewString(),
		StopPrice:    price,
		StopQuantity: journal.Q(qty),
		Active:       true,
	})
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}

	view := renderer.NewPositions(c.account, []journal.Position{p}, nil, journal.M(0, s.Currency), journal.Today(), s, false)
	printMarkdown(renderer.RenderPositions(view))
	return subcommands.ExitSuccess
}

// attachStopLoss saves 'sl' on the active position of 'ticker', and rebuilds that
// position so its risk accounts for the new stop.
func attachStopLoss(ctx context.Context, e *env, account, ticker string, sl journal.StopLoss) (journal.Position, error) {
	positions, err := e.store.PositionsByAccount(ctx, account)
	if err != nil {
		return journal.Position{}, err
	}
	var active *journal.Position
	for i, p := range positions {
		if p.Ticker == ticker && p.IsActive() {
			active = &positions[i]
		}
	}
	if active == nil {
		return journal.Position{}, fmt.Errorf("no active %s position in account %s", ticker, account)
	}
	if qty := sl.StopQuantity; qty.GreaterThan(active.TotalShares) {
		return journal.Position{}, fmt.Errorf("stop-loss covers %s shares, the position only holds %s", qty, active.TotalShares)
	}

	sl.PositionID = active.ID
	if err := e.store.AddStopLoss(ctx, sl); err != nil {
		return journal.Position{}, err
	}
	active.StopLosses = append(active.StopLosses, sl)

	rebuilt, errs := journal.NewBuilder(e.cfg.Settings).WithStopLosses([]journal.Position{*active}).Build(active.Trades)
	if len(errs) > 0 || len(rebuilt) != 1 {
		return journal.Position{}, fmt.Errorf("failed to rebuild position %s: %v", active.ID, errs)
	}
	res := journal.ImportResult{AccountID: account, Mode: journal.AppendImport, Positions: rebuilt}
	if err := e.store.SaveImport(ctx, res); err != nil {
		return journal.Position{}, err
	}
	e.log.Info().Str("account", account).Str("ticker", ticker).Str("position", active.ID).Stringer("stop", sl.StopPrice).Msg("stop-loss attached")
	return rebuilt[0], nil
}
