// Package cmd implements the tj CLI application to manage a trading journal.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/journal"
	"github.com/etnz/journal/eodhd"
	"github.com/etnz/journal/store/sqlite"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Commands are the tj subcommands, by group.
var Commands = map[string][]subcommands.Command{
	"journal": {&importCmd{}, &stopCmd{}, &exportCmd{}, &accountsCmd{}},
	"reports": {&positionsCmd{}, &metricsCmd{}},
	"manual":  {&topicCmd{}},
	"server":  {&serveCmd{}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for group, list := range Commands {
		for _, cmd := range list {
			c.Register(cmd, group)
		}
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", "", "Path to the journal database. Overrides TJ_DB_PATH.")
var rawOutput = flag.Bool("raw", false, "Print reports as raw markdown instead of rendering them for the terminal.")

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

// env is what every command needs: the configuration, a logger and the open store.
type env struct {
	cfg   *Config
	log   zerolog.Logger
	store *sqlite.Store
}

// openEnv loads the configuration and opens the journal database.
// The caller must close the store.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	log := newLogger(cfg.LogLevel, stderr)
	store, err := sqlite.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

// printMarkdown writes 'md' to the standard output, rendered for the terminal
// unless raw output was requested.
func printMarkdown(md string) {
	if !*rawOutput {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				md = out
			}
		}
	}
	fmt.Fprint(stdout, md)
}

// failf reports an error on the standard error and returns 'status'.
func failf(status subcommands.ExitStatus, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(stderr, format+"\n", args...)
	return status
}

// marketFlags are the flags valuing an account at a given date.
type marketFlags struct {
	date   string
	quotes string
	assets string
	cash   string
	fetch  bool
}

func (m *marketFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.date, "d", journal.Today().String(), "Date of the report. See the user manual for supported date formats.")
	f.StringVar(&m.quotes, "q", "", "Current prices as a comma separated list of TICKER=PRICE. Positions without a quote use their last trade price.")
	f.StringVar(&m.assets, "assets", "", "Total assets of the account. Defaults to the equity curve value at the report date.")
	f.StringVar(&m.cash, "cash", "", "Cash balance of the account.")
	f.BoolVar(&m.fetch, "fetch", false, "Fetch the quotes of active positions from EODHD (needs TJ_EODHD_API_KEY).")
}

// market is the parsed form of marketFlags.
type market struct {
	on     journal.Date
	quotes map[string]journal.Money
	assets journal.Money
	cash   journal.Money
	fetch  bool
}

func (m *marketFlags) parse(currency string) (market, error) {
	res := market{assets: journal.M(0, currency), cash: journal.M(0, currency), fetch: m.fetch}
	var err error
	if res.on, err = journal.ParseDate(m.date); err != nil {
		return res, fmt.Errorf("invalid date: %w", err)
	}
	var list []string
	if m.quotes != "" {
		list = strings.Split(m.quotes, ",")
	}
	if res.quotes, err = journal.ParseQuotes(list, currency); err != nil {
		return res, err
	}
	if m.assets != "" {
		if res.assets, err = journal.ParseMoney(m.assets, currency); err != nil {
			return res, fmt.Errorf("invalid assets: %w", err)
		}
	}
	if m.cash != "" {
		if res.cash, err = journal.ParseMoney(m.cash, currency); err != nil {
			return res, fmt.Errorf("invalid cash: %w", err)
		}
	}
	return res, nil
}

// withEquity defaults the total assets to the value of 'equity' at the report date.
func (m market) withEquity(equity journal.EquityCurve) market {
	if m.assets.IsZero() {
		if v, ok := equity.ValueAsOf(m.on); ok {
			m.assets = v
		}
	}
	return m
}

// withQuotes completes the quotes of the active 'positions' from EODHD when requested.
func (m market) withQuotes(ctx context.Context, e *env, positions []journal.Position) (market, error) {
	if !m.fetch {
		return m, nil
	}
	if e.cfg.EODHDAPIKey == "" {
		return m, errors.New("TJ_EODHD_API_KEY is required to fetch quotes")
	}
	client := eodhd.New(e.cfg.EODHDAPIKey, e.cfg.EODHDExchange, e.log)
	quotes, err := client.Quotes(ctx, positions, m.quotes, m.on, e.cfg.Settings.Currency)
	if err != nil {
		return m, err
	}
	m.quotes = quotes
	return m, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
