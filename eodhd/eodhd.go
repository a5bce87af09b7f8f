// Package eodhd fetches end of day prices from https://eodhd.com to value
// active positions.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/etnz/journal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://eodhd.com/api"

// lookback is the number of days searched backwards for the latest close, to
// cover weekends and holidays.
const lookback = 7

// Client fetches prices of the tickers of an exchange.
type Client struct {
	apiKey   string
	exchange string
	baseURL  string
	http     *http.Client
	log      zerolog.Logger
}

// New returns a client for the tickers of 'exchange' (e.g. "US"). Responses are
// cached on disk for the day.
func New(apiKey, exchange string, log zerolog.Logger) *Client {
	log = log.With().Str("component", "eodhd").Logger()
	return &Client{
		apiKey:   apiKey,
		exchange: exchange,
		baseURL:  defaultBaseURL,
		http:     newDailyCachingClient(os.TempDir(), log),
		log:      log,
	}
}

// symbol returns the eodhd symbol of 'ticker'.
func (c *Client) symbol(ticker string) string {
	if strings.Contains(ticker, ".") || c.exchange == "" {
		return ticker
	}
	return ticker + "." + c.exchange
}

// Close returns the latest close price of 'ticker' on or before 'on'.
func (c *Client) Close(ctx context.Context, ticker string, on journal.Date) (decimal.Decimal, journal.Date, error) {
	// https://eodhd.com/api/eod/AAPL.US?api_token=demo&fmt=json&from=2024-01-01&to=2024-01-08
	// [
	//   {"date":"2024-01-02","open":187.15,"high":188.44,"low":183.885,"close":185.64,"adjusted_close":184.53,"volume":82488700},
	// ]
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	q.Set("from", on.Add(-lookback).String())
	q.Set("to", on.String())
	addr := fmt.Sprintf("%s/eod/%s?%s", c.baseURL, url.PathEscape(c.symbol(ticker)), q.Encode())

	type Info struct {
		Date  journal.Date    `json:"date"`
		Close decimal.Decimal `json:"close"`
	}
	content := make([]Info, 0)
	if err := jwget(ctx, c.http, addr, &content); err != nil {
		return decimal.Zero, journal.Date{}, fmt.Errorf("failed to fetch prices of %s: %w", ticker, err)
	}

	var latest *Info
	for i, info := range content {
		if info.Date.After(on) {
			continue
		}
		if latest == nil || info.Date.After(latest.Date) {
			latest = &content[i]
		}
	}
	if latest == nil {
		return decimal.Zero, journal.Date{}, fmt.Errorf("no price for %s in the %d days before %s", ticker, lookback, on)
	}
	return latest.Close, latest.Date, nil
}

// Quotes returns the close prices of the tickers of the active 'positions' on
// 'on', in 'currency'. Tickers already in 'quotes' are not fetched.
func (c *Client) Quotes(ctx context.Context, positions []journal.Position, quotes map[string]journal.Money, on journal.Date, currency string) (map[string]journal.Money, error) {
	res := make(map[string]journal.Money, len(quotes))
	for ticker, price := range quotes {
		res[ticker] = price
	}
	for _, p := range positions {
		if !p.IsActive() {
			continue
		}
		if _, ok := res[p.Ticker]; ok {
			continue
		}
		price, date, err := c.Close(ctx, p.Ticker, on)
		if err != nil {
			return nil, err
		}
		c.log.Debug().Str("ticker", p.Ticker).Stringer("date", date).Str("close", price.String()).Msg("quote fetched")
		res[p.Ticker] = journal.M(price, currency)
	}
	return res, nil
}
