package journal

import (
	"fmt"
	"strings"
)

// ParseQuotes parses a list of "TICKER=PRICE" quotes in 'currency'.
func ParseQuotes(list []string, currency string) (map[string]Money, error) {
	quotes := make(map[string]Money, len(list))
	for _, q := range list {
		ticker, price, ok := strings.Cut(q, "=")
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if !ok || ticker == "" {
			return nil, fmt.Errorf("invalid quote %q, expecting TICKER=PRICE", q)
		}
		m, err := ParseMoney(strings.TrimSpace(price), currency)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", ticker, err)
		}
		if m.IsNegative() {
			return nil, fmt.Errorf("invalid price for %s: must not be negative", ticker)
		}
		quotes[ticker] = m
	}
	return quotes, nil
}

// OpenedOn returns the earliest open date of 'positions', zero when there are none.
func OpenedOn(positions []Position) Date {
	var first Date
	for _, p := range positions {
		if first.IsZero() || p.OpenDate.Before(first) {
			first = p.OpenDate
		}
	}
	return first
}
