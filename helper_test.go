package journal

import "testing"

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// KRW is a helper for test to create won money from const
func KRW(v float64) Money { return M(v, "KRW") }

// day returns the n-th day of January 2024.
func day(n int) Date { return NewDate(2024, 1, n) }

// buy is a helper to create a buy trade of account "acc".
func buy(id, ticker string, on Date, qty int, price, commission float64) Trade {
	return NewTrade("acc", ticker, on, Buy, Q(qty), USD(price)).WithID(id).WithCommission(USD(commission))
}

// sell is a helper to create a sell trade of account "acc".
func sell(id, ticker string, on Date, qty int, price, commission float64) Trade {
	return NewTrade("acc", ticker, on, Sell, Q(qty), USD(price)).WithID(id).WithCommission(USD(commission))
}

// assertMoney fails when got is not exactly want.
func assertMoney(t *testing.T, name string, got, want Money) {
	t.Helper()
	if !got.Decimal().Equal(want.Decimal()) {
		t.Errorf("%s = %s, want %s", name, got.Exact(), want.Exact())
	}
}
