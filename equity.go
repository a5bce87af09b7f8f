package journal

import "slices"

// EquityPoint is the total value of an account at the end of a trading day.
type EquityPoint struct {
	Date       Date  `json:"date"`
	TotalValue Money `json:"totalValue"`
}

// EquityCurve is a series of equity points sorted by date, at most one per date.
type EquityCurve []EquityPoint

// NewEquityCurve sorts 'points'. When a date appears more than once the last one wins.
func NewEquityCurve(points ...EquityPoint) EquityCurve {
	var c EquityCurve
	for _, p := range points {
		c = c.Append(p)
	}
	return c
}

// Append inserts or replaces the point at p.Date.
func (c EquityCurve) Append(p EquityPoint) EquityCurve {
	i, found := slices.BinarySearchFunc(c, p.Date, func(e EquityPoint, d Date) int { return e.Date.Compare(d) })
	if found {
		c[i] = p
		return c
	}
	return slices.Insert(c, i, p)
}

// Latest returns the last point of the curve.
func (c EquityCurve) Latest() (EquityPoint, bool) {
	if len(c) == 0 {
		return EquityPoint{}, false
	}
	return c[len(c)-1], true
}

// ValueAsOf returns the value of the last point on or before 'on'. Days with no
// point carry the previous value forward.
func (c EquityCurve) ValueAsOf(on Date) (Money, bool) {
	i, found := slices.BinarySearchFunc(c, on, func(e EquityPoint, d Date) int { return e.Date.Compare(d) })
	if found {
		return c[i].TotalValue, true
	}
	if i == 0 {
		return Money{}, false
	}
	return c[i-1].TotalValue, true
}

// MaxDrawdown returns the largest peak to trough decline of the curve, relative to the peak.
func (c EquityCurve) MaxDrawdown() Ratio {
	if len(c) == 0 {
		return Undefined()
	}
	peak := c[0].TotalValue
	worst := Ratio{defined: true}
	for _, p := range c {
		if p.TotalValue.GreaterThan(peak) {
			peak = p.TotalValue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(p.TotalValue).Ratio(peak)
		if dd.value.GreaterThan(worst.value) {
			worst = dd
		}
	}
	return worst
}

// equityDay is the trading state of an account at the end of a day, relative to
// its state before the first trade.
type equityDay struct {
	date  Date
	state Money
}

// equityStates replays 'trades' and returns the account state at the end of every
// trade date: cumulative realized P&L plus the unrealized P&L of open shares marked
// at the last trade price of their ticker. A ticker stops contributing after an
// integrity error.
func equityStates(trades []Trade, s Settings) []equityDay {
	var valid []Trade
	for _, t := range trades {
		if t.Validate() == nil && t.CheckCurrency(s.Currency) == nil {
			valid = append(valid, t)
		}
	}
	slices.SortStableFunc(valid, compareTrades)

	b := NewBuilder(s)
	books := make(map[[2]string]*book)
	broken := make(map[[2]string]bool)
	var days []equityDay
	for i, t := range valid {
		k := [2]string{t.AccountID, t.Ticker}
		if !broken[k] {
			bk, ok := books[k]
			if !ok {
				bk = b.newBook()
				books[k] = bk
			}
			if err := bk.apply(t); err != nil {
				broken[k] = true
			}
		}
		if i+1 < len(valid) && valid[i+1].Date == t.Date {
			continue
		}
		state := M(0, s.Currency)
		for _, bk := range books {
			state = state.Add(bk.realized).Add(bk.unrealized())
		}
		days = append(days, equityDay{date: t.Date, state: state})
	}
	return days
}

// ReconstructEquity rebuilds the whole equity curve of an account from its trades,
// one point per trade date. The curve is anchored so that its last point is worth
// 'currentAssets'.
func ReconstructEquity(trades []Trade, currentAssets Money, s Settings) EquityCurve {
	days := equityStates(trades, s)
	if len(days) == 0 {
		return nil
	}
	base := currentAssets.Sub(days[len(days)-1].state)
	curve := make(EquityCurve, 0, len(days))
	for _, d := range days {
		curve = append(curve, EquityPoint{Date: d.date, TotalValue: base.Add(d.state)})
	}
	return curve
}

// ContinueEquity extends the curve after 'anchor' using the merged trade history.
// It emits one point per trade date strictly after the anchor date, worth the
// anchor value plus the change of state since the anchor date.
func ContinueEquity(trades []Trade, anchor EquityPoint, s Settings) EquityCurve {
	days := equityStates(trades, s)
	ref := M(0, s.Currency)
	var curve EquityCurve
	for _, d := range days {
		if !d.date.After(anchor.Date) {
			ref = d.state
			continue
		}
		curve = append(curve, EquityPoint{Date: d.date, TotalValue: anchor.TotalValue.Add(d.state.Sub(ref))})
	}
	return curve
}
