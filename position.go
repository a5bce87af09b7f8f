package journal

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

// Status of a position episode.
type Status string

const (
	Active Status = "ACTIVE"
	Closed Status = "CLOSED"
)

// StopLoss protects part (or all) of a position.
type StopLoss struct {
	ID           string   `json:"id"`
	PositionID   string   `json:"positionId"`
	StopPrice    Money    `json:"stopPrice"`
	StopQuantity Quantity `json:"stopQuantity"` // zero covers every remaining share
	Active       bool     `json:"active"`
}

// Position is one open-to-close episode of an account on a ticker.
//
// It is always derived from its trades by the [Builder], never patched.
type Position struct {
	ID            string
	AccountID     string
	Ticker        string
	Status        Status
	OpenDate      Date
	CloseDate     Date // zero while active
	AvgBuyPrice   Money
	TotalShares   Quantity
	MaxShares     Quantity
	RealizedPnl   Money
	MaxRiskAmount Money // initial R
	TotalBought   Money // entry notional: buy notionals plus buy commissions
	Trades        []Trade
	StopLosses    []StopLoss
}

func (p Position) IsActive() bool { return p.Status == Active }
func (p Position) IsClosed() bool { return p.Status == Closed }

// InitialRisk returns the dollar risk committed at entry, used as the R unit.
func (p Position) InitialRisk() Money { return p.MaxRiskAmount }

// Return returns the realized P&L relative to the entry notional.
func (p Position) Return() Ratio { return p.RealizedPnl.Ratio(p.TotalBought) }

// RMultiple returns the realized P&L in units of initial R.
func (p Position) RMultiple() Ratio { return p.RealizedPnl.Ratio(p.MaxRiskAmount) }

// HoldingDays returns the number of days between the opening and the closing
// of the position, or 'asOf' for an active position.
func (p Position) HoldingDays(asOf Date) int {
	end := p.CloseDate
	if p.IsActive() || end.IsZero() {
		end = asOf
	}
	return end.DaysSince(p.OpenDate)
}

// LastPrice returns the price of the latest trade of the position.
func (p Position) LastPrice() (Money, bool) {
	if len(p.Trades) == 0 {
		return Money{}, false
	}
	return p.Trades[len(p.Trades)-1].Price, true
}

// TradeIDs returns the ids of the position trades, in order.
func (p Position) TradeIDs() []string {
	ids := make([]string, len(p.Trades))
	for i, t := range p.Trades {
		ids[i] = t.ID
	}
	return ids
}

// SameState reports whether both positions carry the same derived state.
func (p Position) SameState(o Position) bool {
	return p.ID == o.ID &&
		p.AccountID == o.AccountID &&
		p.Ticker == o.Ticker &&
		p.Status == o.Status &&
		p.OpenDate == o.OpenDate &&
		p.CloseDate == o.CloseDate &&
		p.AvgBuyPrice.value.Equal(o.AvgBuyPrice.value) &&
		p.TotalShares.Equal(o.TotalShares) &&
		p.MaxShares.Equal(o.MaxShares) &&
		p.RealizedPnl.value.Equal(o.RealizedPnl.value) &&
		p.MaxRiskAmount.value.Equal(o.MaxRiskAmount.value) &&
		p.TotalBought.value.Equal(o.TotalBought.value) &&
		slices.Equal(p.TradeIDs(), o.TradeIDs())
}

// tranche is a number of shares protected at a given stop price.
type tranche struct {
	quantity Quantity
	stop     Money
}

// tranches splits 'shares' over the active stop-losses in order. Shares no stop
// covers are protected at avg × (1 - defaultRisk) when defaultRisk is set.
func tranches(shares Quantity, avg Money, stops []StopLoss, defaultRisk decimal.Decimal) []tranche {
	var list []tranche
	remaining := shares
	for _, s := range stops {
		if !s.Active || !remaining.IsPositive() || !s.StopPrice.In(avg.Currency()) {
			continue
		}
		q := remaining
		if s.StopQuantity.IsPositive() {
			q = q.Min(s.StopQuantity)
		}
		list = append(list, tranche{quantity: q, stop: s.StopPrice})
		remaining = remaining.Sub(q)
	}
	if remaining.IsPositive() && defaultRisk.IsPositive() {
		list = append(list, tranche{quantity: remaining, stop: avg.MulRate(decimal.NewFromInt(1).Sub(defaultRisk))})
	}
	return list
}

// riskFrom sums q × (ref − stop)⁺ over the tranches. When floor is set, stops above
// the floor are replaced by it: a stop the price already went through fills at market.
func riskFrom(list []tranche, ref Money, floor *Money) Money {
	risk := M(0, ref.Currency())
	for _, t := range list {
		stop := t.stop
		if floor != nil {
			stop = stop.Min(*floor)
		}
		risk = risk.Add(ref.Sub(stop).Positive().Mul(t.quantity))
	}
	return risk
}

// Valuation are the values of a position derived from a current price.
type Valuation struct {
	CurrentPrice  Money `json:"currentPrice"`
	MarketValue   Money `json:"marketValue"`
	UnrealizedPnl Money `json:"unrealizedPnl"`
	TotalPnl      Money `json:"totalPnl"`
	PureRisk      Ratio `json:"pureRisk"`     // percent of total assets lost from cost basis if stops fire
	TotalRisk     Ratio `json:"totalRisk"`    // percent of total assets lost from the current price if stops fire
	LossExposure  Money `json:"lossExposure"` // loss versus cost basis if stops fire at min(stop, current price)
}

// Value derives the valuation of the position at 'price' for an account worth 'totalAssets'.
func (p Position) Value(price Money, totalAssets Money, s Settings) Valuation {
	list := tranches(p.TotalShares, p.AvgBuyPrice, p.StopLosses, s.DefaultRiskPercent)
	unrealized := price.Sub(p.AvgBuyPrice).Mul(p.TotalShares)
	return Valuation{
		CurrentPrice:  price,
		MarketValue:   price.Mul(p.TotalShares),
		UnrealizedPnl: unrealized,
		TotalPnl:      p.RealizedPnl.Add(unrealized),
		PureRisk:      riskFrom(list, p.AvgBuyPrice, nil).Ratio(totalAssets).Percent(),
		TotalRisk:     riskFrom(list, price, nil).Ratio(totalAssets).Percent(),
		LossExposure:  riskFrom(list, p.AvgBuyPrice, &price),
	}
}

// In reports whether the amounts of the position are in 'currency'.
func (p Position) In(currency string) bool {
	return p.AvgBuyPrice.In(currency) && p.RealizedPnl.In(currency) && p.TotalBought.In(currency)
}

// MarshalJSON implements the json.Marshaler interface for Position.
func (p Position) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", p.ID)
	w.Append("account", p.AccountID)
	w.Append("ticker", p.Ticker)
	w.Append("status", p.Status)
	w.Append("openDate", p.OpenDate)
	if !p.CloseDate.IsZero() {
		w.Append("closeDate", p.CloseDate)
	}
	w.Append("avgBuyPrice", p.AvgBuyPrice)
	w.Append("totalShares", p.TotalShares)
	w.Append("maxShares", p.MaxShares)
	w.Append("realizedPnl", p.RealizedPnl)
	w.Append("maxRiskAmount", p.MaxRiskAmount)
	w.Append("totalBought", p.TotalBought)
	w.Append("trades", p.TradeIDs())
	if len(p.StopLosses) > 0 {
		w.Append("stopLosses", p.StopLosses)
	}
	return w.MarshalJSON()
}

// check that Position is a valid json marshaller type.
var _ json.Marshaler = Position{}
