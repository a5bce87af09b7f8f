package renderer

import (
	"github.com/etnz/journal"
)

// PositionRow is a position valued at a price.
type PositionRow struct {
	journal.Position
	journal.Valuation
	Price   string
	HasStop bool
	Days    int
}

// Positions is the view of the positions of an account.
type Positions struct {
	Account string
	AsOf    journal.Date
	Active  []PositionRow
	Closed  []PositionRow
}

// NewPositions values the positions at 'quotes', falling back to the last trade
// price. Closed positions are listed only when 'withClosed' is set.
func NewPositions(account string, positions []journal.Position, quotes map[string]journal.Money, totalAssets journal.Money, asOf journal.Date, s journal.Settings, withClosed bool) *Positions {
	v := &Positions{Account: account, AsOf: asOf}
	for _, p := range positions {
		price, ok := quotes[p.Ticker]
		if !ok {
			price, _ = p.LastPrice()
		}
		row := PositionRow{
			Position:  p,
			Valuation: p.Value(price, totalAssets, s),
			Price:     price.String(),
			HasStop:   len(p.StopLosses) > 0,
			Days:      p.HoldingDays(asOf),
		}
		switch {
		case p.IsActive():
			v.Active = append(v.Active, row)
		case withClosed:
			v.Closed = append(v.Closed, row)
		}
	}
	return v
}

// RenderPositions renders the positions of an account.
func RenderPositions(v *Positions) string {
	partials := map[string]string{
		"positions_active": "positions_active.md",
		"positions_closed": "positions_closed.md",
	}
	return renderTemplate("positions", "positions.md", partials, v)
}
