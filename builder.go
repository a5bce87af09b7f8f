package journal

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// positionNamespace seeds the name based ids of positions.
var positionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("journal.position"))

// commission returns the commission allocated to the trade: its own when reported,
// otherwise the configured fee rate applied to its notional.
func (s Settings) commission(t Trade) Money {
	if !t.Commission.IsZero() {
		return t.Commission
	}
	rate := s.Fees.BuyRate
	if t.Type == Sell {
		rate = s.Fees.SellRate
	}
	if !rate.IsPositive() {
		return M(0, t.Price.Currency())
	}
	return t.Notional().MulRate(rate).Round()
}

// positionID returns the id of the episode opened by 'first'.
func positionID(first Trade) string {
	name := first.ID
	if name == "" {
		name = first.Key().String()
	}
	return uuid.NewSHA1(positionNamespace, []byte(first.AccountID+"/"+first.Ticker+"/"+name)).String()
}

type openKey struct {
	account, ticker string
	date            Date
}

// Builder folds trades into position episodes.
//
// A Builder is not mutated by Build and can be reused.
type Builder struct {
	settings Settings
	byID     map[string][]StopLoss
	byOpen   map[openKey][]StopLoss
}

// NewBuilder returns a builder for an account configured with 's'.
func NewBuilder(s Settings) *Builder {
	return &Builder{
		settings: s,
		byID:     make(map[string][]StopLoss),
		byOpen:   make(map[openKey][]StopLoss),
	}
}

// WithStopLosses makes the stop-losses of 'previous' positions survive the rebuild.
// They are matched by position id, or else by the ticker and opening date of the episode.
func (b *Builder) WithStopLosses(previous []Position) *Builder {
	for _, p := range previous {
		if len(p.StopLosses) == 0 {
			continue
		}
		b.byID[p.ID] = p.StopLosses
		b.byOpen[openKey{p.AccountID, p.Ticker, p.OpenDate}] = p.StopLosses
	}
	return b
}

// stopsFor returns the stop-losses of the new episode 'p'.
func (b *Builder) stopsFor(p Position) []StopLoss {
	stops, ok := b.byID[p.ID]
	if !ok {
		stops = b.byOpen[openKey{p.AccountID, p.Ticker, p.OpenDate}]
	}
	if len(stops) == 0 {
		return nil
	}
	list := make([]StopLoss, len(stops))
	for i, s := range stops {
		s.PositionID = p.ID
		list[i] = s
	}
	return list
}

// Build returns the episodes derived from 'trades', ordered by account, ticker and
// opening date.
//
// Invalid trades are reported and ignored. A trade that breaks the integrity of
// its ticker is reported, the episodes of that ticker built so far are returned,
// and the remaining trades of that ticker are ignored. Other tickers are unaffected.
func (b *Builder) Build(trades []Trade) ([]Position, []error) {
	var errs []error
	groups := make(map[[2]string][]Trade)
	for _, t := range trades {
		if err := cmp.Or(t.Validate(), t.CheckCurrency(b.settings.Currency)); err != nil {
			errs = append(errs, err)
			continue
		}
		k := [2]string{t.AccountID, t.Ticker}
		groups[k] = append(groups[k], t)
	}

	keys := make([][2]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]string) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})

	var positions []Position
	for _, k := range keys {
		list := groups[k]
		slices.SortStableFunc(list, compareTrades)
		bk := b.newBook()
		for _, t := range list {
			if err := bk.apply(t); err != nil {
				errs = append(errs, err)
				break
			}
		}
		positions = append(positions, bk.episodes()...)
	}
	return positions, errs
}

// BuildPositions builds the episodes of 'trades' with no stop-losses.
func BuildPositions(trades []Trade, s Settings) ([]Position, []error) {
	return NewBuilder(s).Build(trades)
}

// book is the running state of a single (account, ticker).
type book struct {
	*Builder
	closed   []Position
	current  *Position
	realized Money // realized P&L over every episode
	last     Money // price of the latest trade
}

func (b *Builder) newBook() *book { return &book{Builder: b} }

// episodes returns the closed episodes followed by the current one if any.
func (b *book) episodes() []Position {
	if b.current == nil {
		return b.closed
	}
	return append(slices.Clone(b.closed), *b.current)
}

// unrealized returns the P&L of the open shares marked at the last trade price.
func (b *book) unrealized() Money {
	if b.current == nil {
		return Money{}
	}
	return b.last.Sub(b.current.AvgBuyPrice).Mul(b.current.TotalShares)
}

// apply folds a valid trade into the book.
func (b *book) apply(t Trade) error {
	integrity := func(kind error) error {
		e := &IntegrityError{Kind: kind, AccountID: t.AccountID, Ticker: t.Ticker, TradeID: t.ID, Date: t.Date, Requested: t.Quantity}
		if b.current != nil {
			e.Held = b.current.TotalShares
		}
		if e.TradeID == "" {
			e.TradeID = t.Key().String()
		}
		return e
	}

	fee := b.settings.commission(t)
	switch t.Type {
	case Buy:
		if b.current == nil {
			b.open(t)
		}
		p := b.current
		cost := p.AvgBuyPrice.Mul(p.TotalShares).Add(t.Notional()).Add(fee)
		shares := p.TotalShares.Add(t.Quantity)
		if shares.IsNegative() {
			return integrity(ErrNegativeShares)
		}
		if avg, ok := cost.Per(shares); ok {
			p.AvgBuyPrice = avg
		}
		p.TotalShares = shares
		p.TotalBought = p.TotalBought.Add(t.Notional()).Add(fee)
		p.Trades = append(p.Trades, t)
		if shares.GreaterThan(p.MaxShares) {
			p.MaxShares = shares
		}
		list := tranches(shares, p.AvgBuyPrice, p.StopLosses, b.settings.DefaultRiskPercent)
		if risk := riskFrom(list, p.AvgBuyPrice, nil); risk.GreaterThan(p.MaxRiskAmount) {
			p.MaxRiskAmount = risk
		}

	case Sell:
		if b.current == nil {
			return integrity(ErrOrphanSell)
		}
		p := b.current
		if t.Quantity.GreaterThan(p.TotalShares) {
			return integrity(ErrOversell)
		}
		pnl := t.Price.Sub(p.AvgBuyPrice).Mul(t.Quantity).Sub(fee)
		p.RealizedPnl = p.RealizedPnl.Add(pnl)
		b.realized = b.realized.Add(pnl)
		p.TotalShares = p.TotalShares.Sub(t.Quantity)
		p.Trades = append(p.Trades, t)
		if p.TotalShares.IsNegative() {
			return integrity(ErrNegativeShares)
		}
		if p.TotalShares.IsZero() {
			p.Status = Closed
			p.CloseDate = t.Date
			b.closed = append(b.closed, *p)
			b.current = nil
		}
	}
	b.last = t.Price
	return nil
}

// open starts a new episode with 't'.
func (b *book) open(t Trade) {
	zero := M(0, t.Price.Currency())
	p := Position{
		ID:            positionID(t),
		AccountID:     t.AccountID,
		Ticker:        t.Ticker,
		Status:        Active,
		OpenDate:      t.Date,
		AvgBuyPrice:   zero,
		RealizedPnl:   zero,
		MaxRiskAmount: zero,
		TotalBought:   zero,
	}
	p.StopLosses = b.stopsFor(p)
	b.current = &p
}
