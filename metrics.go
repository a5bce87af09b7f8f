package journal

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Keys of the metric vector.
const (
	KeyTotalTrades          = "total-trades"
	KeyActivePositions      = "active-positions"
	KeyWinningTrades        = "winning-trades"
	KeyLosingTrades         = "losing-trades"
	KeyBreakevenTrades      = "breakeven-trades"
	KeyWinRate              = "win-rate"
	KeyLossRate             = "loss-rate"
	KeyAvgWinR              = "avg-win-r"
	KeyAvgLossR             = "avg-loss-r"
	KeyPayoffRatio          = "payoff-ratio"
	KeyExpectancy           = "expectancy"
	KeyExpectancyR          = "expectancy-r"
	KeyAvgWinPct            = "avg-win-pct"
	KeyAvgLossPct           = "avg-loss-pct"
	KeyRealizedPnl          = "realized-pnl"
	KeyUnrealizedPnl        = "unrealized-pnl"
	KeyGrossProfit          = "gross-profit"
	KeyGrossLoss            = "gross-loss"
	KeyLargestWin           = "largest-win"
	KeyLargestLoss          = "largest-loss"
	KeyProfitFactor         = "profit-factor"
	KeyStdDevReturns        = "std-dev-returns"
	KeyDownsideDeviation    = "downside-deviation"
	KeySharpeRatio          = "sharpe-ratio"
	KeyRAROC                = "raroc"
	KeyMaxConsecutiveWins   = "max-consecutive-wins"
	KeyMaxConsecutiveLosses = "max-consecutive-losses"
	KeyAvgHoldingDays       = "avg-holding-days"
	KeyAvgWinnerHoldingDays = "avg-winner-holding-days"
	KeyAvgLoserHoldingDays  = "avg-loser-holding-days"
	KeyAccountAgeDays       = "account-age-days"
	KeyOpenRisk             = "portfolio-open-risk"
	KeyNetRisk              = "portfolio-net-risk"
	KeyStockRatio           = "stock-ratio"
	KeyCashRatio            = "cash-ratio"
	KeyMaxDrawdown          = "max-drawdown"
)

// Outcome classifies a closed position.
type Outcome int

const (
	Breakeven Outcome = iota
	Win
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "breakeven"
	}
}

// Classify returns the outcome of a closed position. A win gains more than the
// threshold fraction of its initial R, a loss loses more than it, anything in
// between, boundaries included, is breakeven.
func (s Settings) Classify(p Position) Outcome {
	limit := p.MaxRiskAmount.Abs().MulRate(s.WinRateThreshold)
	switch {
	case p.RealizedPnl.GreaterThan(limit):
		return Win
	case p.RealizedPnl.LessThan(limit.Neg()):
		return Loss
	default:
		return Breakeven
	}
}

// MetricsInput is the account context of a metric computation.
type MetricsInput struct {
	// Positions are already filtered by the caller's time window.
	Positions []Position
	// Quotes are current prices per ticker. Active positions with no quote are
	// marked at their last trade price.
	Quotes map[string]Money
	// TotalAssets of the account. When zero it is Cash plus the market value of
	// active positions.
	TotalAssets Money
	Cash        Money
	// AccountOpened is the opening date of the account, zero when unknown.
	AccountOpened Date
	// AsOf is the date of the computation. When zero it is the latest trade date.
	AsOf Date
	// Equity is the optional equity curve used for drawdown.
	Equity EquityCurve
}

// FilterPositions returns the positions relevant to 'window': closed positions that
// closed within it, and active positions opened before its end.
func FilterPositions(positions []Position, window Range) []Position {
	var list []Position
	for _, p := range positions {
		switch {
		case p.IsClosed() && window.Contains(p.CloseDate):
			list = append(list, p)
		case p.IsActive() && (window.To.IsZero() || !p.OpenDate.After(window.To)):
			list = append(list, p)
		}
	}
	return list
}

// ComputeMetrics computes the metric vector of 'in'. Every metric is computed
// independently: a metric missing its inputs has no data and does not affect
// the others.
//
// Positions, quotes and amounts in another currency than the journal's are
// ignored.
func ComputeMetrics(in MetricsInput, s Settings) *Metrics {
	m := newMetrics(s.Currency)
	zero := M(0, s.Currency)
	if !in.TotalAssets.In(s.Currency) {
		in.TotalAssets = zero
	}
	if !in.Cash.In(s.Currency) {
		in.Cash = zero
	}

	var closed, active []Position
	asOf := in.AsOf
	for _, p := range in.Positions {
		if !p.In(s.Currency) {
			continue
		}
		if p.IsClosed() {
			closed = append(closed, p)
		} else {
			active = append(active, p)
		}
		if last := len(p.Trades); in.AsOf.IsZero() && last > 0 && p.Trades[last-1].Date.After(asOf) {
			asOf = p.Trades[last-1].Date
		}
	}
	slices.SortStableFunc(closed, func(a, b Position) int {
		return cmp.Or(a.CloseDate.Compare(b.CloseDate), a.OpenDate.Compare(b.OpenDate), cmp.Compare(a.ID, b.ID))
	})

	// outcome statistics of closed positions.
	var (
		wins, losses, breakevens       int
		winR, lossR, allR              []float64
		winPct, lossPct, returns, down []float64
		holding, winHolding, lossHold  []float64
		outcomes                       []Outcome
		grossProfit, grossLoss         = zero, zero
		largestWin, largestLoss        *Money
	)
	for _, p := range closed {
		o := s.Classify(p)
		outcomes = append(outcomes, o)
		r, hasR := p.RMultiple().Float()
		ret, hasRet := p.Return().Percent().Float()
		days := float64(p.HoldingDays(asOf))
		holding = append(holding, days)
		if hasR {
			allR = append(allR, r)
		}
		if hasRet {
			returns = append(returns, ret)
			if ret < 0 {
				down = append(down, ret)
			}
		}
		if p.RealizedPnl.IsPositive() {
			grossProfit = grossProfit.Add(p.RealizedPnl)
		} else {
			grossLoss = grossLoss.Add(p.RealizedPnl)
		}
		switch o {
		case Win:
			wins++
			winHolding = append(winHolding, days)
			if hasR {
				winR = append(winR, r)
			}
			if hasRet {
				winPct = append(winPct, ret)
			}
			if largestWin == nil || p.RealizedPnl.GreaterThan(*largestWin) {
				largestWin = &p.RealizedPnl
			}
		case Loss:
			losses++
			lossHold = append(lossHold, days)
			if hasR {
				lossR = append(lossR, r)
			}
			if hasRet {
				lossPct = append(lossPct, ret)
			}
			if largestLoss == nil || p.RealizedPnl.LessThan(*largestLoss) {
				largestLoss = &p.RealizedPnl
			}
		default:
			breakevens++
		}
	}

	m.add(KeyTotalTrades, Count, Of(float64(len(closed))))
	m.add(KeyActivePositions, Count, Of(float64(len(active))))
	m.add(KeyWinningTrades, Count, Of(float64(wins)))
	m.add(KeyLosingTrades, Count, Of(float64(losses)))
	m.add(KeyBreakevenTrades, Count, Of(float64(breakevens)))
	decided := decimal.NewFromInt(int64(wins + losses))
	m.add(KeyWinRate, Percent, ofRatio(NewRatio(decimal.NewFromInt(int64(wins)), decided).Percent()))
	m.add(KeyLossRate, Percent, ofRatio(NewRatio(decimal.NewFromInt(int64(losses)), decided).Percent()))

	avgWinR, avgLossR := mean(winR), mean(lossR)
	m.add(KeyAvgWinR, RMult, avgWinR)
	m.add(KeyAvgLossR, RMult, avgLossR)
	m.add(KeyPayoffRatio, Number, payoff(avgWinR, avgLossR))
	expectancy := mean(returns)
	m.add(KeyExpectancy, Percent, expectancy)
	m.add(KeyExpectancyR, RMult, mean(allR))
	m.add(KeyAvgWinPct, Percent, mean(winPct))
	m.add(KeyAvgLossPct, Percent, mean(lossPct))

	realized := zero
	for _, p := range in.Positions {
		realized = realized.Add(p.RealizedPnl)
	}
	m.addMoney(KeyRealizedPnl, realized)
	m.addMoney(KeyGrossProfit, grossProfit)
	m.addMoney(KeyGrossLoss, grossLoss)
	m.addOptionalMoney(KeyLargestWin, largestWin)
	m.addOptionalMoney(KeyLargestLoss, largestLoss)
	m.add(KeyProfitFactor, Number, ofRatio(grossProfit.Ratio(grossLoss.Abs())))

	std := stdDev(returns)
	downside := stdDev(down)
	m.add(KeyStdDevReturns, Percent, std)
	m.add(KeyDownsideDeviation, Percent, downside)
	m.add(KeySharpeRatio, Number, divide(expectancy, std))
	m.add(KeyRAROC, Number, divide(expectancy, downside))

	maxWins, maxLosses := Streaks(outcomes)
	m.add(KeyMaxConsecutiveWins, Count, Of(float64(maxWins)))
	m.add(KeyMaxConsecutiveLosses, Count, Of(float64(maxLosses)))

	m.add(KeyAvgHoldingDays, Days, mean(holding))
	m.add(KeyAvgWinnerHoldingDays, Days, mean(winHolding))
	m.add(KeyAvgLoserHoldingDays, Days, mean(lossHold))
	age := NoData()
	if !in.AccountOpened.IsZero() && !asOf.IsZero() {
		age = Of(float64(asOf.DaysSince(in.AccountOpened)))
	}
	m.add(KeyAccountAgeDays, Days, age)

	// portfolio of active positions.
	unrealized, gains, exposure, market := zero, zero, zero, zero
	for _, p := range active {
		price, ok := in.Quotes[p.Ticker]
		if !ok || !price.In(s.Currency) {
			price, _ = p.LastPrice()
		}
		v := p.Value(price, in.TotalAssets, s)
		unrealized = unrealized.Add(v.UnrealizedPnl)
		gains = gains.Add(v.UnrealizedPnl.Positive())
		// counted even when the price is above the stop.
		exposure = exposure.Add(v.LossExposure)
		market = market.Add(v.MarketValue)
	}
	assets := in.TotalAssets
	if assets.IsZero() {
		assets = in.Cash.Add(market)
	}
	m.addMoney(KeyUnrealizedPnl, unrealized)
	m.add(KeyOpenRisk, Percent, ofRatio(exposure.Ratio(assets).Percent()))
	net := exposure
	if s.RiskMode == RiskNetted {
		net = exposure.Sub(gains).Positive()
	}
	m.add(KeyNetRisk, Percent, ofRatio(net.Ratio(assets).Percent()))
	stock := market.Ratio(assets).Percent()
	m.add(KeyStockRatio, Percent, ofRatio(stock))
	cash := NoData()
	if f, ok := stock.Float(); ok {
		cash = Of(100 - f)
	}
	m.add(KeyCashRatio, Percent, cash)
	m.add(KeyMaxDrawdown, Percent, ofRatio(in.Equity.MaxDrawdown().Percent()))
	return m
}

// Streaks returns the longest runs of consecutive wins and losses. Breakeven
// outcomes neither extend nor break a run.
func Streaks(outcomes []Outcome) (maxWins, maxLosses int) {
	var wins, losses int
	for _, o := range outcomes {
		switch o {
		case Win:
			wins++
			losses = 0
		case Loss:
			losses++
			wins = 0
		}
		maxWins = max(maxWins, wins)
		maxLosses = max(maxLosses, losses)
	}
	return maxWins, maxLosses
}

func mean(x []float64) Value {
	if len(x) == 0 {
		return NoData()
	}
	return Of(stat.Mean(x, nil))
}

// stdDev returns the population standard deviation of x.
func stdDev(x []float64) Value {
	if len(x) == 0 {
		return NoData()
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return Of(std)
}

// divide returns a/b, with no data when b is zero or missing.
func divide(a, b Value) Value {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB || y == 0 {
		return NoData()
	}
	return Of(x / y)
}

// payoff returns avgWin/|avgLoss|.
func payoff(avgWin, avgLoss Value) Value {
	l, ok := avgLoss.Float()
	if !ok {
		return NoData()
	}
	if l < 0 {
		l = -l
	}
	return divide(avgWin, Of(l))
}
