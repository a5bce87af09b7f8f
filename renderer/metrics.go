package renderer

import "github.com/etnz/journal"

// MetricRow is a displayed metric.
type MetricRow struct {
	Label string
	Key   string
	Value string
}

// MetricSection is a group of related metrics.
type MetricSection struct {
	Title string
	Rows  []MetricRow
}

// Metrics is the view of a metric vector.
type Metrics struct {
	Account  string
	Window   journal.Range
	Sections []MetricSection
}

type label struct{ key, label string }

var sections = []struct {
	title  string
	labels []label
}{
	{"Performance", []label{
		{journal.KeyTotalTrades, "Closed Trades"},
		{journal.KeyActivePositions, "Active Positions"},
		{journal.KeyWinRate, "Win Rate"},
		{journal.KeyLossRate, "Loss Rate"},
		{journal.KeyWinningTrades, "Wins"},
		{journal.KeyLosingTrades, "Losses"},
		{journal.KeyBreakevenTrades, "Breakeven"},
		{journal.KeyRealizedPnl, "Realized P&L"},
		{journal.KeyUnrealizedPnl, "Unrealized P&L"},
		{journal.KeyGrossProfit, "Gross Profit"},
		{journal.KeyGrossLoss, "Gross Loss"},
		{journal.KeyProfitFactor, "Profit Factor"},
		{journal.KeyLargestWin, "Largest Win"},
		{journal.KeyLargestLoss, "Largest Loss"},
	}},
	{"Expectancy", []label{
		{journal.KeyExpectancy, "Expectancy"},
		{journal.KeyExpectancyR, "Expectancy (R)"},
		{journal.KeyAvgWinR, "Average Win (R)"},
		{journal.KeyAvgLossR, "Average Loss (R)"},
		{journal.KeyPayoffRatio, "Payoff Ratio"},
		{journal.KeyAvgWinPct, "Average Win"},
		{journal.KeyAvgLossPct, "Average Loss"},
	}},
	{"Distribution", []label{
		{journal.KeyStdDevReturns, "Std. Dev. of Returns"},
		{journal.KeyDownsideDeviation, "Downside Deviation"},
		{journal.KeySharpeRatio, "Sharpe Ratio"},
		{journal.KeyRAROC, "RAROC"},
		{journal.KeyMaxConsecutiveWins, "Max Consecutive Wins"},
		{journal.KeyMaxConsecutiveLosses, "Max Consecutive Losses"},
		{journal.KeyMaxDrawdown, "Max Drawdown"},
	}},
	{"Timing", []label{
		{journal.KeyAvgHoldingDays, "Average Holding Days"},
		{journal.KeyAvgWinnerHoldingDays, "Average Winner Holding Days"},
		{journal.KeyAvgLoserHoldingDays, "Average Loser Holding Days"},
		{journal.KeyAccountAgeDays, "Account Age (days)"},
	}},
	{"Portfolio", []label{
		{journal.KeyOpenRisk, "Open Risk"},
		{journal.KeyNetRisk, "Net Risk"},
		{journal.KeyStockRatio, "Stock Ratio"},
		{journal.KeyCashRatio, "Cash Ratio"},
	}},
}

// NewMetrics creates the view of 'm'. Metrics missing from the vector are displayed with no data.
func NewMetrics(account string, window journal.Range, m *journal.Metrics) *Metrics {
	v := &Metrics{Account: account, Window: window}
	for _, s := range sections {
		section := MetricSection{Title: s.title}
		for _, l := range s.labels {
			section.Rows = append(section.Rows, MetricRow{Label: l.label, Key: l.key, Value: m.Display(l.key)})
		}
		v.Sections = append(v.Sections, section)
	}
	return v
}

// RenderMetrics renders a metric vector.
func RenderMetrics(v *Metrics) string {
	return renderTemplate("metrics", "metrics.md", map[string]string{"metrics_section": "metrics_section.md"}, v)
}
