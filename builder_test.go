package journal

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildPositions_CommissionAbsorbedInCostBasis(t *testing.T) {
	trades := []Trade{
		buy("b1", "AAPL", day(2), 100, 10, 0.50),
		sell("s1", "AAPL", day(3), 50, 12, 0.50),
	}
	positions, errs := BuildPositions(trades, DefaultSettings("USD"))
	if len(errs) != 0 {
		t.Fatalf("BuildPositions() unexpected errors: %v", errs)
	}
	if len(positions) != 1 {
		t.Fatalf("BuildPositions() returned %d positions, want 1", len(positions))
	}
	p := positions[0]
	assertMoney(t, "AvgBuyPrice", p.AvgBuyPrice, USD(10.005))
	assertMoney(t, "RealizedPnl", p.RealizedPnl, USD(99.25))
	if got, want := p.TotalShares, Q(50); !got.Equal(want) {
		t.Errorf("TotalShares = %v, want %v", got, want)
	}
	if got, want := p.MaxShares, Q(100); !got.Equal(want) {
		t.Errorf("MaxShares = %v, want %v", got, want)
	}
	if p.Status != Active {
		t.Errorf("Status = %v, want %v", p.Status, Active)
	}
	assertMoney(t, "TotalBought", p.TotalBought, USD(1000.5))
}

func TestBuildPositions_BalancedTradesClose(t *testing.T) {
	tests := []struct {
		name   string
		trades []Trade
	}{
		{"single round trip", []Trade{
			buy("b1", "AAPL", day(2), 10, 10, 0),
			sell("s1", "AAPL", day(3), 10, 11, 0),
		}},
		{"scaled in and out", []Trade{
			buy("b1", "AAPL", day(2), 10, 10, 1),
			buy("b2", "AAPL", day(3), 30, 12, 1),
			sell("s1", "AAPL", day(4), 25, 13, 1),
			sell("s2", "AAPL", day(5), 15, 9, 1),
		}},
		{"unordered input", []Trade{
			sell("s1", "AAPL", day(5), 5, 11, 0),
			buy("b1", "AAPL", day(2), 5, 10, 0),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions, errs := BuildPositions(tt.trades, DefaultSettings("USD"))
			if len(errs) != 0 {
				t.Fatalf("BuildPositions() unexpected errors: %v", errs)
			}
			last := positions[len(positions)-1]
			if !last.TotalShares.IsZero() {
				t.Errorf("TotalShares = %v, want 0", last.TotalShares)
			}
			if last.Status != Closed {
				t.Errorf("Status = %v, want %v", last.Status, Closed)
			}
			if last.CloseDate != day(5) && last.CloseDate != day(3) {
				t.Errorf("CloseDate = %v, want the date of the last sell", last.CloseDate)
			}
		})
	}
}

func TestBuildPositions_SellKeepsCostBasis(t *testing.T) {
	trades := []Trade{
		buy("b1", "AAPL", day(2), 10, 10, 1),
		buy("b2", "AAPL", day(3), 10, 20, 1),
		sell("s1", "AAPL", day(4), 5, 30, 1),
		sell("s2", "AAPL", day(5), 5, 5, 1),
	}
	s := DefaultSettings("USD")

	// the average after the buys.
	before, _ := BuildPositions(trades[:2], s)
	assertMoney(t, "AvgBuyPrice after buys", before[0].AvgBuyPrice, USD(15.1))

	for n := 3; n <= len(trades); n++ {
		after, errs := BuildPositions(trades[:n], s)
		if len(errs) != 0 {
			t.Fatalf("BuildPositions() unexpected errors: %v", errs)
		}
		assertMoney(t, "AvgBuyPrice after sells", after[0].AvgBuyPrice, before[0].AvgBuyPrice)
	}
	all, _ := BuildPositions(trades, s)
	// 5*(30-15.1)-1 + 5*(5-15.1)-1
	assertMoney(t, "RealizedPnl", all[0].RealizedPnl, USD(22))
}

func TestBuildPositions_ReentryStartsNewEpisode(t *testing.T) {
	trades := []Trade{
		buy("b1", "AAPL", day(2), 10, 10, 0),
		sell("s1", "AAPL", day(3), 10, 12, 0),
		buy("b2", "AAPL", day(4), 5, 20, 0),
	}
	positions, errs := BuildPositions(trades, DefaultSettings("USD"))
	if len(errs) != 0 {
		t.Fatalf("BuildPositions() unexpected errors: %v", errs)
	}
	if len(positions) != 2 {
		t.Fatalf("BuildPositions() returned %d positions, want 2", len(positions))
	}
	first, second := positions[0], positions[1]
	if first.ID == second.ID {
		t.Errorf("re-entry reused the id %s", first.ID)
	}
	if first.Status != Closed || second.Status != Active {
		t.Errorf("Status = %v, %v, want %v, %v", first.Status, second.Status, Closed, Active)
	}
	if second.OpenDate != day(4) {
		t.Errorf("OpenDate = %v, want %v", second.OpenDate, day(4))
	}
	assertMoney(t, "second AvgBuyPrice", second.AvgBuyPrice, USD(20))
	assertMoney(t, "second RealizedPnl", second.RealizedPnl, USD(0))
	if got, want := len(second.Trades), 1; got != want {
		t.Errorf("second episode has %d trades, want %d", got, want)
	}
}

func TestBuildPositions_Oversell(t *testing.T) {
	trades := []Trade{
		buy("b1", "AAPL", day(2), 10, 5, 0),
		sell("s1", "AAPL", day(3), 20, 6, 0),
		sell("s2", "AAPL", day(4), 5, 6, 0), // ignored after the error
		buy("b2", "MSFT", day(2), 3, 100, 0),
		sell("s3", "MSFT", day(3), 3, 110, 0),
	}
	positions, errs := BuildPositions(trades, DefaultSettings("USD"))
	if len(errs) != 1 {
		t.Fatalf("BuildPositions() errors = %v, want exactly one", errs)
	}
	var ierr *IntegrityError
	if !errors.As(errs[0], &ierr) {
		t.Fatalf("error %v is not an IntegrityError", errs[0])
	}
	if !errors.Is(errs[0], ErrOversell) {
		t.Errorf("error %v does not match ErrOversell", errs[0])
	}
	if ierr.TradeID != "s1" {
		t.Errorf("TradeID = %q, want %q", ierr.TradeID, "s1")
	}
	if !ierr.Held.Equal(Q(10)) || !ierr.Requested.Equal(Q(20)) {
		t.Errorf("Held, Requested = %v, %v, want 10, 20", ierr.Held, ierr.Requested)
	}

	if len(positions) != 2 {
		t.Fatalf("BuildPositions() returned %d positions, want 2", len(positions))
	}
	aapl, msft := positions[0], positions[1]
	if aapl.Ticker != "AAPL" || !aapl.TotalShares.Equal(Q(10)) || aapl.Status != Active {
		t.Errorf("AAPL partial state = %s %v %v, want the state before the oversell", aapl.Ticker, aapl.TotalShares, aapl.Status)
	}
	if msft.Ticker != "MSFT" || msft.Status != Closed {
		t.Errorf("MSFT = %s %v, want a closed position", msft.Ticker, msft.Status)
	}
	assertMoney(t, "MSFT RealizedPnl", msft.RealizedPnl, USD(30))
}

func TestBuildPositions_OrphanSell(t *testing.T) {
	trades := []Trade{
		sell("s1", "AAPL", day(2), 5, 6, 0),
		buy("b1", "AAPL", day(3), 5, 5, 0),
	}
	positions, errs := BuildPositions(trades, DefaultSettings("USD"))
	if len(errs) != 1 || !errors.Is(errs[0], ErrOrphanSell) {
		t.Fatalf("BuildPositions() errors = %v, want one ErrOrphanSell", errs)
	}
	if len(positions) != 0 {
		t.Errorf("BuildPositions() returned %d positions, want none", len(positions))
	}
}

func TestBuildPositions_InvalidTradeIsRejected(t *testing.T) {
	bad := buy("bad", "AAPL", day(2), 10, -5, 0)
	positions, errs := BuildPositions([]Trade{bad, buy("b1", "AAPL", day(3), 1, 5, 0)}, DefaultSettings("USD"))
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidTrade) {
		t.Fatalf("BuildPositions() errors = %v, want one ErrInvalidTrade", errs)
	}
	if len(positions) != 1 || !positions[0].TotalShares.Equal(Q(1)) {
		t.Errorf("BuildPositions() = %v, want the valid trade only", positions)
	}
}

func TestBuildPositions_ForeignCurrencyIsRejected(t *testing.T) {
	krw := NewTrade("acc", "SAMSUNG", day(2), Buy, Q(10), KRW(70000)).WithID("krw")
	positions, errs := BuildPositions([]Trade{krw, buy("b1", "AAPL", day(3), 1, 5, 0)}, DefaultSettings("USD"))
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidTrade) || !errors.Is(errs[0], ErrCurrency) {
		t.Fatalf("BuildPositions() errors = %v, want one ErrCurrency", errs)
	}
	if len(positions) != 1 || positions[0].Ticker != "AAPL" {
		t.Errorf("BuildPositions() = %v, want the AAPL position only", positions)
	}
}

func TestBuildPositions_FeeRates(t *testing.T) {
	s := DefaultSettings("USD")
	s.Fees = Fees{BuyRate: decimal.RequireFromString("0.001"), SellRate: decimal.RequireFromString("0.002")}
	trades := []Trade{
		buy("b1", "AAPL", day(2), 100, 10, 0),     // 1.00 estimated
		sell("s1", "AAPL", day(3), 100, 12, 0.25), // own commission wins
	}
	positions, errs := BuildPositions(trades, s)
	if len(errs) != 0 {
		t.Fatalf("BuildPositions() unexpected errors: %v", errs)
	}
	p := positions[0]
	assertMoney(t, "AvgBuyPrice", p.AvgBuyPrice, USD(10.01))
	// 100*(12-10.01) - 0.25
	assertMoney(t, "RealizedPnl", p.RealizedPnl, USD(198.75))
}

func TestBuildPositions_DeterministicIDs(t *testing.T) {
	trades := []Trade{buy("b1", "AAPL", day(2), 10, 10, 0)}
	a, _ := BuildPositions(trades, DefaultSettings("USD"))
	b, _ := BuildPositions(trades, DefaultSettings("USD"))
	if a[0].ID == "" || a[0].ID != b[0].ID {
		t.Errorf("ids %q and %q, want the same non empty id", a[0].ID, b[0].ID)
	}
}

func TestBuilder_StopLossesAndRisk(t *testing.T) {
	s := DefaultSettings("USD")
	trades := []Trade{buy("b1", "AAPL", day(2), 100, 10, 0)}
	first, _ := BuildPositions(trades, s)
	previous := first[0]
	previous.StopLosses = []StopLoss{
		{ID: "sl1", StopPrice: USD(9), StopQuantity: Q(60), Active: true},
		{ID: "sl2", StopPrice: USD(8), Active: true},
		{ID: "sl3", StopPrice: USD(1), Active: false},
	}

	trades = append(trades, buy("b2", "AAPL", day(3), 100, 10, 0))
	positions, errs := NewBuilder(s).WithStopLosses([]Position{previous}).Build(trades)
	if len(errs) != 0 {
		t.Fatalf("Build() unexpected errors: %v", errs)
	}
	p := positions[0]
	if len(p.StopLosses) != 3 || p.StopLosses[0].PositionID != p.ID {
		t.Fatalf("StopLosses = %v, want the previous stops attached to %s", p.StopLosses, p.ID)
	}
	// 60*(10-9) + 140*(10-8)
	assertMoney(t, "MaxRiskAmount", p.MaxRiskAmount, USD(340))

	v := p.Value(USD(8.5), USD(10000), s)
	assertMoney(t, "MarketValue", v.MarketValue, USD(1700))
	assertMoney(t, "UnrealizedPnl", v.UnrealizedPnl, USD(-300))
	// the first tranche's stop is above the price: it fills at 8.5.
	// 60*(10-8.5) + 140*(10-8)
	assertMoney(t, "LossExposure", v.LossExposure, USD(370))
	if got, want := v.PureRisk.String(), "3.40"; got != want {
		t.Errorf("PureRisk = %s, want %s", got, want)
	}
	// 0*(8.5-9) + 140*(8.5-8)
	if got, want := v.TotalRisk.String(), "0.70"; got != want {
		t.Errorf("TotalRisk = %s, want %s", got, want)
	}
}

func TestBuilder_DefaultRiskPercent(t *testing.T) {
	s := DefaultSettings("USD")
	s.DefaultRiskPercent = decimal.RequireFromString("0.1")
	positions, _ := BuildPositions([]Trade{buy("b1", "AAPL", day(2), 10, 50, 0)}, s)
	// 10 * 50 * 10%
	assertMoney(t, "MaxRiskAmount", positions[0].MaxRiskAmount, USD(50))
	if got := positions[0].RMultiple(); !got.Defined() {
		t.Errorf("RMultiple() = %v, want a defined ratio", got)
	}
}
