package journal

import "testing"

func TestContinueEquity_NoPointsForEmptyDays(t *testing.T) {
	s := DefaultSettings("USD")
	history := []Trade{
		buy("b1", "AAPL", day(1), 10, 10, 0),
		sell("s1", "AAPL", day(4), 10, 12, 0),
	}
	anchor := EquityPoint{Date: day(1), TotalValue: USD(10000)}

	curve := ContinueEquity(history, anchor, s)
	if len(curve) != 1 {
		t.Fatalf("ContinueEquity() = %v, want a single point", curve)
	}
	if got, want := curve[0].Date, day(4); got != want {
		t.Errorf("point date = %v, want %v", got, want)
	}
	assertMoney(t, "TotalValue", curve[0].TotalValue, USD(10020))

	// days without activity carry the anchor forward.
	for _, d := range []Date{day(2), day(3)} {
		v, ok := NewEquityCurve(append([]EquityPoint{anchor}, curve...)...).ValueAsOf(d)
		if !ok {
			t.Fatalf("ValueAsOf(%v) has no value", d)
		}
		assertMoney(t, "ValueAsOf("+d.String()+")", v, USD(10000))
	}
}

func TestContinueEquity_MarksOpenPositions(t *testing.T) {
	s := DefaultSettings("USD")
	history := []Trade{
		buy("b1", "AAPL", day(1), 10, 10, 0),
		buy("b2", "AAPL", day(5), 10, 15, 0), // marks the first lot at 15
		buy("b3", "MSFT", day(6), 1, 100, 2), // commission drag
	}
	anchor := EquityPoint{Date: day(1), TotalValue: USD(1000)}
	curve := ContinueEquity(history, anchor, s)
	if len(curve) != 2 {
		t.Fatalf("ContinueEquity() = %v, want two points", curve)
	}
	assertMoney(t, "day 5", curve[0].TotalValue, USD(1050))
	assertMoney(t, "day 6", curve[1].TotalValue, USD(1048))
}

func TestReconstructEquity_AnchoredOnCurrentAssets(t *testing.T) {
	s := DefaultSettings("USD")
	trades := []Trade{
		sell("s1", "AAPL", day(3), 10, 12, 1),
		buy("b1", "AAPL", day(1), 10, 10, 1),
	}
	curve := ReconstructEquity(trades, USD(5000), s)
	if len(curve) != 2 {
		t.Fatalf("ReconstructEquity() = %v, want two points", curve)
	}
	last, _ := curve.Latest()
	assertMoney(t, "last point", last.TotalValue, USD(5000))
	// buy: -1 commission. sell: 10*(12-10.1)-1 = 18.
	assertMoney(t, "first point", curve[0].TotalValue, USD(4981))
	if curve[0].Date != day(1) || last.Date != day(3) {
		t.Errorf("dates = %v, %v, want %v, %v", curve[0].Date, last.Date, day(1), day(3))
	}
}

func TestEquityCurve_MaxDrawdown(t *testing.T) {
	curve := NewEquityCurve(
		EquityPoint{day(3), USD(80)},
		EquityPoint{day(1), USD(100)},
		EquityPoint{day(2), USD(120)},
		EquityPoint{day(4), USD(130)},
		EquityPoint{day(5), USD(117)},
	)
	if got, want := curve.MaxDrawdown().Percent().String(), "33.33"; got != want {
		t.Errorf("MaxDrawdown() = %s, want %s", got, want)
	}
	var empty EquityCurve
	if empty.MaxDrawdown().Defined() {
		t.Error("MaxDrawdown() of an empty curve must be undefined")
	}
}

func TestEquityCurve_Append(t *testing.T) {
	c := NewEquityCurve(EquityPoint{day(2), USD(1)}, EquityPoint{day(1), USD(2)})
	c = c.Append(EquityPoint{day(2), USD(3)})
	if len(c) != 2 {
		t.Fatalf("Append() = %v, want two points", c)
	}
	if c[0].Date != day(1) {
		t.Errorf("first date = %v, want %v", c[0].Date, day(1))
	}
	assertMoney(t, "replaced point", c[1].TotalValue, USD(3))
	if _, ok := c.ValueAsOf(NewDate(2023, 12, 31)); ok {
		t.Error("ValueAsOf() before the first point has a value")
	}
}
