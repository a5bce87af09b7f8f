package journal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// persist applies an import result to a persisted state, the way a store does.
func persist(p Persisted, res ImportResult) Persisted {
	next := Persisted{
		Trades:       append(slices.Clone(p.Trades), res.Trades...),
		LatestEquity: p.LatestEquity,
	}
	updated := make(map[string]Position)
	for _, pos := range res.Positions {
		updated[pos.ID] = pos
	}
	for _, pos := range p.Positions {
		if slices.Contains(res.RemovedPositions, pos.ID) {
			continue
		}
		if u, ok := updated[pos.ID]; ok {
			pos = u
			delete(updated, pos.ID)
		}
		next.Positions = append(next.Positions, pos)
	}
	for _, pos := range res.Positions {
		if _, ok := updated[pos.ID]; ok {
			next.Positions = append(next.Positions, pos)
		}
	}
	if last, ok := EquityCurve(res.Equity).Latest(); ok {
		next.LatestEquity = &last
	}
	return next
}

func batch() []Trade {
	return []Trade{
		buy("", "AAPL", day(2), 100, 10, 0.5),
		sell("", "AAPL", day(3), 50, 12, 0.5),
		buy("", "MSFT", day(3), 10, 300, 1),
	}
}

func TestReconcile_AppendIsIdempotent(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(10000)
	req := ImportRequest{AccountID: "acc", Mode: AppendImport, Trades: batch(), CurrentAssets: &assets}

	first := Reconcile(req, Persisted{}, s)
	if first.HasErrors() {
		t.Fatalf("first import errors: %v", first.Errors)
	}
	if got, want := first.Stats, (ImportStats{SavedTrades: 3, SavedPositions: 2, TotalTrades: 3, TotalPositions: 2}); got != want {
		t.Errorf("first import stats = %+v, want %+v", got, want)
	}
	if len(first.Equity) == 0 {
		t.Error("first import did not reconstruct the equity curve")
	}

	second := Reconcile(req, persist(Persisted{}, first), s)
	if second.HasErrors() {
		t.Fatalf("second import errors: %v", second.Errors)
	}
	if got, want := second.Stats.SavedTrades, 0; got != want {
		t.Errorf("SavedTrades = %d, want %d", got, want)
	}
	if got, want := second.Stats.SkippedTrades, len(req.Trades); got != want {
		t.Errorf("SkippedTrades = %d, want %d", got, want)
	}
	if len(second.Trades) != 0 || len(second.Positions) != 0 || len(second.Equity) != 0 {
		t.Errorf("second import = %d trades, %d positions, %d points, want nothing", len(second.Trades), len(second.Positions), len(second.Equity))
	}
	if got, want := second.Stats.TotalPositions, 2; got != want {
		t.Errorf("TotalPositions = %d, want %d", got, want)
	}
}

func TestReconcile_AssignsDeterministicIDs(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(10000)
	req := ImportRequest{AccountID: "acc", Mode: FullImport, Trades: batch(), CurrentAssets: &assets}
	a, b := Reconcile(req, Persisted{}, s), Reconcile(req, Persisted{}, s)
	for i := range a.Trades {
		if a.Trades[i].ID == "" || a.Trades[i].ID != b.Trades[i].ID {
			t.Errorf("trade %d ids %q and %q, want the same non empty id", i, a.Trades[i].ID, b.Trades[i].ID)
		}
	}
}

func TestReconcile_AppendRebuildsAffectedTickers(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(10000)
	history := []Trade{
		buy("b1", "AAPL", day(1), 10, 10, 0),
		sell("s1", "AAPL", day(2), 10, 11, 0),
		buy("b2", "AAPL", day(3), 10, 12, 0),
		buy("b3", "MSFT", day(3), 1, 300, 0),
	}
	persisted := persist(Persisted{}, Reconcile(ImportRequest{AccountID: "acc", Mode: FullImport, Trades: history, CurrentAssets: &assets}, Persisted{}, s))
	if len(persisted.Positions) != 3 {
		t.Fatalf("persisted %d positions, want 3", len(persisted.Positions))
	}

	res := Reconcile(ImportRequest{
		AccountID: "acc",
		Mode:      AppendImport,
		Trades: []Trade{
			sell("s2", "AAPL", day(4), 5, 12, 0),
			sell("", "AAPL", day(5), 5, 15, 0),
		},
	}, persisted, s)
	if res.HasErrors() {
		t.Fatalf("Reconcile() errors: %v", res.Errors)
	}
	// the closed AAPL episode is unchanged, the second one is closed by the new sells,
	// MSFT is not touched.
	want := ImportStats{SavedTrades: 2, SavedPositions: 1, SkippedPositions: 1, TotalTrades: 2, TotalPositions: 3}
	if res.Stats != want {
		t.Errorf("Stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Positions) != 1 || res.Positions[0].Status != Closed || res.Positions[0].OpenDate != day(3) {
		t.Fatalf("Positions = %v, want the second AAPL episode, closed", res.Positions)
	}
	// the anchor is the last point of the full import, on day 3.
	if len(res.Equity) != 2 || res.Equity[0].Date != day(4) || res.Equity[1].Date != day(5) {
		t.Fatalf("Equity = %v, want points on %v and %v", res.Equity, day(4), day(5))
	}
	assertMoney(t, "equity on day 4", res.Equity[0].TotalValue, USD(10000))
	// 5*(15-12)
	assertMoney(t, "equity on day 5", res.Equity[1].TotalValue, USD(10015))
}

func TestReconcile_DuplicatesWithinBatch(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(1000)
	trade := buy("", "AAPL", day(2), 10, 10, 0)
	res := Reconcile(ImportRequest{AccountID: "acc", Mode: FullImport, Trades: []Trade{trade, trade}, CurrentAssets: &assets}, Persisted{}, s)
	if res.Stats.SavedTrades != 1 || res.Stats.SkippedTrades != 1 {
		t.Errorf("Stats = %+v, want one saved and one skipped trade", res.Stats)
	}
}

func TestReconcile_FullIgnoresPersisted(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(1000)
	req := ImportRequest{AccountID: "acc", Mode: FullImport, Trades: batch(), CurrentAssets: &assets}
	persisted := persist(Persisted{}, Reconcile(req, Persisted{}, s))
	res := Reconcile(req, persisted, s)
	if res.Stats.SavedTrades != 3 || res.Stats.SkippedTrades != 0 {
		t.Errorf("Stats = %+v, want every trade saved", res.Stats)
	}
	last, ok := EquityCurve(res.Equity).Latest()
	if !ok {
		t.Fatal("FULL import did not reconstruct the equity curve")
	}
	assertMoney(t, "last equity point", last.TotalValue, assets)
}

func TestReconcile_FullRequiresAnchor(t *testing.T) {
	res := Reconcile(ImportRequest{AccountID: "acc", Mode: FullImport, Trades: batch()}, Persisted{}, DefaultSettings("USD"))
	if !res.IsMissingAnchor() {
		t.Errorf("Errors = %v, want the missing anchor", res.Errors)
	}
	if len(res.Positions) != 2 || len(res.Equity) != 0 {
		t.Errorf("got %d positions and %d points, want positions and no equity", len(res.Positions), len(res.Equity))
	}
}

func TestReconcile_CallerContractErrors(t *testing.T) {
	assets := USD(1000)
	other := buy("x", "AAPL", day(2), 1, 1, 0)
	other.AccountID = "other"
	negative := buy("neg", "AAPL", day(2), 1, -1, 0)
	res := Reconcile(ImportRequest{
		AccountID:     "acc",
		Mode:          FullImport,
		Trades:        []Trade{other, negative, buy("ok", "AAPL", day(3), 1, 1, 0)},
		CurrentAssets: &assets,
	}, Persisted{}, DefaultSettings("USD"))
	if got, want := len(res.Errors), 2; got != want {
		t.Fatalf("Errors = %v, want %d errors", res.Errors, want)
	}
	if !strings.Contains(res.Errors[0], ErrAccountMismatch.Error()) || !strings.Contains(res.Errors[1], "neg") {
		t.Errorf("Errors = %v, want an account mismatch then the invalid trade", res.Errors)
	}
	if res.Stats.SavedTrades != 1 {
		t.Errorf("SavedTrades = %d, want 1", res.Stats.SavedTrades)
	}
}

func TestReconcile_ForeignCurrencyIsRejected(t *testing.T) {
	assets := USD(10000)
	samsung := NewTrade("acc", "SAMSUNG", day(2), Buy, Q(10), KRW(70000)).WithID("krw")
	fee := buy("fee", "MSFT", day(2), 1, 300, 0).WithCommission(KRW(1000))
	res := Reconcile(ImportRequest{
		AccountID:     "acc",
		Mode:          FullImport,
		Trades:        []Trade{buy("b1", "AAPL", day(2), 10, 5, 0), samsung, fee},
		CurrentAssets: &assets,
	}, Persisted{}, DefaultSettings("USD"))
	if got, want := len(res.Errors), 2; got != want {
		t.Fatalf("Errors = %v, want %d errors", res.Errors, want)
	}
	if !strings.Contains(res.Errors[0], "krw") || !strings.Contains(res.Errors[0], ErrCurrency.Error()) {
		t.Errorf("Errors[0] = %q, want the KRW trade rejected for its currency", res.Errors[0])
	}
	if !strings.Contains(res.Errors[1], "fee") {
		t.Errorf("Errors[1] = %q, want the trade with a KRW commission", res.Errors[1])
	}
	if res.Stats.SavedTrades != 1 || len(res.Positions) != 1 || res.Positions[0].Ticker != "AAPL" {
		t.Errorf("saved %d trades and %v, want the AAPL trade and position only", res.Stats.SavedTrades, res.Positions)
	}
	if len(res.Equity) != 1 {
		t.Errorf("Equity = %v, want one point", res.Equity)
	}

	krw := KRW(1000000)
	res = Reconcile(ImportRequest{
		AccountID:     "acc",
		Mode:          FullImport,
		Trades:        []Trade{buy("b1", "AAPL", day(2), 10, 5, 0)},
		CurrentAssets: &krw,
	}, Persisted{}, DefaultSettings("USD"))
	if len(res.Errors) != 2 || !strings.Contains(res.Errors[0], ErrCurrency.Error()) || !strings.Contains(res.Errors[1], ErrMissingAnchor.Error()) {
		t.Errorf("Errors = %v, want the KRW assets rejected then a missing anchor", res.Errors)
	}
	if len(res.Equity) != 0 {
		t.Errorf("Equity = %v, want none", res.Equity)
	}
}

func TestReconcile_IntegrityErrorsAreReported(t *testing.T) {
	assets := USD(1000)
	res := Reconcile(ImportRequest{
		AccountID: "acc",
		Mode:      FullImport,
		Trades: []Trade{
			buy("b1", "AAPL", day(2), 10, 5, 0),
			sell("s1", "AAPL", day(3), 20, 6, 0),
			buy("b2", "MSFT", day(2), 1, 5, 0),
		},
		CurrentAssets: &assets,
	}, Persisted{}, DefaultSettings("USD"))
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "s1") {
		t.Fatalf("Errors = %v, want one error naming s1", res.Errors)
	}
	if len(res.Positions) != 2 {
		t.Errorf("Positions = %v, want the partial AAPL position and MSFT", res.Positions)
	}
}

type memoryStore struct {
	Persisted
	err error
}

func (m memoryStore) PositionsByAccount(context.Context, string) ([]Position, error) {
	return m.Positions, m.err
}
func (m memoryStore) TradesByAccount(context.Context, string) ([]Trade, error) { return m.Trades, m.err }
func (m memoryStore) LatestEquityPoint(context.Context, string) (*EquityPoint, error) {
	return m.LatestEquity, m.err
}

func TestReconciler_Import(t *testing.T) {
	s := DefaultSettings("USD")
	assets := USD(10000)
	req := ImportRequest{AccountID: "acc", Mode: AppendImport, Trades: batch(), CurrentAssets: &assets}
	persisted := persist(Persisted{}, Reconcile(req, Persisted{}, s))

	r := NewReconciler(memoryStore{Persisted: persisted}, s, zerolog.Nop())
	res, err := r.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("Import() unexpected error: %v", err)
	}
	if res.Stats.SkippedTrades != 3 {
		t.Errorf("SkippedTrades = %d, want 3", res.Stats.SkippedTrades)
	}

	failing := NewReconciler(memoryStore{err: errors.New("disk full")}, s, zerolog.Nop())
	if _, err := failing.Import(context.Background(), req); err == nil {
		t.Error("Import() with a failing store expected an error")
	}
	if _, err := failing.Import(context.Background(), ImportRequest{AccountID: "acc", Mode: "MERGE"}); err == nil {
		t.Error("Import() with an unknown mode expected an error")
	}
}

func TestParseImportMode(t *testing.T) {
	for in, want := range map[string]ImportMode{"full": FullImport, "APPEND": AppendImport, "": AppendImport} {
		if got, err := ParseImportMode(in); err != nil || got != want {
			t.Errorf("ParseImportMode(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseImportMode("merge"); err == nil {
		t.Error("ParseImportMode(merge) expected an error")
	}
}
