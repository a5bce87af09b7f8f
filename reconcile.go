package journal

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tradeNamespace seeds the ids given to imported trades that have none.
var tradeNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("journal.trade"))

// ImportMode selects how a batch of trades relates to the persisted history.
type ImportMode string

const (
	// FullImport treats the batch as the complete history of the account.
	FullImport ImportMode = "FULL"
	// AppendImport merges the batch into the persisted history.
	AppendImport ImportMode = "APPEND"
)

// ParseImportMode parses an import mode, case insensitive.
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case FullImport, AppendImport:
		return m, nil
	case "":
		return AppendImport, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// ImportRequest is a batch of already typed trades to reconcile.
type ImportRequest struct {
	AccountID string
	Mode      ImportMode
	Trades    []Trade
	// CurrentAssets anchors the equity reconstruction of a full import, or of an
	// append import when nothing is persisted yet.
	CurrentAssets *Money
}

// Persisted is the state of an account as the store knows it.
type Persisted struct {
	Trades       []Trade
	Positions    []Position
	LatestEquity *EquityPoint
}

// ImportStats counts the outcome of an import.
type ImportStats struct {
	SavedTrades      int `json:"savedTrades"`
	SkippedTrades    int `json:"skippedTrades"`
	SavedPositions   int `json:"savedPositions"`
	SkippedPositions int `json:"skippedPositions"`
	TotalTrades      int `json:"totalTrades"`
	TotalPositions   int `json:"totalPositions"`
}

// ImportResult is everything a store must persist, as a single unit, to apply an import.
type ImportResult struct {
	AccountID string     `json:"account"`
	Mode      ImportMode `json:"mode"`
	// Trades are the newly imported trades only.
	Trades []Trade `json:"trades"`
	// Positions are the new or updated positions.
	Positions []Position `json:"positions"`
	// RemovedPositions are ids of persisted positions that no longer exist.
	RemovedPositions []string      `json:"removedPositions,omitempty"`
	Equity           []EquityPoint `json:"equity"`
	Errors           []string      `json:"errors"`
	Stats            ImportStats   `json:"stats"`
}

// HasErrors reports whether anything went wrong during the reconciliation.
func (r ImportResult) HasErrors() bool { return len(r.Errors) > 0 }

// Reconcile computes the result of importing 'req' into an account whose persisted
// state is 'persisted'. Persisted data is ignored for a full import.
//
// It is a pure computation: nothing is written, and calling it twice with the same
// arguments returns the same result.
func Reconcile(req ImportRequest, persisted Persisted, s Settings) ImportResult {
	res := ImportResult{
		AccountID: req.AccountID,
		Mode:      req.Mode,
		Stats:     ImportStats{TotalTrades: len(req.Trades)},
	}
	if req.Mode == FullImport {
		persisted = Persisted{}
	}
	fail := func(err error) { res.Errors = append(res.Errors, err.Error()) }

	known := make(map[TradeKey]bool, len(persisted.Trades))
	for _, t := range persisted.Trades {
		known[t.Key()] = true
	}
	for _, t := range req.Trades {
		if t.AccountID == "" {
			t.AccountID = req.AccountID
		}
		if t.AccountID != req.AccountID {
			fail(fmt.Errorf("%w: %s is not %s", ErrAccountMismatch, t.Key(), req.AccountID))
			continue
		}
		if err := cmp.Or(t.Validate(), t.CheckCurrency(s.Currency)); err != nil {
			fail(err)
			continue
		}
		k := t.Key()
		if known[k] {
			res.Stats.SkippedTrades++
			continue
		}
		known[k] = true
		if t.ID == "" {
			t.ID = uuid.NewSHA1(tradeNamespace, []byte(k.String())).String()
		}
		res.Trades = append(res.Trades, t)
	}
	res.Stats.SavedTrades = len(res.Trades)

	// rebuild only the tickers receiving new trades.
	affected := make(map[string]bool)
	for _, t := range res.Trades {
		affected[t.Ticker] = true
	}
	var history, merged []Trade
	for _, t := range persisted.Trades {
		history = append(history, t)
		if affected[t.Ticker] {
			merged = append(merged, t)
		}
	}
	history = append(history, res.Trades...)
	merged = append(merged, res.Trades...)

	rebuilt, errs := NewBuilder(s).WithStopLosses(persisted.Positions).Build(merged)
	for _, err := range errs {
		fail(err)
	}

	before := make(map[string]Position)
	unaffected := 0
	for _, p := range persisted.Positions {
		if affected[p.Ticker] {
			before[p.ID] = p
		} else {
			unaffected++
		}
	}
	for _, p := range rebuilt {
		old, ok := before[p.ID]
		delete(before, p.ID)
		if ok && old.SameState(p) {
			res.Stats.SkippedPositions++
			continue
		}
		res.Positions = append(res.Positions, p)
	}
	for _, p := range persisted.Positions {
		if _, gone := before[p.ID]; gone {
			res.RemovedPositions = append(res.RemovedPositions, p.ID)
		}
	}
	res.Stats.SavedPositions = len(res.Positions)
	res.Stats.TotalPositions = unaffected + len(rebuilt)

	if len(res.Trades) == 0 {
		return res
	}
	anchor := req.CurrentAssets
	if anchor != nil && !anchor.In(s.Currency) {
		fail(fmt.Errorf("%w: current assets in %s", ErrCurrency, anchor.Currency()))
		anchor = nil
	}
	switch {
	case persisted.LatestEquity != nil && !persisted.LatestEquity.TotalValue.In(s.Currency):
		fail(fmt.Errorf("%w: persisted equity in %s", ErrCurrency, persisted.LatestEquity.TotalValue.Currency()))
	case persisted.LatestEquity != nil:
		res.Equity = ContinueEquity(history, *persisted.LatestEquity, s)
	case anchor != nil:
		res.Equity = ReconstructEquity(history, *anchor, s)
	default:
		fail(ErrMissingAnchor)
	}
	return res
}

// Store is the read side of the persistence collaborator.
type Store interface {
	PositionsByAccount(ctx context.Context, account string) ([]Position, error)
	TradesByAccount(ctx context.Context, account string) ([]Trade, error)
	// LatestEquityPoint returns nil when the account has no equity point yet.
	LatestEquityPoint(ctx context.Context, account string) (*EquityPoint, error)
}

// Reconciler loads the persisted state of an account to reconcile imports against it.
type Reconciler struct {
	store    Store
	settings Settings
	log      zerolog.Logger
}

// NewReconciler creates a reconciler reading from 'store'.
func NewReconciler(store Store, s Settings, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		settings: s,
		log:      log.With().Str("component", "reconciler").Logger(),
	}
}

// Load returns the persisted state of 'account'.
func (r *Reconciler) Load(ctx context.Context, account string) (Persisted, error) {
	var p Persisted
	var err error
	if p.Trades, err = r.store.TradesByAccount(ctx, account); err != nil {
		return p, fmt.Errorf("failed to load trades of %s: %w", account, err)
	}
	if p.Positions, err = r.store.PositionsByAccount(ctx, account); err != nil {
		return p, fmt.Errorf("failed to load positions of %s: %w", account, err)
	}
	if p.LatestEquity, err = r.store.LatestEquityPoint(ctx, account); err != nil {
		return p, fmt.Errorf("failed to load equity of %s: %w", account, err)
	}
	return p, nil
}

// Import reconciles 'req' with the persisted state of its account. The returned error
// only reports a failure to read the store; reconciliation problems are in the result.
func (r *Reconciler) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	log := r.log.With().Str("account", req.AccountID).Str("mode", string(req.Mode)).Logger()
	if req.Mode != FullImport && req.Mode != AppendImport {
		return ImportResult{}, fmt.Errorf("unknown import mode %q", req.Mode)
	}

	var persisted Persisted
	if req.Mode == AppendImport {
		var err error
		if persisted, err = r.Load(ctx, req.AccountID); err != nil {
			return ImportResult{}, err
		}
		if a := persisted.LatestEquity; a != nil {
			for _, t := range req.Trades {
				if !t.Date.After(a.Date) {
					log.Debug().Str("ticker", t.Ticker).Stringer("date", t.Date).Stringer("anchor", a.Date).Msg("trade is not after the equity anchor, it does not extend the curve")
				}
			}
		}
	}

	res := Reconcile(req, persisted, r.settings)
	for _, msg := range res.Errors {
		log.Warn().Msg(msg)
	}
	log.Info().
		Int("saved_trades", res.Stats.SavedTrades).
		Int("skipped_trades", res.Stats.SkippedTrades).
		Int("saved_positions", res.Stats.SavedPositions).
		Int("skipped_positions", res.Stats.SkippedPositions).
		Int("equity_points", len(res.Equity)).
		Msg("import reconciled")
	return res, nil
}

// IsMissingAnchor reports whether the result could not build its equity curve for lack of an anchor.
func (r ImportResult) IsMissingAnchor() bool {
	for _, msg := range r.Errors {
		if msg == ErrMissingAnchor.Error() {
			return true
		}
	}
	return false
}
