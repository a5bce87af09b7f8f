// Package sqlite persists trades, positions and equity points in a SQLite database.
//
// It implements the read side the reconciler needs, and commits an import result
// in a single transaction: trades are never saved without their positions.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/journal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schema.sql
var schema string

// Store is a journal store backed by SQLite.
type Store struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// check that Store implements the reconciler's read port.
var _ journal.Store = (*Store)(nil)

// Open opens (or creates) the database at 'path' and applies the schema.
// The path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = abs
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// a single connection serializes writers, and keeps an in-memory database alive.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", path, err)
	}
	s := &Store{
		conn: conn,
		path: path,
		log:  log.With().Str("component", "store").Str("path", path).Logger(),
	}
	s.log.Debug().Msg("database opened")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.conn.Close() }

// DataVersion returns a number that changes whenever another connection, possibly
// in another process, commits to the database. Commits of this store leave it
// unchanged.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data version: %w", err)
	}
	return v, nil
}

// withTransaction runs fn in a transaction, committed only if fn succeeds.
func (s *Store) withTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()
	return fn(tx)
}

// SaveImport persists everything an import produced as a single unit. A full
// import replaces the whole history of the account.
func (s *Store) SaveImport(ctx context.Context, res journal.ImportResult) error {
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		if res.Mode == journal.FullImport {
			if err := deleteAccount(ctx, tx, res.AccountID); err != nil {
				return err
			}
		}
		for _, t := range res.Trades {
			if err := insertTrade(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, id := range res.RemovedPositions {
			if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete position %s: %w", id, err)
			}
		}
		for _, p := range res.Positions {
			if err := upsertPosition(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, e := range res.Equity {
			if err := upsertEquity(ctx, tx, res.AccountID, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save import of %s: %w", res.AccountID, err)
	}
	s.log.Info().
		Str("account", res.AccountID).
		Int("trades", len(res.Trades)).
		Int("positions", len(res.Positions)).
		Int("removed", len(res.RemovedPositions)).
		Int("equity_points", len(res.Equity)).
		Msg("import saved")
	return nil
}

// DeleteAccount removes every trade, position and equity point of 'account'.
func (s *Store) DeleteAccount(ctx context.Context, account string) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error { return deleteAccount(ctx, tx, account) })
}

func deleteAccount(ctx context.Context, tx *sql.Tx, account string) error {
	for _, q := range []string{
		`DELETE FROM positions WHERE account = ?`,
		`DELETE FROM trades WHERE account = ?`,
		`DELETE FROM equity_points WHERE account = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, account); err != nil {
			return fmt.Errorf("failed to delete account %s: %w", account, err)
		}
	}
	return nil
}

func insertTrade(ctx context.Context, tx *sql.Tx, t journal.Trade) error {
	var brokerDate string
	if !t.BrokerDate.IsZero() {
		brokerDate = t.BrokerDate.String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trades (id, account, ticker, date, type, quantity, price, commission, currency, broker_date, broker_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Ticker, t.Date.String(), string(t.Type), t.Quantity.String(),
		t.Price.Exact(), t.Commission.Exact(), t.Price.Currency(), brokerDate, t.BrokerTime)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
	}
	return nil
}

func upsertPosition(ctx context.Context, tx *sql.Tx, p journal.Position) error {
	var closeDate string
	if !p.CloseDate.IsZero() {
		closeDate = p.CloseDate.String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO positions (id, account, ticker, status, open_date, close_date, avg_buy_price, total_shares, max_shares, realized_pnl, max_risk_amount, total_bought, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			close_date = excluded.close_date,
			avg_buy_price = excluded.avg_buy_price,
			total_shares = excluded.total_shares,
			max_shares = excluded.max_shares,
			realized_pnl = excluded.realized_pnl,
			max_risk_amount = excluded.max_risk_amount,
			total_bought = excluded.total_bought`,
		p.ID, p.AccountID, p.Ticker, string(p.Status), p.OpenDate.String(), closeDate,
		p.AvgBuyPrice.Exact(), p.TotalShares.String(), p.MaxShares.String(), p.RealizedPnl.Exact(),
		p.MaxRiskAmount.Exact(), p.TotalBought.Exact(), p.AvgBuyPrice.Currency())
	if err != nil {
		return fmt.Errorf("failed to save position %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM position_trades WHERE position_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to reset trades of position %s: %w", p.ID, err)
	}
	for i, t := range p.Trades {
		if _, err := tx.ExecContext(ctx, `INSERT INTO position_trades (position_id, seq, trade_id) VALUES (?, ?, ?)`, p.ID, i, t.ID); err != nil {
			return fmt.Errorf("failed to link trade %s to position %s: %w", t.ID, p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stop_losses WHERE position_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to reset stop-losses of position %s: %w", p.ID, err)
	}
	for i, sl := range p.StopLosses {
		sl.PositionID = p.ID
		if err := upsertStopLoss(ctx, tx, sl, i); err != nil {
			return err
		}
	}
	return nil
}

func upsertStopLoss(ctx context.Context, tx *sql.Tx, sl journal.StopLoss, seq int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO stop_losses (id, position_id, seq, stop_price, stop_quantity, active, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sl.ID, sl.PositionID, seq, sl.StopPrice.Exact(), sl.StopQuantity.String(), sl.Active, sl.StopPrice.Currency())
	if err != nil {
		return fmt.Errorf("failed to save stop-loss %s: %w", sl.ID, err)
	}
	return nil
}

func upsertEquity(ctx context.Context, tx *sql.Tx, account string, e journal.EquityPoint) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO equity_points (account, date, total_value, currency) VALUES (?, ?, ?, ?)
		ON CONFLICT (account, date) DO UPDATE SET total_value = excluded.total_value, currency = excluded.currency`,
		account, e.Date.String(), e.TotalValue.Exact(), e.TotalValue.Currency())
	if err != nil {
		return fmt.Errorf("failed to save equity point %s: %w", e.Date, err)
	}
	return nil
}

// AddStopLoss attaches a stop-loss to an existing position. It is appended after
// the stop-losses the position already has.
func (s *Store) AddStopLoss(ctx context.Context, sl journal.StopLoss) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		var seq int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM stop_losses WHERE position_id = ?`, sl.PositionID).Scan(&seq)
		if err != nil {
			return fmt.Errorf("failed to count stop-losses of %s: %w", sl.PositionID, err)
		}
		return upsertStopLoss(ctx, tx, sl, seq)
	})
}

// TradesByAccount returns every trade of 'account' in chronological order.
func (s *Store) TradesByAccount(ctx context.Context, account string) ([]journal.Trade, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, account, ticker, date, type, quantity, price, commission, currency, broker_date, broker_time
		FROM trades WHERE account = ? ORDER BY date, broker_date, broker_time, rowid`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []journal.Trade
	for rows.Next() {
		var id, acc, ticker, date, side, qty, price, commission, cur, brokerDate, brokerTime string
		if err := rows.Scan(&id, &acc, &ticker, &date, &side, &qty, &price, &commission, &cur, &brokerDate, &brokerTime); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t := journal.Trade{ID: id, AccountID: acc, Ticker: ticker, Type: journal.TradeType(side), BrokerTime: brokerTime}
		var errs []error
		t.Date, err = parseDate(date)
		errs = append(errs, err)
		t.BrokerDate, err = parseDate(brokerDate)
		errs = append(errs, err)
		t.Quantity, err = parseQuantity(qty)
		errs = append(errs, err)
		t.Price, err = journal.ParseMoney(price, cur)
		errs = append(errs, err)
		t.Commission, err = journal.ParseMoney(commission, cur)
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("corrupted trade %s: %w", id, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PositionsByAccount returns every position of 'account' with its trades and
// stop-losses, ordered by ticker and opening date.
func (s *Store) PositionsByAccount(ctx context.Context, account string) ([]journal.Position, error) {
	trades, err := s.TradesByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]journal.Trade, len(trades))
	for _, t := range trades {
		byID[t.ID] = t
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, account, ticker, status, open_date, close_date, avg_buy_price, total_shares, max_shares, realized_pnl, max_risk_amount, total_bought, currency
		FROM positions WHERE account = ? ORDER BY ticker, open_date`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	var positions []journal.Position
	for rows.Next() {
		var id, acc, ticker, status, openDate, closeDate, avg, shares, maxShares, realized, risk, bought, cur string
		if err := rows.Scan(&id, &acc, &ticker, &status, &openDate, &closeDate, &avg, &shares, &maxShares, &realized, &risk, &bought, &cur); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p := journal.Position{ID: id, AccountID: acc, Ticker: ticker, Status: journal.Status(status)}
		var errs []error
		p.OpenDate, err = parseDate(openDate)
		errs = append(errs, err)
		p.CloseDate, err = parseDate(closeDate)
		errs = append(errs, err)
		p.AvgBuyPrice, err = journal.ParseMoney(avg, cur)
		errs = append(errs, err)
		p.TotalShares, err = parseQuantity(shares)
		errs = append(errs, err)
		p.MaxShares, err = parseQuantity(maxShares)
		errs = append(errs, err)
		p.RealizedPnl, err = journal.ParseMoney(realized, cur)
		errs = append(errs, err)
		p.MaxRiskAmount, err = journal.ParseMoney(risk, cur)
		errs = append(errs, err)
		p.TotalBought, err = journal.ParseMoney(bought, cur)
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("corrupted position %s: %w", id, err)
		}
		positions = append(positions, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range positions {
		p := &positions[i]
		if p.Trades, err = s.positionTrades(ctx, p.ID, byID); err != nil {
			return nil, err
		}
		if p.StopLosses, err = s.StopLosses(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

func (s *Store) positionTrades(ctx context.Context, position string, byID map[string]journal.Trade) ([]journal.Trade, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT trade_id FROM position_trades WHERE position_id = ? ORDER BY seq`, position)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades of position %s: %w", position, err)
	}
	defer rows.Close()
	var trades []journal.Trade
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("position %s refers to the unknown trade %s", position, id)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// StopLosses returns the stop-losses of a position in order.
func (s *Store) StopLosses(ctx context.Context, position string) ([]journal.StopLoss, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, stop_price, stop_quantity, active, currency
		FROM stop_losses WHERE position_id = ? ORDER BY seq`, position)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop-losses of %s: %w", position, err)
	}
	defer rows.Close()
	var stops []journal.StopLoss
	for rows.Next() {
		var id, price, qty, cur string
		var active bool
		if err := rows.Scan(&id, &price, &qty, &active, &cur); err != nil {
			return nil, fmt.Errorf("failed to scan stop-loss: %w", err)
		}
		sl := journal.StopLoss{ID: id, PositionID: position, Active: active}
		if sl.StopPrice, err = journal.ParseMoney(price, cur); err != nil {
			return nil, fmt.Errorf("corrupted stop-loss %s: %w", id, err)
		}
		if sl.StopQuantity, err = parseQuantity(qty); err != nil {
			return nil, fmt.Errorf("corrupted stop-loss %s: %w", id, err)
		}
		stops = append(stops, sl)
	}
	return stops, rows.Err()
}

// LatestEquityPoint returns the most recent equity point of 'account', or nil.
func (s *Store) LatestEquityPoint(ctx context.Context, account string) (*journal.EquityPoint, error) {
	curve, err := s.equity(ctx, `SELECT date, total_value, currency FROM equity_points WHERE account = ? ORDER BY date DESC LIMIT 1`, account)
	if err != nil || len(curve) == 0 {
		return nil, err
	}
	return &curve[0], nil
}

// EquityCurve returns every equity point of 'account'.
func (s *Store) EquityCurve(ctx context.Context, account string) (journal.EquityCurve, error) {
	return s.equity(ctx, `SELECT date, total_value, currency FROM equity_points WHERE account = ? ORDER BY date`, account)
}

func (s *Store) equity(ctx context.Context, query, account string) (journal.EquityCurve, error) {
	rows, err := s.conn.QueryContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity of %s: %w", account, err)
	}
	defer rows.Close()
	var curve journal.EquityCurve
	for rows.Next() {
		var date, value, cur string
		if err := rows.Scan(&date, &value, &cur); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		var e journal.EquityPoint
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if e.TotalValue, err = journal.ParseMoney(value, cur); err != nil {
			return nil, err
		}
		curve = append(curve, e)
	}
	return curve, rows.Err()
}

// Accounts returns the accounts with at least one trade.
func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT account FROM trades ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()
	var accounts []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func parseDate(s string) (journal.Date, error) {
	if s == "" {
		return journal.Date{}, nil
	}
	return journal.ParseDate(s)
}

func parseQuantity(s string) (journal.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return journal.Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return journal.Q(d), nil
}
