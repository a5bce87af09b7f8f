package journal

import (
	"errors"
	"fmt"
)

// Data integrity errors, reported per ticker by the position builder.
var (
	ErrOversell       = errors.New("oversell")
	ErrOrphanSell     = errors.New("sell without an open position")
	ErrNegativeShares = errors.New("negative running share count")
)

// Caller contract errors.
var (
	ErrInvalidTrade    = errors.New("invalid trade")
	ErrCurrency        = errors.New("currency does not match the journal currency")
	ErrAccountMismatch = errors.New("trade belongs to another account")
	ErrMissingAnchor   = errors.New("equity reconstruction requires the current total assets")
)

// IntegrityError reports a trade that cannot be applied to the position it refers to.
// It matches its Kind with errors.Is.
type IntegrityError struct {
	Kind      error // one of ErrOversell, ErrOrphanSell, ErrNegativeShares
	AccountID string
	Ticker    string
	TradeID   string
	Date      Date
	Held      Quantity // shares held before the trade
	Requested Quantity // shares the trade tried to sell
}

func (e *IntegrityError) Error() string {
	switch e.Kind {
	case ErrOversell:
		return fmt.Sprintf("%s: trade %s on %s sells %v shares but only %v are held: %v", e.Ticker, e.TradeID, e.Date, e.Requested, e.Held, e.Kind)
	default:
		return fmt.Sprintf("%s: trade %s on %s: %v", e.Ticker, e.TradeID, e.Date, e.Kind)
	}
}

func (e *IntegrityError) Unwrap() error { return e.Kind }
