package journal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RiskMode selects how portfolio net risk is computed.
type RiskMode int

const (
	// RiskDownside only counts the downside exposure of stop-losses.
	RiskDownside RiskMode = iota
	// RiskNetted offsets the downside exposure with unrealized gains.
	RiskNetted
)

func (m RiskMode) String() string {
	switch m {
	case RiskDownside:
		return "downside"
	case RiskNetted:
		return "netted"
	default:
		return "unknown"
	}
}

// ParseRiskMode parses a string into a RiskMode.
func ParseRiskMode(s string) (RiskMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "downside", "":
		return RiskDownside, nil
	case "netted", "net":
		return RiskNetted, nil
	default:
		return 0, fmt.Errorf("unknown risk calculation mode: %q", s)
	}
}

// Fees are commission rates applied to the notional of trades that do not
// report their own commission.
type Fees struct {
	BuyRate  decimal.Decimal
	SellRate decimal.Decimal
}

// Settings holds every account-level parameter the computations depend on.
// They are always passed explicitly.
type Settings struct {
	// Currency of the account, used for rounding and display.
	Currency string
	// WinRateThreshold is the fraction of the initial R a closed position must
	// gain (or lose) to count as a win (or a loss). Anything in between is breakeven.
	WinRateThreshold decimal.Decimal
	RiskMode         RiskMode
	Fees             Fees
	// DefaultRiskPercent is the fraction of the average buy price considered at
	// risk for shares no active stop-loss covers. Zero means uncovered shares carry no risk.
	DefaultRiskPercent decimal.Decimal
}

// DefaultSettings returns the settings of a new account in 'currency'.
func DefaultSettings(currency string) Settings {
	return Settings{
		Currency:         currency,
		WinRateThreshold: decimal.Zero,
		RiskMode:         RiskDownside,
	}
}

// Validate checks the settings for correctness.
func (s Settings) Validate() error {
	var errs error
	if s.Currency == "" {
		errs = errors.Join(errs, errors.New("account currency is missing"))
	} else if err := ValidateCurrency(s.Currency); err != nil {
		errs = errors.Join(errs, err)
	}
	if s.WinRateThreshold.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("win rate threshold must not be negative, got %s", s.WinRateThreshold))
	}
	if s.Fees.BuyRate.IsNegative() || s.Fees.SellRate.IsNegative() {
		errs = errors.Join(errs, errors.New("fee rates must not be negative"))
	}
	if s.DefaultRiskPercent.IsNegative() || s.DefaultRiskPercent.GreaterThan(decimal.NewFromInt(1)) {
		errs = errors.Join(errs, fmt.Errorf("default risk percent must be within [0,1], got %s", s.DefaultRiskPercent))
	}
	if s.RiskMode != RiskDownside && s.RiskMode != RiskNetted {
		errs = errors.Join(errs, fmt.Errorf("unknown risk mode %d", s.RiskMode))
	}
	return errs
}
