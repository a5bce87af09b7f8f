package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the side of a trade.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// ParseTradeType parses a trade side, case insensitive.
func ParseTradeType(s string) (TradeType, error) {
	switch t := TradeType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Buy, Sell:
		return t, nil
	default:
		return "", fmt.Errorf("unknown trade type %q", s)
	}
}

// brokerTimeFormat is the format of the optional broker execution time.
const brokerTimeFormat = "15:04:05"

// Trade is an immutable fill as reported by the broker.
type Trade struct {
	ID         string
	AccountID  string
	Ticker     string
	Date       Date
	Type       TradeType
	Quantity   Quantity // number of shares, a positive integer
	Price      Money    // price per share
	Commission Money    // total commission of the fill
	BrokerDate Date     // optional settlement date reported by the broker
	BrokerTime string   // optional execution time "15:04:05", orders trades within a day
}

// NewTrade creates a new trade with no commission.
func NewTrade(account, ticker string, on Date, side TradeType, quantity Quantity, price Money) Trade {
	return Trade{
		AccountID:  account,
		Ticker:     ticker,
		Date:       on,
		Type:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: M(0, price.Currency()),
	}
}

// WithID returns a copy of the trade with the given id.
func (t Trade) WithID(id string) Trade { t.ID = id; return t }

// WithCommission returns a copy of the trade with the given commission.
func (t Trade) WithCommission(c Money) Trade { t.Commission = c; return t }

// Notional returns price × quantity.
func (t Trade) Notional() Money { return t.Price.Mul(t.Quantity) }

// TradeKey is the composite identity of a real-world fill. Two trades with the
// same key are the same fill, whatever their ids.
type TradeKey struct {
	AccountID string
	Ticker    string
	Date      Date
	Type      TradeType
	Quantity  string // normalized decimal
	Price     string // normalized decimal
}

// Key returns the composite identity of the trade.
func (t Trade) Key() TradeKey {
	return TradeKey{
		AccountID: t.AccountID,
		Ticker:    t.Ticker,
		Date:      t.Date,
		Type:      t.Type,
		Quantity:  t.Quantity.value.String(),
		Price:     t.Price.value.String(),
	}
}

func (k TradeKey) String() string {
	return strings.Join([]string{k.AccountID, k.Ticker, k.Date.String(), string(k.Type), k.Quantity, k.Price}, "|")
}

// Validate checks the trade for caller contract violations. All failures are
// joined in the returned error, which matches ErrInvalidTrade.
func (t Trade) Validate() error {
	var errs []error
	if t.AccountID == "" {
		errs = append(errs, errors.New("account is missing"))
	}
	if t.Ticker == "" {
		errs = append(errs, errors.New("ticker is missing"))
	}
	if t.Date.IsZero() {
		errs = append(errs, errors.New("trade date is missing"))
	}
	if t.Type != Buy && t.Type != Sell {
		errs = append(errs, fmt.Errorf("unknown trade type %q", t.Type))
	}
	if !t.Quantity.IsPositive() {
		errs = append(errs, fmt.Errorf("quantity must be positive, got %v", t.Quantity))
	} else if !t.Quantity.IsInteger() {
		errs = append(errs, fmt.Errorf("quantity must be a whole number of shares, got %v", t.Quantity))
	}
	if t.Price.IsNegative() {
		errs = append(errs, fmt.Errorf("price must not be negative, got %s", t.Price.Exact()))
	}
	if t.Commission.IsNegative() {
		errs = append(errs, fmt.Errorf("commission must not be negative, got %s", t.Commission.Exact()))
	}
	if c := t.Commission.Currency(); c != "" && t.Price.Currency() != "" && c != t.Price.Currency() {
		errs = append(errs, fmt.Errorf("commission currency %s does not match price currency %s", c, t.Price.Currency()))
	}
	if !t.BrokerDate.IsZero() && t.BrokerDate.Before(t.Date) {
		errs = append(errs, fmt.Errorf("broker date %s is before trade date %s", t.BrokerDate, t.Date))
	}
	if t.BrokerTime != "" {
		if _, err := time.Parse(brokerTimeFormat, t.BrokerTime); err != nil {
			errs = append(errs, fmt.Errorf("broker time %q want format %q", t.BrokerTime, brokerTimeFormat))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s: %w", ErrInvalidTrade, t.name(), errors.Join(errs...))
}

// CheckCurrency returns an error matching both ErrInvalidTrade and ErrCurrency when
// the amounts of the trade are not in 'currency'.
func (t Trade) CheckCurrency(currency string) error {
	if t.Price.In(currency) && t.Commission.In(currency) {
		return nil
	}
	c := t.Price.Currency()
	if t.Price.In(currency) {
		c = t.Commission.Currency()
	}
	return fmt.Errorf("%w %s: %w: %s is not %s", ErrInvalidTrade, t.name(), ErrCurrency, c, currency)
}

func (t Trade) name() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Key().String()
}

// compareTrades orders trades chronologically: trade date, broker date, broker time.
// Trades that cannot be told apart compare equal, so stable sorts keep the input order.
func compareTrades(a, b Trade) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if !a.BrokerDate.IsZero() && !b.BrokerDate.IsZero() {
		if c := a.BrokerDate.Compare(b.BrokerDate); c != 0 {
			return c
		}
	}
	if a.BrokerTime != "" && b.BrokerTime != "" {
		return strings.Compare(a.BrokerTime, b.BrokerTime)
	}
	return 0
}

// MarshalJSON implements the json.Marshaler interface for Trade.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", t.ID)
	w.Append("account", t.AccountID)
	w.Append("ticker", t.Ticker)
	w.Append("date", t.Date)
	w.Append("type", t.Type)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	if !t.Commission.IsZero() {
		w.Append("commission", t.Commission.value)
	}
	w.Optional("currency", t.Price.cur)
	if !t.BrokerDate.IsZero() {
		w.Append("brokerDate", t.BrokerDate)
	}
	w.Optional("brokerTime", t.BrokerTime)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Trade.
// Price and commission share the single 'currency' property.
func (t *Trade) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID         string          `json:"id"`
		Account    string          `json:"account"`
		Ticker     string          `json:"ticker"`
		Date       Date            `json:"date"`
		Type       string          `json:"type"`
		Quantity   Quantity        `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		Commission decimal.Decimal `json:"commission"`
		Currency   string          `json:"currency"`
		BrokerDate *Date           `json:"brokerDate"`
		BrokerTime string          `json:"brokerTime"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	side, err := ParseTradeType(temp.Type)
	if err != nil {
		return err
	}
	*t = Trade{
		ID:         temp.ID,
		AccountID:  temp.Account,
		Ticker:     temp.Ticker,
		Date:       temp.Date,
		Type:       side,
		Quantity:   temp.Quantity,
		Price:      M(temp.Price, temp.Currency),
		Commission: M(temp.Commission, temp.Currency),
		BrokerTime: temp.BrokerTime,
	}
	if temp.BrokerDate != nil {
		t.BrokerDate = *temp.BrokerDate
	}
	return nil
}
