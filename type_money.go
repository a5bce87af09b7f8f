package journal

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of decimal places kept by divisions whose
// result is not exact (averages, ratios).
const divisionPrecision = 20

// Money represents a monetary value.
//
// Arithmetic is exact; rounding only happens when a value is displayed or
// explicitly rounded with [Money.Round].
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// ParseMoney parses a decimal string into a Money of currency 'cur'.
func ParseMoney(s, cur string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: d, cur: cur}, nil
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// Fraction returns the number of decimal places used to display this currency (2 for USD, 0 for KRW).
func (m Money) Fraction() int32 {
	if m.cur == "" {
		return 2
	}
	return int32(m.currency().Fraction)
}

// Round returns the money rounded at its currency precision, halves rounded away from zero.
func (m Money) Round() Money {
	return Money{value: m.value.Round(m.Fraction()), cur: m.cur}
}

// String returns the display representation of the money value, rounded at the currency precision.
func (m Money) String() string {
	if m.cur == "" {
		return m.value.StringFixed(2)
	}
	cur := m.currency()
	dec := m.value.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// SignedString returns the string representation of the money value with a sign.
// 0 is represented as a "-"
func (m Money) SignedString() string {
	if m.Round().IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// Exact returns all the digits of the value, without currency.
func (m Money) Exact() string { return m.value.String() }

// Decimal returns the exact value in major units.
func (m Money) Decimal() decimal.Decimal { return m.value }

// InexactFloat64 returns the nearest float64, for statistics only.
func (m Money) InexactFloat64() float64 { return m.value.InexactFloat64() }

func (m Money) Currency() string                { return m.cur }

// In reports whether m can be combined with amounts in 'currency'. The "" currency
// is compatible with any other.
func (m Money) In(currency string) bool { return m.cur == "" || currency == "" || m.cur == currency }

func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) LessThanOrEqual(n Money) bool    { return m.value.LessThanOrEqual(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Abs() Money                      { return Money{value: m.value.Abs(), cur: m.cur} }
func (m Money) Mul(n Quantity) Money            { return Money{value: m.value.Mul(n.value), cur: m.cur} }
func (m Money) MulRate(r decimal.Decimal) Money { return Money{value: m.value.Mul(r), cur: m.cur} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// Positive returns m when it is positive, zero otherwise.
func (m Money) Positive() Money {
	if m.value.IsPositive() {
		return m
	}
	return Money{cur: m.cur}
}

// Min returns the smallest of m and n.
func (m Money) Min(n Money) Money {
	if n.LessThan(m) {
		return n
	}
	return m
}

// Per divides the money by a quantity, typically to get a price per share.
// It returns false when q is zero.
func (m Money) Per(q Quantity) (Money, bool) {
	if q.IsZero() {
		return Money{cur: m.cur}, false
	}
	return Money{value: m.value.DivRound(q.value, divisionPrecision), cur: m.cur}, true
}

// Ratio returns m/n as a [Ratio], undefined when n is zero.
func (m Money) Ratio(n Money) Ratio { return NewRatio(m.value, n.value) }

// makes the "" currency totally weak.
func cur(A, B Money) string {
	if A.cur == "" {
		return B.cur
	}
	if B.cur == "" {
		return A.cur
	}
	if A.cur != B.cur {
		panic("currency mismatch " + A.cur + "!=" + B.cur)
	}
	return A.cur
}

func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", m.value)
	return w.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := unmarshalStrict(data, &temp); err != nil {
		return err
	}
	m.cur, m.value = temp.Currency, temp.Amount
	return nil
}

// ValidateCurrency checks that 'cur' is a known ISO 4217 currency code.
func ValidateCurrency(cur string) error {
	if money.GetCurrency(cur) == nil {
		return fmt.Errorf("unknown currency %q", cur)
	}
	return nil
}
