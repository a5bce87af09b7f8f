package journal

import "github.com/shopspring/decimal"

// NoDataString is displayed in place of values that cannot be computed.
const NoDataString = "—"

// Ratio is the result of a division that may be undefined.
//
// Dividing by zero never panics: it returns an undefined Ratio, which is
// distinct from a Ratio of zero.
type Ratio struct {
	value   decimal.Decimal
	defined bool
}

// NewRatio returns num/den, undefined when den is zero.
func NewRatio(num, den decimal.Decimal) Ratio {
	if den.IsZero() {
		return Ratio{}
	}
	return Ratio{value: num.DivRound(den, divisionPrecision), defined: true}
}

// Undefined returns the undefined ratio.
func Undefined() Ratio { return Ratio{} }

// Defined reports whether the ratio has a value.
func (r Ratio) Defined() bool { return r.defined }

// Decimal returns the ratio value and whether it is defined.
func (r Ratio) Decimal() (decimal.Decimal, bool) { return r.value, r.defined }

// Float returns the ratio as a float64 and whether it is defined.
func (r Ratio) Float() (float64, bool) { return r.value.InexactFloat64(), r.defined }

// Percent returns the ratio expressed in percent.
func (r Ratio) Percent() Ratio {
	if !r.defined {
		return r
	}
	return Ratio{value: r.value.Shift(2), defined: true}
}

// Equal reports whether both ratios are undefined or have the same value.
func (r Ratio) Equal(o Ratio) bool {
	return r.defined == o.defined && r.value.Equal(o.value)
}

func (r Ratio) String() string {
	if !r.defined {
		return NoDataString
	}
	return r.value.StringFixed(2)
}

// MarshalJSON writes the ratio as a decimal string, or null when undefined.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return r.value.MarshalJSON()
}
