package journal

import (
	"fmt"
	"math"
)

// Unit of a metric value, used to format it.
type Unit string

const (
	Count    Unit = "count"
	Percent  Unit = "percent"
	RMult    Unit = "r"
	Currency Unit = "currency"
	Days     Unit = "days"
	Number   Unit = "number"
)

// Value is a metric value or the absence of one.
//
// NoData is never conflated with zero: a metric whose inputs do not allow a
// computation (division by zero, empty sample) has no data.
type Value struct {
	v  float64
	ok bool
}

// Of returns the value v. NaN and infinities have no data.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// NoData returns the value that cannot be computed.
func NoData() Value { return Value{} }

// ofRatio converts a ratio into a value.
func ofRatio(r Ratio) Value {
	f, ok := r.Float()
	if !ok {
		return NoData()
	}
	return Of(f)
}

// Float returns the value and whether there is one.
func (v Value) Float() (float64, bool) { return v.v, v.ok }

// IsNoData reports whether the value could not be computed.
func (v Value) IsNoData() bool { return !v.ok }

// Or returns the value, or 'def' when there is none.
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// Format formats the value in 'unit'.
func (v Value) Format(unit Unit) string {
	if !v.ok {
		return NoDataString
	}
	switch unit {
	case Count:
		return fmt.Sprintf("%d", int64(math.Round(v.v)))
	case Percent:
		return fmt.Sprintf("%.2f%%", v.v)
	case RMult:
		return fmt.Sprintf("%.2fR", v.v)
	case Days:
		return fmt.Sprintf("%.1f", v.v)
	default:
		return fmt.Sprintf("%.2f", v.v)
	}
}

func (v Value) String() string { return v.Format(Number) }
