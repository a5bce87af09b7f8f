package journal

import (
	"fmt"
	"strings"
)

// Period is a standard calendar period used to select a filter window.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
	Inception // everything since the first trade
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "day"
	case Weekly:
		return "week"
	case Monthly:
		return "month"
	case Quarterly:
		return "quarter"
	case Yearly:
		return "year"
	case Inception:
		return "inception"
	default:
		return "period"
	}
}

// ParsePeriod parses a period name.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily":
		return Daily, nil
	case "week", "weekly", "wtd":
		return Weekly, nil
	case "month", "monthly", "mtd":
		return Monthly, nil
	case "quarter", "quarterly", "qtd":
		return Quarterly, nil
	case "year", "yearly", "ytd":
		return Yearly, nil
	case "", "all", "inception":
		return Inception, nil
	default:
		return 0, fmt.Errorf("unknown period %q (day, week, month, quarter, year, inception)", s)
	}
}

// ToDate returns the range from the start of the period containing 'on' to 'on'.
func (p Period) ToDate(on Date) Range {
	if p == Inception {
		return Range{To: on}
	}
	return Range{From: on.StartOf(p), To: on}
}
