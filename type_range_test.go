package journal

import "testing"

func TestRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		on   Date
		want bool
	}{
		{"inside", NewRange(NewDate(2024, 1, 10), NewDate(2024, 1, 17)), NewDate(2024, 1, 12), true},
		{"first day", NewRange(NewDate(2024, 1, 10), NewDate(2024, 1, 17)), NewDate(2024, 1, 10), true},
		{"last day", NewRange(NewDate(2024, 1, 10), NewDate(2024, 1, 17)), NewDate(2024, 1, 17), true},
		{"before", NewRange(NewDate(2024, 1, 10), NewDate(2024, 1, 17)), NewDate(2024, 1, 9), false},
		{"after", NewRange(NewDate(2024, 1, 10), NewDate(2024, 1, 17)), NewDate(2024, 1, 18), false},
		{"swapped bounds", NewRange(NewDate(2024, 1, 17), NewDate(2024, 1, 10)), NewDate(2024, 1, 12), true},
		{"since inception", Range{To: NewDate(2024, 1, 17)}, NewDate(1999, 1, 1), true},
		{"up to now", Range{From: NewDate(2024, 1, 17)}, NewDate(2099, 1, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.on); got != tt.want {
				t.Errorf("%v.Contains(%v) = %v, want %v", tt.r, tt.on, got, tt.want)
			}
		})
	}
}

func TestPeriod_ToDate(t *testing.T) {
	on := NewDate(2024, 5, 15) // Wednesday
	tests := []struct {
		p    Period
		want Range
	}{
		{Daily, NewRange(on, on)},
		{Weekly, NewRange(NewDate(2024, 5, 13), on)},
		{Monthly, NewRange(NewDate(2024, 5, 1), on)},
		{Quarterly, NewRange(NewDate(2024, 4, 1), on)},
		{Yearly, NewRange(NewDate(2024, 1, 1), on)},
		{Inception, Range{To: on}},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if got := tt.p.ToDate(on); got != tt.want {
				t.Errorf("%v.ToDate(%v) = %v, want %v", tt.p, on, got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"ytd": Yearly, "Month": Monthly, "": Inception, "week": Weekly} {
		got, err := ParsePeriod(in)
		if err != nil {
			t.Fatalf("ParsePeriod(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePeriod(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod(\"fortnight\") expected an error")
	}
}
